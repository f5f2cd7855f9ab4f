package cost

import (
	"sort"

	"github.com/ppiankov/takeoff/internal/model"
)

// PricedItem is a BOQ item with its unit rate and total cost
type PricedItem struct {
	model.BOQItem
	Rate      float64 `json:"rate"`
	TotalCost float64 `json:"total_cost"`
}

// Line is one row of a cost breakdown
type Line struct {
	Category  string  `json:"category"`
	TotalCost float64 `json:"total_cost"`
}

// Summary breaks the priced BOQ down by element type and storey
type Summary struct {
	Currency   string  `json:"currency,omitempty"`
	ByType     []Line  `json:"by_element_type"`
	ByStorey   []Line  `json:"by_storey"`
	GrandTotal float64 `json:"grand_total"`
}

// Estimate is the result of a costing pass
type Estimate struct {
	Items   []PricedItem `json:"items"`
	Summary Summary      `json:"summary"`
}

// Price applies the book's rates to each item's primary quantity
func (b *RateBook) Price(items []model.BOQItem) []PricedItem {
	priced := make([]PricedItem, 0, len(items))
	for _, it := range items {
		rate := b.Rate(it.ElementType, it.Material)
		priced = append(priced, PricedItem{
			BOQItem:   it,
			Rate:      rate,
			TotalCost: it.Quantity * rate,
		})
	}
	return priced
}

// Summarize totals priced items by element type, by storey and overall
func Summarize(priced []PricedItem, currency string) Summary {
	byType := make(map[string]float64)
	byStorey := make(map[string]float64)

	s := Summary{Currency: currency}
	for _, p := range priced {
		byType[p.ElementType] += p.TotalCost
		byStorey[p.Storey] += p.TotalCost
		s.GrandTotal += p.TotalCost
	}

	s.ByType = lines(byType)
	s.ByStorey = lines(byStorey)
	return s
}

// Estimate prices items and summarizes the result
func (b *RateBook) Estimate(items []model.BOQItem, currency string) *Estimate {
	priced := b.Price(items)
	return &Estimate{
		Items:   priced,
		Summary: Summarize(priced, currency),
	}
}

// Unpriced returns the element types whose items all priced at a zero rate, sorted
func (e *Estimate) Unpriced() []string {
	priced := make(map[string]bool)
	for _, it := range e.Items {
		priced[it.ElementType] = priced[it.ElementType] || it.Rate > 0
	}

	var out []string
	for t, ok := range priced {
		if !ok {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

func lines(totals map[string]float64) []Line {
	out := make([]Line, 0, len(totals))
	for k, v := range totals {
		out = append(out, Line{Category: k, TotalCost: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
