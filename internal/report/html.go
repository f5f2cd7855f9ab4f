package report

import (
	"fmt"
	"io"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ppiankov/takeoff/internal/model"
)

const htmlStyle = `
body { font-family: sans-serif; margin: 2em; color: #212529; }
h1 { font-size: 1.5em; }
table { border-collapse: collapse; margin-bottom: 2em; }
th, td { border: 1px solid #999; padding: 4px 8px; font-size: 0.9em; }
th { background: #333; color: #fff; }
td.num { text-align: right; }
tr:nth-child(even) td { background: #f5f5f5; }
`

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// withText returns an element holding a single text child
func withText(a atom.Atom, s string, attrs ...html.Attribute) *html.Node {
	n := element(a, attrs...)
	n.AppendChild(textNode(s))
	return n
}

var numClass = html.Attribute{Key: "class", Val: "num"}

func writeHTML(w io.Writer, r *Report) error {
	title := "Bill of Quantities"
	if r.Meta.ProjectName != "" {
		title += " - " + r.Meta.ProjectName
	}

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element(atom.Html, html.Attribute{Key: "lang", Val: "en"})
	doc.AppendChild(root)

	head := element(atom.Head)
	head.AppendChild(element(atom.Meta, html.Attribute{Key: "charset", Val: "utf-8"}))
	head.AppendChild(withText(atom.Title, title))
	head.AppendChild(withText(atom.Style, htmlStyle))
	root.AppendChild(head)

	body := element(atom.Body)
	root.AppendChild(body)
	body.AppendChild(withText(atom.H1, title))

	body.AppendChild(withText(atom.H2, "Project Information"))
	body.AppendChild(keyValueTable(r.projectRows()))

	body.AppendChild(withText(atom.H2, "Items"))
	if len(r.Items) == 0 {
		body.AppendChild(withText(atom.P, "No elements were found for the selected element types."))
	} else {
		body.AppendChild(itemTable(r))
	}

	s := r.Summary
	body.AppendChild(withText(atom.H2, "Summary"))
	body.AppendChild(keyValueTable([][2]string{
		{"Total Items", strconv.Itoa(s.TotalItems)},
		{"Total Volume (m³)", r.formatNumber(s.TotalVolume)},
		{"Total Area (m²)", r.formatNumber(s.TotalArea)},
		{"Total Length (m)", r.formatNumber(s.TotalLength)},
		{"Total Count", strconv.FormatFloat(s.TotalCount, 'f', -1, 64)},
	}))

	if r.Cost != nil {
		body.AppendChild(withText(atom.H2, "Cost Estimation"))
		body.AppendChild(costTable(r))
	}

	if err := html.Render(w, doc); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

func headerRow(titles ...string) *html.Node {
	tr := element(atom.Tr)
	for _, t := range titles {
		tr.AppendChild(withText(atom.Th, t))
	}
	return tr
}

func keyValueTable(rows [][2]string) *html.Node {
	table := element(atom.Table)
	tbody := element(atom.Tbody)
	table.AppendChild(tbody)
	for _, kv := range rows {
		tr := element(atom.Tr)
		tr.AppendChild(withText(atom.Th, kv[0]))
		tr.AppendChild(withText(atom.Td, kv[1]))
		tbody.AppendChild(tr)
	}
	return table
}

func itemTable(r *Report) *html.Node {
	table := element(atom.Table, html.Attribute{Key: "id", Val: "boq"})
	thead := element(atom.Thead)
	thead.AppendChild(headerRow(Columns...))
	table.AppendChild(thead)

	tbody := element(atom.Tbody)
	table.AppendChild(tbody)
	for _, it := range r.Items {
		tbody.AppendChild(itemRow(r, it))
	}
	return table
}

func itemRow(r *Report, it model.BOQItem) *html.Node {
	tr := element(atom.Tr)
	tr.AppendChild(withText(atom.Td, strconv.Itoa(it.ItemNo), numClass))
	tr.AppendChild(withText(atom.Td, it.ElementType))
	tr.AppendChild(withText(atom.Td, it.Description))
	tr.AppendChild(withText(atom.Td, string(it.Unit)))
	tr.AppendChild(withText(atom.Td, r.formatNumber(it.Quantity), numClass))
	tr.AppendChild(withText(atom.Td, it.Storey))
	tr.AppendChild(withText(atom.Td, it.Material))
	tr.AppendChild(withText(atom.Td, r.formatNumber(it.VolumeM3), numClass))
	tr.AppendChild(withText(atom.Td, r.formatNumber(it.AreaM2), numClass))
	tr.AppendChild(withText(atom.Td, r.formatNumber(it.LengthM), numClass))
	tr.AppendChild(withText(atom.Td, strconv.FormatFloat(it.Count, 'f', -1, 64), numClass))
	return tr
}

func costTable(r *Report) *html.Node {
	table := element(atom.Table, html.Attribute{Key: "id", Val: "cost"})
	thead := element(atom.Thead)
	thead.AppendChild(headerRow("Item No", "Description", "Unit", "Quantity", "Storey", "Rate", "Total Cost"))
	table.AppendChild(thead)

	tbody := element(atom.Tbody)
	table.AppendChild(tbody)
	for _, p := range r.Cost.Items {
		tr := element(atom.Tr)
		tr.AppendChild(withText(atom.Td, strconv.Itoa(p.ItemNo), numClass))
		tr.AppendChild(withText(atom.Td, p.Description))
		tr.AppendChild(withText(atom.Td, string(p.Unit)))
		tr.AppendChild(withText(atom.Td, r.formatNumber(p.Quantity), numClass))
		tr.AppendChild(withText(atom.Td, p.Storey))
		tr.AppendChild(withText(atom.Td, r.formatNumber(p.Rate), numClass))
		tr.AppendChild(withText(atom.Td, r.formatNumber(p.TotalCost), numClass))
		tbody.AppendChild(tr)
	}

	label := "Grand Total"
	if cur := r.Cost.Summary.Currency; cur != "" {
		label += " (" + cur + ")"
	}
	tfoot := element(atom.Tfoot)
	tr := element(atom.Tr)
	tr.AppendChild(withText(atom.Th, label, html.Attribute{Key: "colspan", Val: "6"}))
	tr.AppendChild(withText(atom.Td, r.formatNumber(r.Cost.Summary.GrandTotal), numClass))
	tfoot.AppendChild(tr)
	table.AppendChild(tfoot)
	return table
}
