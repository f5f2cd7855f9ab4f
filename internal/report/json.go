package report

import (
	"encoding/json"
	"io"

	"github.com/ppiankov/takeoff/internal/model"
)

func writeJSON(w io.Writer, r *Report) error {
	doc := *r
	if doc.Items == nil {
		doc.Items = []model.BOQItem{}
	}
	if doc.Summary.ElementTypes == nil {
		doc.Summary.ElementTypes = []string{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}
