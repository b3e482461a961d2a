package spreadsheet

import (
	"fmt"
	"io"
	"strings"
)

// TemplateKind names one of the bulk upload layouts
type TemplateKind string

const (
	SuppliersTemplate    TemplateKind = "Suppliers"
	RawMaterialsTemplate TemplateKind = "RawMaterials"
	ProductsTemplate     TemplateKind = "Products"
	BOMTemplate          TemplateKind = "BOM"
)

// TemplateKinds lists every upload layout in menu order
var TemplateKinds = []TemplateKind{SuppliersTemplate, RawMaterialsTemplate, ProductsTemplate, BOMTemplate}

type templateColumn struct {
	name    string
	example interface{}
}

var templates = map[TemplateKind][]templateColumn{
	SuppliersTemplate: {
		{"Name", ""}, {"Contact", ""}, {"Phone", ""}, {"Email", ""}, {"RawMaterials", ""}, {"CategoryCodes", ""},
	},
	RawMaterialsTemplate: {
		{"Name", ""}, {"SKU", ""}, {"Category", ""}, {"CategoryCode", ""}, {"Quantity", 0}, {"PricePaid", 0.0}, {"Supplier", ""},
	},
	ProductsTemplate: {
		{"Name", ""}, {"SKU", ""}, {"Category", ""}, {"PriceSelling", 0.0}, {"Supplier", ""},
	},
	BOMTemplate: {
		{"ProductID", ""}, {"ProductName", ""}, {"RawMaterialID", ""}, {"QuantityRequired", 0}, {"Volume", 0},
	},
}

// ParseTemplateKind matches a kind case-insensitively, ignoring spaces and underscores
func ParseTemplateKind(s string) (TemplateKind, error) {
	norm := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(s))
	for _, k := range TemplateKinds {
		if strings.ToLower(string(k)) == norm {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown template %q, expected one of %v", s, TemplateKinds)
}

// Columns returns the header of a template
func (k TemplateKind) Columns() []string {
	cols := templates[k]
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

// Filename is the download name of the template
func (k TemplateKind) Filename() string {
	return strings.ToLower(string(k)) + "_template.xlsx"
}

// WriteTemplate writes an xlsx with the template header and one blank example row
func WriteTemplate(w io.Writer, kind TemplateKind) error {
	cols, ok := templates[kind]
	if !ok {
		return fmt.Errorf("unknown template %q", kind)
	}
	example := make([]interface{}, len(cols))
	for i, c := range cols {
		example[i] = c.example
	}
	return WriteXLSX(w, Sheet{Name: "Sheet1", Header: kind.Columns(), Rows: [][]interface{}{example}})
}
