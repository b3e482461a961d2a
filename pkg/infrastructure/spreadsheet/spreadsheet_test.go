package spreadsheet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadCSV(t *testing.T) {
	input := "\ufeffName,SKU,Quantity\nFlour,RM-FLR,\"1,250.5\"\n,,\nSugar,RM-SUG,\n"

	table, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "SKU", "Quantity"}, table.Header)
	require.NoError(t, table.RequireColumns("RawMaterials", []string{"SKU", "Name"}))

	records := table.Records()
	require.Len(t, records, 2)
	assert.Equal(t, 2, records[0].Line)
	assert.Equal(t, 4, records[1].Line, "blank rows are skipped but keep their line numbers")

	qty, err := records[0].Decimal("Quantity")
	require.NoError(t, err)
	assert.True(t, qty.Equal(decimal.RequireFromString("1250.5")))

	qty, err = records[1].Decimal("Quantity")
	require.NoError(t, err)
	assert.True(t, qty.IsZero())
	assert.Equal(t, "", records[1].Get("Missing"))
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expectErr string
	}{
		{"header only", "Name,SKU\n", "CSV must have header and at least one data row"},
		{"ragged row", "Name,SKU\nFlour\n", "row 2: expected 2 columns, got 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Equal(t, tt.expectErr, err.Error())
		})
	}
}

func TestRequireColumns_Mismatch(t *testing.T) {
	table := &Table{Header: []string{"Name", "Sku"}}
	err := table.RequireColumns("Products", []string{"Name", "SKU"})
	require.Error(t, err)
	assert.Equal(t, "Products header mismatch. Expected: [Name SKU], Got: [Name Sku]", err.Error())
}

func TestRecord_Int(t *testing.T) {
	table := &Table{Header: []string{"ProductID"}, Rows: [][]string{{"12"}, {"7.0"}, {"FG-CAKE"}}}
	records := table.Records()

	id, ok := records[0].Int("ProductID")
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)

	id, ok = records[1].Int("ProductID")
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)

	_, ok = records[2].Int("ProductID")
	assert.False(t, ok)
}

func TestWriteTemplate_RoundTrip(t *testing.T) {
	for _, kind := range TemplateKinds {
		t.Run(string(kind), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteTemplate(&buf, kind))

			table, err := ReadXLSX(&buf)
			require.NoError(t, err)
			assert.Equal(t, kind.Columns(), table.Header)
			assert.NoError(t, table.RequireColumns(string(kind), kind.Columns()))
		})
	}
}

func TestParseTemplateKind(t *testing.T) {
	for input, expected := range map[string]TemplateKind{
		"suppliers":     SuppliersTemplate,
		"raw_materials": RawMaterialsTemplate,
		"Raw Materials": RawMaterialsTemplate,
		"bom":           BOMTemplate,
	} {
		got, err := ParseTemplateKind(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, got)
	}
	_, err := ParseTemplateKind("orders")
	assert.Error(t, err)
	assert.Equal(t, "rawmaterials_template.xlsx", RawMaterialsTemplate.Filename())
}

func TestWriteXLSX_Sheets(t *testing.T) {
	var buf bytes.Buffer
	err := WriteXLSX(&buf,
		Sheet{Name: "Sales", Header: []string{"Invoice", "Total"}, Rows: [][]interface{}{{"INV-1", 12.5}}},
		Sheet{Name: "Items", Header: []string{"Invoice", "SKU"}, Rows: [][]interface{}{{"INV-1", "FG-CAKE"}}},
	)
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Sales", "Items"}, f.GetSheetList())
	total, err := f.GetCellValue("Sales", "B2")
	require.NoError(t, err)
	assert.Equal(t, "12.5", total)

	_, err = DetectFormat("upload.ods")
	assert.Error(t, err)
	format, err := DetectFormat("UPLOAD.XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, format)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []string{"a", "b"}, [][]string{{"1", "x,y"}}))
	assert.Equal(t, "a,b\n1,\"x,y\"\n", buf.String())
}
