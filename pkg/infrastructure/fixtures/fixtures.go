package fixtures

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed demo.yaml
var demoYAML []byte

// Supplier is a supplier row of a seed file
type Supplier struct {
	Name          string `yaml:"name"`
	Contact       string `yaml:"contact"`
	Phone         string `yaml:"phone"`
	Email         string `yaml:"email"`
	RawMaterials  string `yaml:"raw_materials"`
	CategoryCodes string `yaml:"category_codes"`
}

// Material is a raw material with its opening stock
type Material struct {
	Name         string          `yaml:"name"`
	SKU          string          `yaml:"sku"`
	Category     string          `yaml:"category"`
	CategoryCode string          `yaml:"category_code"`
	Quantity     decimal.Decimal `yaml:"quantity"`
	PricePaid    decimal.Decimal `yaml:"price_paid"`
	Supplier     string          `yaml:"supplier"`
}

// Product is a finished good
type Product struct {
	Name         string          `yaml:"name"`
	SKU          string          `yaml:"sku"`
	Category     string          `yaml:"category"`
	PriceSelling decimal.Decimal `yaml:"price_selling"`
	Supplier     string          `yaml:"supplier"`
}

// BOMLine links a product to a material by SKU
type BOMLine struct {
	Product  string          `yaml:"product"`
	Material string          `yaml:"material"`
	Quantity decimal.Decimal `yaml:"quantity"`
	Volume   decimal.Decimal `yaml:"volume"`
}

// User is an operator account; the password is hashed on load
type User struct {
	Email    string `yaml:"email"`
	FullName string `yaml:"full_name"`
	Password string `yaml:"password"`
}

// Fixture is a complete seed data set
type Fixture struct {
	Suppliers []Supplier `yaml:"suppliers"`
	Materials []Material `yaml:"materials"`
	Products  []Product  `yaml:"products"`
	BOM       []BOMLine  `yaml:"bom"`
	Users     []User     `yaml:"users"`
}

// Parse decodes a seed file, rejecting unknown keys
func Parse(data []byte) (*Fixture, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("fixtures: payload is empty")
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("fixtures: decode: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Load reads and parses a seed file from disk
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixtures: read %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("fixtures: %s: %w", path, err)
	}
	return f, nil
}

// Demo returns the bundled bakery data set
func Demo() *Fixture {
	f, err := Parse(demoYAML)
	if err != nil {
		panic(fmt.Sprintf("bundled demo fixture is invalid: %v", err))
	}
	return f
}

// Validate checks cross references between sections
func (f *Fixture) Validate() error {
	skus := make(map[string]bool)
	for _, m := range f.Materials {
		if err := addSKU(skus, m.SKU); err != nil {
			return err
		}
	}
	for _, p := range f.Products {
		if err := addSKU(skus, p.SKU); err != nil {
			return err
		}
	}
	for i, line := range f.BOM {
		if !skus[line.Product] {
			return fmt.Errorf("fixtures: bom %d: unknown product %q", i+1, line.Product)
		}
		if !skus[line.Material] {
			return fmt.Errorf("fixtures: bom %d: unknown material %q", i+1, line.Material)
		}
	}
	return nil
}

func addSKU(seen map[string]bool, sku string) error {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return fmt.Errorf("fixtures: sku cannot be empty")
	}
	if seen[sku] {
		return fmt.Errorf("fixtures: duplicate sku %q", sku)
	}
	seen[sku] = true
	return nil
}
