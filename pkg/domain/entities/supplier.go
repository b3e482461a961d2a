package entities

import (
	"strings"
	"time"
)

// Supplier is a vendor of raw materials
type Supplier struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Contact       string    `json:"contact,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email,omitempty"`
	RawMaterials  string    `json:"raw_materials,omitempty"`
	CategoryCodes string    `json:"category_codes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewSupplier creates a validated Supplier
func NewSupplier(name, contact, phone, email string) (*Supplier, error) {
	s := &Supplier{
		Name:    strings.TrimSpace(name),
		Contact: strings.TrimSpace(contact),
		Phone:   strings.TrimSpace(phone),
		Email:   strings.TrimSpace(email),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks supplier invariants
func (s *Supplier) Validate() error {
	if s.Name == "" {
		return Invalidf("supplier name cannot be empty")
	}
	if s.Email != "" && !strings.Contains(s.Email, "@") {
		return Invalidf("supplier email %q is not a valid address", s.Email)
	}
	return nil
}
