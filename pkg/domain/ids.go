// Package domain defines typed identifiers shared across the rationing modules.
//
// Identifiers are opaque, stable strings. Typed wrappers keep an item id from
// being passed where an individual id is expected.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "prs/pkg/domain-errors"
)

const maxIDLength = 64

type (
	IndividualID  string
	ItemID        string
	MerchantID    string
	LocationID    string
	PurchaseID    string
	LimitID       string
	VaccinationID string
)

// NewPurchaseID allocates a fresh purchase reference.
func NewPurchaseID() PurchaseID {
	return PurchaseID(uuid.NewString())
}

// NewVaccinationID allocates a fresh vaccination record id.
func NewVaccinationID() VaccinationID {
	return VaccinationID(uuid.NewString())
}

// NewLimitID allocates a fresh purchase limit id.
func NewLimitID() LimitID {
	return LimitID(uuid.NewString())
}

func parseOpaque(kind, raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	if len(s) > maxIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, kind+" is too long")
	}
	for _, r := range s {
		if !isIDRune(r) {
			return "", dErrors.New(dErrors.CodeInvalidInput, kind+" contains invalid characters")
		}
	}
	return s, nil
}

func isIDRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-', r == '_', r == '.', r == ':':
		return true
	}
	return false
}

func ParseIndividualID(s string) (IndividualID, error) {
	v, err := parseOpaque("individual_id", s)
	return IndividualID(v), err
}

func ParseItemID(s string) (ItemID, error) {
	v, err := parseOpaque("item_id", s)
	return ItemID(v), err
}

func ParseLocationID(s string) (LocationID, error) {
	v, err := parseOpaque("store_location_id", s)
	return LocationID(v), err
}

func ParsePurchaseID(s string) (PurchaseID, error) {
	v, err := parseOpaque("purchase_id", s)
	return PurchaseID(v), err
}

func ParseVaccinationID(s string) (VaccinationID, error) {
	v, err := parseOpaque("vaccination_id", s)
	return VaccinationID(v), err
}

func (id IndividualID) String() string  { return string(id) }
func (id ItemID) String() string        { return string(id) }
func (id MerchantID) String() string    { return string(id) }
func (id LocationID) String() string    { return string(id) }
func (id PurchaseID) String() string    { return string(id) }
func (id LimitID) String() string       { return string(id) }
func (id VaccinationID) String() string { return string(id) }
