package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices and totals are numbers on the wire, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Transaction is a single product sale record as served by the API.
// ID is assigned by the record store; any id supplied by the seed source is ignored.
type Transaction struct {
	ID          string          `json:"id"`
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category" validate:"required"`
	Image       string          `json:"image,omitempty"`
	Sold        bool            `json:"sold"`
	DateOfSale  time.Time       `json:"dateOfSale" validate:"required"`
}

// SourceTransaction is the record shape returned by the seed source.
type SourceTransaction struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category" validate:"required"`
	Image       string          `json:"image"`
	Sold        bool            `json:"sold"`
	DateOfSale  time.Time       `json:"dateOfSale" validate:"required"`
}

// ToTransaction drops the upstream id and normalises the sale date to UTC.
func (s SourceTransaction) ToTransaction() Transaction {
	return Transaction{
		Title:       s.Title,
		Description: s.Description,
		Price:       s.Price,
		Category:    s.Category,
		Image:       s.Image,
		Sold:        s.Sold,
		DateOfSale:  s.DateOfSale.UTC(),
	}
}
