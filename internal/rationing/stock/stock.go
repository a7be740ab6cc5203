// Package stock guards per-location stock levels. Reservation never leaves a
// level negative and is all-or-nothing for the requested quantity.
package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prs/internal/rationing/ports"
	id "prs/pkg/domain"
	dErrors "prs/pkg/domain-errors"
)

// ErrInsufficientStock is returned when a location cannot cover the requested quantity.
var ErrInsufficientStock = errors.New("insufficient stock")

// Reserve removes quantity units of item from location. It must run inside the
// same unit of work as the ledger write so a later failure releases the units.
func Reserve(ctx context.Context, w ports.StockWriter, location id.LocationID, item id.ItemID, quantity int, at time.Time) error {
	if quantity <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "reserve quantity must be positive")
	}
	ok, err := w.DecrementStock(ctx, location, item, quantity, at)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if !ok {
		return ErrInsufficientStock
	}
	return nil
}

// Restock adds quantity units and returns the new level.
func Restock(ctx context.Context, w ports.StockWriter, location id.LocationID, item id.ItemID, quantity int, at time.Time) (int, error) {
	if quantity <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "restock quantity must be positive")
	}
	lvl, err := w.IncrementStock(ctx, location, item, quantity, at)
	if err != nil {
		return 0, fmt.Errorf("increment stock: %w", err)
	}
	return lvl.Quantity, nil
}

// Set replaces the level of item at location with quantity by applying the difference.
func Set(ctx context.Context, w ports.StockWriter, location id.LocationID, item id.ItemID, quantity int, at time.Time) (int, error) {
	if quantity < 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "stock level cannot be negative")
	}
	current, err := w.GetStock(ctx, location, item)
	if err != nil {
		return 0, fmt.Errorf("get stock: %w", err)
	}
	have := 0
	if current != nil {
		have = current.Quantity
	}
	switch {
	case quantity > have:
		return Restock(ctx, w, location, item, quantity-have, at)
	case quantity < have:
		if err := Reserve(ctx, w, location, item, have-quantity, at); err != nil {
			return 0, err
		}
	}
	return quantity, nil
}
