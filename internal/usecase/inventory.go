package usecase

import (
	"context"
	"fmt"

	"github.com/azizikri/vinyl-checkout/internal/domain"
	"github.com/azizikri/vinyl-checkout/internal/repository"
)

// InventoryLedger guards per-product stock. It only runs on a Querier handed to it by an
// enclosing transaction, so a failed reservation is undone with the rest of the checkout.
type InventoryLedger struct{}

// Reserve takes qty units of the product and returns the product as it was priced at read time.
func (InventoryLedger) Reserve(ctx context.Context, q repository.Querier, productID int64, qty int) (domain.Product, error) {
	if qty <= 0 {
		return domain.Product{}, fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
	}

	product, err := q.GetProduct(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	if product.Stock < qty {
		return domain.Product{}, fmt.Errorf("%w: product %d has %d left", domain.ErrInsufficientStock, productID, product.Stock)
	}

	rows, err := q.DecrementStock(ctx, productID, qty)
	if err != nil {
		return domain.Product{}, err
	}
	if rows == 0 {
		return domain.Product{}, fmt.Errorf("%w: product %d", domain.ErrInsufficientStock, productID)
	}

	product.Stock -= qty
	return product, nil
}

// Release returns qty units to stock. Callers pass quantities read from an order's own items.
func (InventoryLedger) Release(ctx context.Context, q repository.Querier, productID int64, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
	}
	rows, err := q.IncrementStock(ctx, productID, qty)
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}
