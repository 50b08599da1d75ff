package repository

import (
	"context"
	"fmt"

	"github.com/azizikri/vinyl-checkout/internal/domain"
)

const getProduct = `SELECT id, title, artist, category, price, stock FROM products WHERE id = $1`

func (q *Queries) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	var p domain.Product
	err := q.db.QueryRow(ctx, getProduct, id).Scan(
		&p.ID,
		&p.Title,
		&p.Artist,
		&p.Category,
		&p.Price,
		&p.Stock,
	)
	if err != nil {
		return domain.Product{}, notFound(err, domain.ErrProductNotFound, "get product")
	}
	return p, nil
}

const decrementStock = `UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`

func (q *Queries) DecrementStock(ctx context.Context, productID int64, qty int) (int64, error) {
	return q.exec(ctx, "decrement stock", decrementStock, productID, qty)
}

const incrementStock = `UPDATE products SET stock = stock + $2 WHERE id = $1`

func (q *Queries) IncrementStock(ctx context.Context, productID int64, qty int) (int64, error) {
	return q.exec(ctx, "increment stock", incrementStock, productID, qty)
}

const deleteCartItems = `DELETE FROM cart_items WHERE user_id = $1 AND product_id = ANY($2)`

func (q *Queries) DeleteCartItems(ctx context.Context, userID int64, productIDs []int64) (int64, error) {
	if len(productIDs) == 0 {
		return 0, nil
	}
	tag, err := q.db.Exec(ctx, deleteCartItems, userID, productIDs)
	if err != nil {
		return 0, fmt.Errorf("delete cart items: %w", err)
	}
	return tag.RowsAffected(), nil
}
