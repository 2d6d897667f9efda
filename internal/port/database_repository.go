package port

import (
	"context"
	"errors"

	"github.com/tdnguyen/library-desk/internal/core/domain"
)

// ErrStockConflict is returned by Tx.AdjustStock when a decrement would
// take stock below zero; it aborts the enclosing transaction.
var ErrStockConflict = errors.New("stock conflict")

// Store opens transaction scopes against the relational store. Every
// read and write an operation performs, including its audit record,
// happens inside one Tx and commits or rolls back as a unit.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

type Tx interface {
	// GetBook returns nil when no book matches the ISBN.
	GetBook(ctx context.Context, isbn string) (*domain.Book, error)

	// LockBook is GetBook with a row lock held until the transaction
	// ends, serializing concurrent stock mutations per ISBN.
	LockBook(ctx context.Context, isbn string) (*domain.Book, error)

	SearchBooks(ctx context.Context, query string, by domain.SearchField, limit int) ([]domain.Book, error)

	// AdjustStock applies a stock delta and refreshes the book's
	// updated-at timestamp. A delta that would leave stock negative
	// affects no rows and returns ErrStockConflict.
	AdjustStock(ctx context.Context, isbn string, delta int) error

	SetPrice(ctx context.Context, isbn string, price float64) error

	// GetCustomer returns nil when no customer matches the id.
	GetCustomer(ctx context.Context, id int64) (*domain.Customer, error)

	InsertOrder(ctx context.Context, customerID int64, status domain.OrderStatus) (int64, error)
	InsertOrderItem(ctx context.Context, item domain.OrderItem) error

	// GetOrder returns nil when no order matches the id.
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	ListOrderLines(ctx context.Context, orderID int64) ([]domain.OrderLine, error)

	InventoryTotals(ctx context.Context) (titles int, stock int, err error)
	ListLowStock(ctx context.Context, threshold, limit int) ([]domain.Book, error)

	AppendToolCall(ctx context.Context, sessionID, name string, args, result []byte) error
}
