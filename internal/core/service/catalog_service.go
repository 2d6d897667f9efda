package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tdnguyen/library-desk/internal/core/domain"
	"github.com/tdnguyen/library-desk/internal/port"
)

// LowStockThreshold marks books flagged by inventory summaries.
const LowStockThreshold = 3

// maxResults caps search matches and the low-stock list.
const maxResults = 50

// CatalogService runs the catalog and order operations. Each call
// executes inside one store transaction that also appends exactly one
// tool-call audit record; an unexpected error rolls back everything,
// audit record included.
type CatalogService struct {
	store port.Store
}

func NewCatalogService(store port.Store) *CatalogService {
	return &CatalogService{store: store}
}

// call wraps an operation body in a transaction and appends the audit
// record for whatever result the body produced.
func (s *CatalogService) call(ctx context.Context, sessionID, name string, args any, body func(tx port.Tx) (any, error)) (any, error) {
	var result any
	err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		r, err := body(tx)
		if err != nil {
			return err
		}
		result = r

		argsJSON, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("marshal args: %w", err)
		}
		resultJSON, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		return tx.AppendToolCall(ctx, sessionID, name, argsJSON, resultJSON)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SearchBooks returns up to 50 books whose chosen field contains the
// query substring. Any field other than "title" searches by author.
func (s *CatalogService) SearchBooks(ctx context.Context, sessionID, query string, by domain.SearchField) (any, error) {
	args := map[string]any{"q": query, "by": by}
	return s.call(ctx, sessionID, "find_books", args, func(tx port.Tx) (any, error) {
		books, err := tx.SearchBooks(ctx, query, by, maxResults)
		if err != nil {
			return nil, err
		}
		return SearchResult{Matches: bookInfos(books)}, nil
	})
}

// RestockBook increases a book's stock by qty and returns the new
// level. Rejected attempts (qty <= 0, unknown ISBN) are still audited.
func (s *CatalogService) RestockBook(ctx context.Context, sessionID, isbn string, qty int) (any, error) {
	args := map[string]any{"isbn": isbn, "qty": qty}
	return s.call(ctx, sessionID, "restock_book", args, func(tx port.Tx) (any, error) {
		if qty <= 0 {
			return ErrorResult{Error: "qty must be > 0"}, nil
		}
		key := domain.NormalizeISBN(isbn)
		book, err := tx.LockBook(ctx, key)
		if err != nil {
			return nil, err
		}
		if book == nil {
			return ErrorResult{Error: fmt.Sprintf("Book not found for isbn=%s", key)}, nil
		}
		if err := tx.AdjustStock(ctx, key, qty); err != nil {
			return nil, err
		}
		return StockResult{ISBN: book.ISBN, Title: book.Title, NewStock: book.Stock + qty}, nil
	})
}

// UpdatePrice sets a book's price. Order items created earlier keep
// their captured unit price.
func (s *CatalogService) UpdatePrice(ctx context.Context, sessionID, isbn string, price float64) (any, error) {
	args := map[string]any{"isbn": isbn, "price": price}
	return s.call(ctx, sessionID, "update_price", args, func(tx port.Tx) (any, error) {
		if price < 0 {
			return ErrorResult{Error: "price must be >= 0"}, nil
		}
		key := domain.NormalizeISBN(isbn)
		book, err := tx.LockBook(ctx, key)
		if err != nil {
			return nil, err
		}
		if book == nil {
			return ErrorResult{Error: fmt.Sprintf("Book not found for isbn=%s", key)}, nil
		}
		if err := tx.SetPrice(ctx, key, price); err != nil {
			return nil, err
		}
		return PriceResult{ISBN: book.ISBN, Title: book.Title, NewPrice: price}, nil
	})
}

// OrderStatus returns the order header and its lines joined with book
// titles.
func (s *CatalogService) OrderStatus(ctx context.Context, sessionID string, orderID int64) (any, error) {
	args := map[string]any{"order_id": orderID}
	return s.call(ctx, sessionID, "order_status", args, func(tx port.Tx) (any, error) {
		order, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return ErrorResult{Error: fmt.Sprintf("Order not found for id=%d", orderID)}, nil
		}
		lines, err := tx.ListOrderLines(ctx, orderID)
		if err != nil {
			return nil, err
		}
		return OrderDetail{Order: *order, Items: lines}, nil
	})
}

// InventorySummary reports catalog totals plus up to 50 lowest-stock
// books at or below the threshold, stock ascending then title.
func (s *CatalogService) InventorySummary(ctx context.Context, sessionID string) (any, error) {
	return s.call(ctx, sessionID, "inventory_summary", map[string]any{}, func(tx port.Tx) (any, error) {
		titles, stock, err := tx.InventoryTotals(ctx)
		if err != nil {
			return nil, err
		}
		low, err := tx.ListLowStock(ctx, LowStockThreshold, maxResults)
		if err != nil {
			return nil, err
		}
		return SummaryResult{
			TotalTitles:       titles,
			TotalStock:        stock,
			LowStockThreshold: LowStockThreshold,
			LowStock:          bookInfos(low),
		}, nil
	})
}

// CreateOrder validates every item before any mutation: all books must
// exist and every requested quantity must fit the current stock, so a
// multi-item order never leaves the store partially deducted. On
// success it creates the order, captures each book's current price as
// the frozen unit price, decrements stock, and returns the
// post-decrement levels.
func (s *CatalogService) CreateOrder(ctx context.Context, sessionID string, customerID int64, items []OrderRequestItem) (any, error) {
	args := map[string]any{"customer_id": customerID, "items": items}
	return s.call(ctx, sessionID, "create_order", args, func(tx port.Tx) (any, error) {
		if len(items) == 0 {
			return ErrorResult{Error: "items cannot be empty"}, nil
		}
		for _, it := range items {
			if it.ISBN == "" {
				return ErrorResult{Error: "each item must have isbn and qty"}, nil
			}
			if it.Qty <= 0 {
				return ErrorResult{Error: "qty must be > 0 for each item"}, nil
			}
		}

		customer, err := tx.GetCustomer(ctx, customerID)
		if err != nil {
			return nil, err
		}
		if customer == nil {
			return ErrorResult{Error: fmt.Sprintf("Customer not found for id=%d", customerID)}, nil
		}

		// Check every item before touching anything.
		checked := make([]OrderedItem, 0, len(items))
		for _, it := range items {
			isbn := domain.NormalizeISBN(it.ISBN)
			book, err := tx.LockBook(ctx, isbn)
			if err != nil {
				return nil, err
			}
			if book == nil {
				return ErrorResult{Error: fmt.Sprintf("Book not found for isbn=%s", isbn)}, nil
			}
			if book.Stock < it.Qty {
				return InsufficientStockResult{
					Error:          "Insufficient stock",
					ISBN:           isbn,
					Title:          book.Title,
					RequestedQty:   it.Qty,
					AvailableStock: book.Stock,
				}, nil
			}
			checked = append(checked, OrderedItem{
				ISBN:      isbn,
				Qty:       it.Qty,
				UnitPrice: book.Price,
				Title:     book.Title,
			})
		}

		orderID, err := tx.InsertOrder(ctx, customerID, domain.OrderStatusCreated)
		if err != nil {
			return nil, err
		}
		for _, line := range checked {
			if err := tx.InsertOrderItem(ctx, domain.OrderItem{
				OrderID:   orderID,
				ISBN:      line.ISBN,
				Qty:       line.Qty,
				UnitPrice: line.UnitPrice,
			}); err != nil {
				return nil, err
			}
			// The per-item check above ignores repeated ISBNs; the
			// guarded decrement catches that and aborts the whole
			// transaction instead of overselling.
			if err := tx.AdjustStock(ctx, line.ISBN, -line.Qty); err != nil {
				return nil, err
			}
		}

		updated := make([]StockLevel, 0, len(checked))
		for _, line := range checked {
			book, err := tx.GetBook(ctx, line.ISBN)
			if err != nil {
				return nil, err
			}
			if book == nil {
				return nil, fmt.Errorf("book %s vanished mid-transaction", line.ISBN)
			}
			updated = append(updated, StockLevel{ISBN: book.ISBN, Title: book.Title, Stock: book.Stock})
		}

		return OrderResult{
			OrderID:      orderID,
			Customer:     *customer,
			Items:        checked,
			UpdatedStock: updated,
		}, nil
	})
}
