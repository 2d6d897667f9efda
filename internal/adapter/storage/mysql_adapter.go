package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tdnguyen/library-desk/internal/core/domain"
	"github.com/tdnguyen/library-desk/internal/port"
)

// MySQLAdapter implements both the transactional store and the
// conversation repository on one database handle.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) WithinTx(ctx context.Context, fn func(tx port.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&mysqlTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type mysqlTx struct {
	tx *sql.Tx
}

const bookColumns = "isbn, title, author, stock, price, updated_at"

func scanBook(row *sql.Row) (*domain.Book, error) {
	var b domain.Book
	err := row.Scan(&b.ISBN, &b.Title, &b.Author, &b.Stock, &b.Price, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query book: %w", err)
	}
	return &b, nil
}

func (t *mysqlTx) GetBook(ctx context.Context, isbn string) (*domain.Book, error) {
	return scanBook(t.tx.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE isbn = ?`, isbn))
}

func (t *mysqlTx) LockBook(ctx context.Context, isbn string) (*domain.Book, error) {
	return scanBook(t.tx.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE isbn = ? FOR UPDATE`, isbn))
}

func (t *mysqlTx) SearchBooks(ctx context.Context, query string, by domain.SearchField, limit int) ([]domain.Book, error) {
	like := "%" + query + "%"

	var rows *sql.Rows
	var err error
	if by == domain.SearchByTitle {
		rows, err = t.tx.QueryContext(ctx,
			`SELECT `+bookColumns+` FROM books WHERE title LIKE ? ORDER BY title LIMIT ?`,
			like, limit)
	} else {
		rows, err = t.tx.QueryContext(ctx,
			`SELECT `+bookColumns+` FROM books WHERE author LIKE ? ORDER BY author, title LIMIT ?`,
			like, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	defer rows.Close()

	return collectBooks(rows)
}

func collectBooks(rows *sql.Rows) ([]domain.Book, error) {
	var out []domain.Book
	for rows.Next() {
		var b domain.Book
		if err := rows.Scan(&b.ISBN, &b.Title, &b.Author, &b.Stock, &b.Price, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (t *mysqlTx) AdjustStock(ctx context.Context, isbn string, delta int) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE books
		SET stock = stock + ?, updated_at = NOW()
		WHERE isbn = ? AND stock + ? >= 0`,
		delta, isbn, delta,
	)
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return port.ErrStockConflict
	}
	return nil
}

func (t *mysqlTx) SetPrice(ctx context.Context, isbn string, price float64) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE books SET price = ?, updated_at = NOW() WHERE isbn = ?`,
		price, isbn,
	)
	if err != nil {
		return fmt.Errorf("set price: %w", err)
	}
	return nil
}

func (t *mysqlTx) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	var c domain.Customer
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, name, email FROM customers WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query customer: %w", err)
	}
	return &c, nil
}

func (t *mysqlTx) InsertOrder(ctx context.Context, customerID int64, status domain.OrderStatus) (int64, error) {
	result, err := t.tx.ExecContext(ctx,
		`INSERT INTO orders (customer_id, status) VALUES (?, ?)`,
		customerID, status,
	)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("order id: %w", err)
	}
	return id, nil
}

func (t *mysqlTx) InsertOrderItem(ctx context.Context, item domain.OrderItem) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO order_items (order_id, isbn, qty, unit_price) VALUES (?, ?, ?, ?)`,
		item.OrderID, item.ISBN, item.Qty, item.UnitPrice,
	)
	if err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}
	return nil
}

func (t *mysqlTx) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	var o domain.Order
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, customer_id, status, created_at FROM orders WHERE id = ?`, id,
	).Scan(&o.ID, &o.CustomerID, &o.Status, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	return &o, nil
}

func (t *mysqlTx) ListOrderLines(ctx context.Context, orderID int64) ([]domain.OrderLine, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT oi.isbn, b.title, oi.qty, oi.unit_price
		FROM order_items oi
		JOIN books b ON b.isbn = oi.isbn
		WHERE oi.order_id = ?`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var out []domain.OrderLine
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ISBN, &l.Title, &l.Qty, &l.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (t *mysqlTx) InventoryTotals(ctx context.Context) (int, int, error) {
	var titles, stock int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(stock), 0) FROM books`,
	).Scan(&titles, &stock)
	if err != nil {
		return 0, 0, fmt.Errorf("inventory totals: %w", err)
	}
	return titles, stock, nil
}

func (t *mysqlTx) ListLowStock(ctx context.Context, threshold, limit int) ([]domain.Book, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE stock <= ? ORDER BY stock ASC, title LIMIT ?`,
		threshold, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("low stock: %w", err)
	}
	defer rows.Close()

	return collectBooks(rows)
}

func (t *mysqlTx) AppendToolCall(ctx context.Context, sessionID, name string, args, result []byte) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO tool_calls (session_id, name, args_json, result_json) VALUES (?, ?, ?, ?)`,
		sessionID, name, args, result,
	)
	if err != nil {
		return fmt.Errorf("append tool call: %w", err)
	}
	return nil
}

// --- conversation repository ---

func (m *MySQLAdapter) AppendMessage(ctx context.Context, sessionID, role, content string) error {
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO messages (session_id, role, content) VALUES (?, ?, ?)`,
		sessionID, role, content,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) ListMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	return m.queryMessages(ctx,
		`SELECT id, session_id, role, content, created_at
		 FROM messages WHERE session_id = ? ORDER BY id ASC`,
		sessionID)
}

func (m *MySQLAdapter) History(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	return m.queryMessages(ctx,
		`SELECT id, session_id, role, content, created_at
		 FROM messages WHERE session_id = ? ORDER BY id ASC LIMIT ?`,
		sessionID, limit)
}

func (m *MySQLAdapter) queryMessages(ctx context.Context, query string, args ...any) ([]domain.Message, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (m *MySQLAdapter) ListSessions(ctx context.Context) ([]domain.Session, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT session_id, MAX(created_at) AS last_time
		FROM messages GROUP BY session_id ORDER BY last_time DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.ID, &s.LastTime); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (m *MySQLAdapter) ListToolCalls(ctx context.Context, sessionID string) ([]domain.ToolCall, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, session_id, name, args_json, result_json, created_at
		FROM tool_calls WHERE session_id = ? ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query tool calls: %w", err)
	}
	defer rows.Close()

	var out []domain.ToolCall
	for rows.Next() {
		var tc domain.ToolCall
		if err := rows.Scan(&tc.ID, &tc.SessionID, &tc.Name, &tc.Args, &tc.Result, &tc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tool call: %w", err)
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}
