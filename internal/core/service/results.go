package service

import "github.com/tdnguyen/library-desk/internal/core/domain"

// Operation results are plain structs marshaled verbatim into the
// audit log and into tool results. Validation and not-found outcomes
// are results, not errors: they commit together with their audit
// record.

// ErrorResult reports a validation or not-found outcome.
type ErrorResult struct {
	Error string `json:"error"`
}

// InsufficientStockResult identifies the first item of an order whose
// requested quantity exceeds the available stock.
type InsufficientStockResult struct {
	Error          string `json:"error"`
	ISBN           string `json:"isbn"`
	Title          string `json:"title"`
	RequestedQty   int    `json:"requested_qty"`
	AvailableStock int    `json:"available_stock"`
}

// BookInfo is the catalog projection returned by searches and
// inventory summaries.
type BookInfo struct {
	ISBN   string  `json:"isbn"`
	Title  string  `json:"title"`
	Author string  `json:"author"`
	Stock  int     `json:"stock"`
	Price  float64 `json:"price"`
}

type SearchResult struct {
	Matches []BookInfo `json:"matches"`
}

type StockResult struct {
	ISBN     string `json:"isbn"`
	Title    string `json:"title"`
	NewStock int    `json:"new_stock"`
}

type PriceResult struct {
	ISBN     string  `json:"isbn"`
	Title    string  `json:"title"`
	NewPrice float64 `json:"new_price"`
}

type OrderDetail struct {
	Order domain.Order       `json:"order"`
	Items []domain.OrderLine `json:"items"`
}

// StockLevel is the post-decrement stock snapshot returned with a
// created order.
type StockLevel struct {
	ISBN  string `json:"isbn"`
	Title string `json:"title"`
	Stock int    `json:"stock"`
}

type OrderedItem struct {
	ISBN      string  `json:"isbn"`
	Qty       int     `json:"qty"`
	UnitPrice float64 `json:"unit_price"`
	Title     string  `json:"title"`
}

type OrderResult struct {
	OrderID      int64           `json:"order_id"`
	Customer     domain.Customer `json:"customer"`
	Items        []OrderedItem   `json:"items"`
	UpdatedStock []StockLevel    `json:"updated_stock"`
}

type SummaryResult struct {
	TotalTitles       int        `json:"total_titles"`
	TotalStock        int        `json:"total_stock"`
	LowStockThreshold int        `json:"low_stock_threshold"`
	LowStock          []BookInfo `json:"low_stock"`
}

// OrderRequestItem is one requested line of a new order.
type OrderRequestItem struct {
	ISBN string `json:"isbn"`
	Qty  int    `json:"qty"`
}

func bookInfos(books []domain.Book) []BookInfo {
	out := make([]BookInfo, 0, len(books))
	for _, b := range books {
		out = append(out, BookInfo{
			ISBN:   b.ISBN,
			Title:  b.Title,
			Author: b.Author,
			Stock:  b.Stock,
			Price:  b.Price,
		})
	}
	return out
}
