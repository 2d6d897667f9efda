package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"

	"github.com/tdnguyen/library-desk/internal/core/domain"
	"github.com/tdnguyen/library-desk/internal/core/service"
)

// CatalogAPI is the slice of the catalog service the tools dispatch to.
type CatalogAPI interface {
	SearchBooks(ctx context.Context, sessionID, query string, by domain.SearchField) (any, error)
	RestockBook(ctx context.Context, sessionID, isbn string, qty int) (any, error)
	UpdatePrice(ctx context.Context, sessionID, isbn string, price float64) (any, error)
	OrderStatus(ctx context.Context, sessionID string, orderID int64) (any, error)
	InventorySummary(ctx context.Context, sessionID string) (any, error)
	CreateOrder(ctx context.Context, sessionID string, customerID int64, items []service.OrderRequestItem) (any, error)
}

// ToolDefinition binds one tool exposed to the model to its handler.
// The session id travels out of band so the model cannot spoof it.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema anthropic.ToolInputSchemaParam
	Function    func(ctx context.Context, sessionID string, input json.RawMessage) (string, error)
}

// GenerateSchema derives the JSON schema for a tool input struct.
func GenerateSchema[T any]() anthropic.ToolInputSchemaParam {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return anthropic.ToolInputSchemaParam{
		Properties: schema.Properties,
	}
}

type FindBooksInput struct {
	Q  string `json:"q" jsonschema_description:"Substring to match against the chosen field."`
	By string `json:"by,omitempty" jsonschema_description:"Field to search: title or author (default title)."`
}

type CreateOrderInput struct {
	CustomerID int64                      `json:"customer_id" jsonschema_description:"Id of the customer placing the order."`
	Items      []service.OrderRequestItem `json:"items" jsonschema_description:"Books to order, each with isbn and qty."`
}

type RestockBookInput struct {
	ISBN string `json:"isbn" jsonschema_description:"ISBN of the book to restock; hyphens and spaces are ignored."`
	Qty  int    `json:"qty" jsonschema_description:"Copies to add; must be positive."`
}

type UpdatePriceInput struct {
	ISBN  string  `json:"isbn" jsonschema_description:"ISBN of the book to reprice; hyphens and spaces are ignored."`
	Price float64 `json:"price" jsonschema_description:"New price; must not be negative."`
}

type OrderStatusInput struct {
	OrderID int64 `json:"order_id" jsonschema_description:"Id of the order to look up."`
}

type InventorySummaryInput struct{}

var (
	findBooksInputSchema        = GenerateSchema[FindBooksInput]()
	createOrderInputSchema      = GenerateSchema[CreateOrderInput]()
	restockBookInputSchema      = GenerateSchema[RestockBookInput]()
	updatePriceInputSchema      = GenerateSchema[UpdatePriceInput]()
	orderStatusInputSchema      = GenerateSchema[OrderStatusInput]()
	inventorySummaryInputSchema = GenerateSchema[InventorySummaryInput]()
)

// Registry returns the full tool set wired to the catalog API.
func Registry(api CatalogAPI) []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "find_books",
			Description: "Search for books by title or author.",
			InputSchema: findBooksInputSchema,
			Function: func(ctx context.Context, sessionID string, input json.RawMessage) (string, error) {
				var in FindBooksInput
				if err := json.Unmarshal(input, &in); err != nil {
					return "", fmt.Errorf("find_books input: %w", err)
				}
				by := domain.SearchField(in.By)
				if by == "" {
					by = domain.SearchByTitle
				}
				return marshalResult(api.SearchBooks(ctx, sessionID, in.Q, by))
			},
		},
		{
			Name:        "create_order",
			Description: "Create an order for a customer and reduce stock.",
			InputSchema: createOrderInputSchema,
			Function: func(ctx context.Context, sessionID string, input json.RawMessage) (string, error) {
				var in CreateOrderInput
				if err := json.Unmarshal(input, &in); err != nil {
					return "", fmt.Errorf("create_order input: %w", err)
				}
				return marshalResult(api.CreateOrder(ctx, sessionID, in.CustomerID, in.Items))
			},
		},
		{
			Name:        "restock_book",
			Description: "Increase stock for a book.",
			InputSchema: restockBookInputSchema,
			Function: func(ctx context.Context, sessionID string, input json.RawMessage) (string, error) {
				var in RestockBookInput
				if err := json.Unmarshal(input, &in); err != nil {
					return "", fmt.Errorf("restock_book input: %w", err)
				}
				return marshalResult(api.RestockBook(ctx, sessionID, in.ISBN, in.Qty))
			},
		},
		{
			Name:        "update_price",
			Description: "Update the price of a book.",
			InputSchema: updatePriceInputSchema,
			Function: func(ctx context.Context, sessionID string, input json.RawMessage) (string, error) {
				var in UpdatePriceInput
				if err := json.Unmarshal(input, &in); err != nil {
					return "", fmt.Errorf("update_price input: %w", err)
				}
				return marshalResult(api.UpdatePrice(ctx, sessionID, in.ISBN, in.Price))
			},
		},
		{
			Name:        "order_status",
			Description: "Get order status and items.",
			InputSchema: orderStatusInputSchema,
			Function: func(ctx context.Context, sessionID string, input json.RawMessage) (string, error) {
				var in OrderStatusInput
				if err := json.Unmarshal(input, &in); err != nil {
					return "", fmt.Errorf("order_status input: %w", err)
				}
				return marshalResult(api.OrderStatus(ctx, sessionID, in.OrderID))
			},
		},
		{
			Name:        "inventory_summary",
			Description: "Get inventory totals and low-stock titles.",
			InputSchema: inventorySummaryInputSchema,
			Function: func(ctx context.Context, sessionID string, input json.RawMessage) (string, error) {
				return marshalResult(api.InventorySummary(ctx, sessionID))
			},
		},
	}
}

func marshalResult(result any, err error) (string, error) {
	if err != nil {
		return "", err
	}
	b, merr := json.Marshal(result)
	if merr != nil {
		return "", fmt.Errorf("marshal tool result: %w", merr)
	}
	return string(b), nil
}
