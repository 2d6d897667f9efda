package domain

import (
	"encoding/json"
	"time"
)

// ToolCall is one append-only audit record: exactly one per catalog
// operation invocation, committed in the same transaction as the
// operation's own reads and writes. Arguments and results are kept as
// opaque JSON so the trail stays schema-agnostic.
type ToolCall struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"session_id,omitempty"`
	Name      string          `json:"name"`
	Args      json.RawMessage `json:"args_json"`
	Result    json.RawMessage `json:"result_json"`
	CreatedAt time.Time       `json:"created_at"`
}
