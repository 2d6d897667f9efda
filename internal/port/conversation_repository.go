package port

import (
	"context"

	"github.com/tdnguyen/library-desk/internal/core/domain"
)

// ConversationRepository persists chat turns. Messages are append-only
// and ordered by insertion.
type ConversationRepository interface {
	AppendMessage(ctx context.Context, sessionID, role, content string) error

	ListMessages(ctx context.Context, sessionID string) ([]domain.Message, error)

	// History returns at most limit messages in insertion order,
	// used to rebuild conversational context.
	History(ctx context.Context, sessionID string, limit int) ([]domain.Message, error)

	// ListSessions returns known session ids with their latest
	// message time, most recent first.
	ListSessions(ctx context.Context) ([]domain.Session, error)

	ListToolCalls(ctx context.Context, sessionID string) ([]domain.ToolCall, error)
}
