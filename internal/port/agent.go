package port

import (
	"context"

	"github.com/tdnguyen/library-desk/internal/core/domain"
)

// Agent produces the assistant reply for one chat turn, invoking zero
// or more catalog tools along the way. The session id is passed
// through for audit attribution only.
type Agent interface {
	Reply(ctx context.Context, sessionID string, history []domain.Message, message string) (string, error)
}
