package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tdnguyen/library-desk/internal/core/domain"
	"github.com/tdnguyen/library-desk/internal/port"
)

// historyWindow bounds the chat history handed to the agent.
const historyWindow = 30

const emptyReplyFallback = "I couldn't produce a response. Try rephrasing your request."

var (
	ErrSessionRequired = errors.New("session_id required")
	ErrMessageRequired = errors.New("message required")
)

// ChatService sequences one chat turn: persist the user message, load
// bounded history, invoke the agent, persist the assistant reply. An
// agent failure becomes a generic reply so the turn still completes
// and the user message stays persisted.
type ChatService struct {
	conv  port.ConversationRepository
	agent port.Agent
}

func NewChatService(conv port.ConversationRepository, agent port.Agent) *ChatService {
	return &ChatService{conv: conv, agent: agent}
}

func (s *ChatService) Turn(ctx context.Context, sessionID, message string) (string, error) {
	if sessionID == "" {
		return "", ErrSessionRequired
	}
	if strings.TrimSpace(message) == "" {
		return "", ErrMessageRequired
	}

	if err := s.conv.AppendMessage(ctx, sessionID, domain.RoleUser, message); err != nil {
		return "", fmt.Errorf("store user message: %w", err)
	}

	reply := s.runAgent(ctx, sessionID, message)

	if err := s.conv.AppendMessage(ctx, sessionID, domain.RoleAssistant, reply); err != nil {
		return "", fmt.Errorf("store assistant message: %w", err)
	}
	return reply, nil
}

func (s *ChatService) runAgent(ctx context.Context, sessionID, message string) string {
	history, err := s.conv.History(ctx, sessionID, historyWindow)
	if err != nil {
		return failureReply(err)
	}

	// The agent only sees user/assistant turns.
	turns := history[:0:0]
	for _, m := range history {
		if m.Role == domain.RoleUser || m.Role == domain.RoleAssistant {
			turns = append(turns, m)
		}
	}
	// The message for this turn was already persisted above and is
	// sent to the agent separately; keep it out of the history.
	if n := len(turns); n > 0 && turns[n-1].Role == domain.RoleUser && turns[n-1].Content == message {
		turns = turns[:n-1]
	}

	reply, err := s.agent.Reply(ctx, sessionID, turns, message)
	if err != nil {
		return failureReply(err)
	}
	if strings.TrimSpace(reply) == "" {
		return emptyReplyFallback
	}
	return strings.TrimSpace(reply)
}

func failureReply(err error) string {
	return fmt.Sprintf("Sorry - something went wrong while processing that: %v", err)
}
