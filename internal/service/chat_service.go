package service

import (
	"context"

	"aizeeno/internal/chat"
)

// ChatService produces AI replies for user messages.
type ChatService interface {
	Reply(ctx context.Context, message string) (string, error)
}

type chatService struct {
	client chat.Client
}

// NewChatService builds a ChatService over a completion client.
func NewChatService(client chat.Client) ChatService {
	return &chatService{client: client}
}

func (s *chatService) Reply(ctx context.Context, message string) (string, error) {
	return s.client.Complete(ctx, message)
}
