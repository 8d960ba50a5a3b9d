package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"aizeeno/internal/model"
	"aizeeno/internal/repository"
)

const titleMaxRunes = 40

// ErrEmptyConversation is returned when an append carries no text at all.
var ErrEmptyConversation = fmt.Errorf("empty conversation")

// ConversationService manages the append-only chat log.
type ConversationService interface {
	// Append records an exchange. The id is caller-assigned when provided,
	// server-assigned otherwise; an empty title is derived from the user text.
	Append(ctx context.Context, id, title, userText, aiText string) (*model.Conversation, error)
	// NewDraft creates an empty item to be filled in by a follow-up append.
	NewDraft(ctx context.Context) (*model.Conversation, error)
	List(ctx context.Context) ([]model.Conversation, error)
	Get(ctx context.Context, id string) (*model.Conversation, error)
}

type conversationService struct {
	repo repository.ConversationRepository
}

// NewConversationService builds a ConversationService.
func NewConversationService(repo repository.ConversationRepository) ConversationService {
	return &conversationService{repo: repo}
}

func (s *conversationService) Append(ctx context.Context, id, title, userText, aiText string) (*model.Conversation, error) {
	if userText == "" && aiText == "" {
		return nil, ErrEmptyConversation
	}
	if id == "" {
		id = uuid.NewString()
	}
	if title == "" {
		title = deriveTitle(userText)
	}

	item := &model.Conversation{
		ID:        id,
		Title:     title,
		UserText:  userText,
		AIText:    aiText,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Append(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *conversationService) NewDraft(ctx context.Context) (*model.Conversation, error) {
	item := &model.Conversation{
		ID:        uuid.NewString(),
		Title:     "New chat",
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Append(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *conversationService) List(ctx context.Context) ([]model.Conversation, error) {
	return s.repo.List(ctx)
}

func (s *conversationService) Get(ctx context.Context, id string) (*model.Conversation, error) {
	return s.repo.Get(ctx, id)
}

func deriveTitle(userText string) string {
	runes := []rune(userText)
	if len(runes) <= titleMaxRunes {
		return userText
	}
	return string(runes[:titleMaxRunes]) + "..."
}
