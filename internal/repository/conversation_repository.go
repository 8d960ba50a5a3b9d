package repository

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "aizeeno/internal/errors"
	"aizeeno/internal/model"
)

// ConversationRepository is a newest-first collection of chat exchanges
// keyed by id. Appending an item whose id already exists replaces the stored
// item, so a draft created via the "new" flow can be filled in by the
// follow-up exchange; ids stay unique.
type ConversationRepository interface {
	Append(ctx context.Context, item *model.Conversation) error
	List(ctx context.Context) ([]model.Conversation, error)
	Get(ctx context.Context, id string) (*model.Conversation, error)
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository builds a GORM-backed conversation log.
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Append(ctx context.Context, item *model.Conversation) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(item).Error
}

func (r *conversationRepository) List(ctx context.Context) ([]model.Conversation, error) {
	var items []model.Conversation
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *conversationRepository) Get(ctx context.Context, id string) (*model.Conversation, error) {
	var item model.Conversation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// memoryConversationRepository keeps the log in process memory, newest first.
type memoryConversationRepository struct {
	mu    sync.RWMutex
	items []model.Conversation
}

// NewMemoryConversationRepository builds the in-memory conversation log.
func NewMemoryConversationRepository() ConversationRepository {
	return &memoryConversationRepository{}
}

func (r *memoryConversationRepository) Append(ctx context.Context, item *model.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == item.ID {
			r.items = append(r.items[:i], r.items[i+1:]...)
			break
		}
	}
	r.items = append([]model.Conversation{*item}, r.items...)
	return nil
}

func (r *memoryConversationRepository) List(ctx context.Context) ([]model.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Conversation, len(r.items))
	copy(out, r.items)
	return out, nil
}

func (r *memoryConversationRepository) Get(ctx context.Context, id string) (*model.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.items {
		if r.items[i].ID == id {
			clone := r.items[i]
			return &clone, nil
		}
	}
	return nil, apperrors.ErrNotFound
}
