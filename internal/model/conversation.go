package model

import "time"

// Conversation is a single chat exchange. Items are immutable once created,
// except that an empty draft created via the "new" flow may be filled in by a
// follow-up append carrying the same id.
type Conversation struct {
	ID        string    `json:"id" gorm:"primaryKey;size:64"`
	Title     string    `json:"title" gorm:"size:255"`
	UserText  string    `json:"user" gorm:"type:text"`
	AIText    string    `json:"ai" gorm:"type:text"`
	CreatedAt time.Time `json:"ts"`
}
