package shared

import (
	"time"

	"github.com/google/uuid"
)

// Base holds the columns every persisted entity carries
type Base struct {
	ID        uuid.UUID  `json:"id"`
	IsDeleted bool       `json:"is_deleted"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at"`
}

// NewBase returns a Base with a fresh ID and both timestamps set to now
func NewBase(now time.Time) Base {
	created, updated := now, now
	return Base{
		ID:        uuid.New(),
		CreatedAt: &created,
		UpdatedAt: &updated,
	}
}

// Touch sets the updated timestamp
func (b *Base) Touch(now time.Time) {
	b.UpdatedAt = &now
}

// SoftDelete flags the entity as deleted without removing the row
func (b *Base) SoftDelete(now time.Time) {
	b.IsDeleted = true
	b.DeletedAt = &now
	b.UpdatedAt = &now
}
