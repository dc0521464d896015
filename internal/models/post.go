package models

import (
	"time"
)

const (
	PostStatusDraft     = "draft"
	PostStatusPublished = "published"
)

// Post is owned by the article subsystem; comments only read ID, UserID and
// Status.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"userId"` // author
	Title     string    `gorm:"not null" json:"title"`
	Status    string    `gorm:"size:20;not null;default:'draft';index" json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Post) IsPublished() bool {
	return p.Status == PostStatusPublished
}
