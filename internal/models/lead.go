package models

import (
	"time"
)

const LeadSourceComment = "comment"

// Lead is a contact record derived from a non-anonymous comment. One row per
// (email, post); resubmission refreshes ExpiresAt.
type Lead struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	Email     string    `gorm:"size:254;not null;uniqueIndex:idx_leads_email_post" json:"email"`
	Phone     string    `gorm:"size:40" json:"phone,omitempty"`
	Source    string    `gorm:"size:20;not null;default:'comment'" json:"source"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_leads_email_post" json:"postId"`
	CommentID string    `gorm:"size:36;not null" json:"commentId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `gorm:"index" json:"expiresAt"`
}
