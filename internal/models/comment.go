package models

import (
	"time"
)

// Comment is a top-level comment (ParentCommentID == nil) or a reply to one.
type Comment struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	Content         string    `gorm:"type:text;not null" json:"content"`
	AuthorID        uint      `gorm:"not null;index" json:"authorId"`
	PostID          uint      `gorm:"not null;index:idx_comments_post_parent" json:"postId"`
	ParentCommentID *string   `gorm:"size:36;index:idx_comments_post_parent" json:"parentCommentId"` // Nullable for top-level comments
	IsApproved      bool      `gorm:"not null;default:false;index" json:"isApproved"`
	IsSpam          bool      `gorm:"not null;default:false;index" json:"isSpam"`
	IsEdited        bool      `gorm:"not null;default:false" json:"isEdited"`
	IPAddress       string    `gorm:"size:64" json:"ipAddress,omitempty"`
	UserAgent       string    `gorm:"size:512" json:"userAgent,omitempty"`
	CreatedAt       time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`

	// 非数据库字段，按批次从用户表填充
	Author *AuthorSummary `gorm:"-" json:"author,omitempty"`
}

// AuthorSummary is the public face of a commenter.
type AuthorSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

func (c *Comment) IsTopLevel() bool {
	return c.ParentCommentID == nil
}

// Visible reports whether the comment may be shown to the public.
func (c *Comment) Visible() bool {
	return c.IsApproved && !c.IsSpam
}

// Redacted returns a copy without provenance fields, for non-admin viewers.
func (c Comment) Redacted() Comment {
	c.IPAddress = ""
	c.UserAgent = ""
	return c
}
