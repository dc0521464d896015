// Package store persists comments and leads with gorm, and reads the posts
// and users owned by neighbouring subsystems.
package store

import (
	"context"
	"errors"

	"threadline/internal/models"
	"threadline/internal/moderation"
)

var ErrNotFound = errors.New("record not found")

// ErrUnreconciledFlags is returned when a plain update tries to raise
// isApproved or isSpam; those go through ApplyTransition.
var ErrUnreconciledFlags = errors.New("approval and spam can only be raised by a moderation transition")

type ListOptions struct {
	OnlyVisible bool
}

// Filter narrows admin listings and counts. Zero values match everything.
type Filter struct {
	State  moderation.State
	PostID uint
}

type Page struct {
	Number int // 1-based
	Size   int
}

func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// CommentPatch is applied as one conditional UPDATE. When AuthorID is set the
// row only changes if it still belongs to that author.
type CommentPatch struct {
	Content    *string
	IsEdited   *bool
	IsApproved *bool
	IsSpam     *bool
	AuthorID   *uint
}

type CommentStore interface {
	Create(ctx context.Context, c *models.Comment) error
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	// ListTopLevel returns a post's top-level comments, newest first.
	ListTopLevel(ctx context.Context, postID uint, opts ListOptions) ([]models.Comment, error)
	// ListRepliesForParents returns the replies of all parents in one query,
	// oldest first.
	ListRepliesForParents(ctx context.Context, parentIDs []string, opts ListOptions) ([]models.Comment, error)
	Update(ctx context.Context, id string, patch CommentPatch) (*models.Comment, error)
	ApplyTransition(ctx context.Context, id string, t moderation.Transition) (*models.Comment, error)
	// Delete removes exactly one row and reports how many rows went away, so
	// deleting an already deleted comment is not an error.
	Delete(ctx context.Context, id string) (int64, error)
	CountByPost(ctx context.Context, postID uint, opts ListOptions) (int64, error)
	CountAll(ctx context.Context, filter Filter) (int64, error)
	ListAll(ctx context.Context, filter Filter, page Page) ([]models.Comment, error)
	// Transaction runs fn against a store bound to a single transaction.
	Transaction(ctx context.Context, fn func(tx CommentStore) error) error
}

type LeadStore interface {
	// Upsert inserts the lead or, for an existing (email, post) pair,
	// refreshes its contact details and expiry.
	Upsert(ctx context.Context, lead *models.Lead) error
	Find(ctx context.Context, email string, postID uint) (*models.Lead, error)
}

type PostReader interface {
	GetPost(ctx context.Context, id uint) (*models.Post, error)
}

type UserDirectory interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
	UsersByID(ctx context.Context, ids []uint) (map[uint]models.User, error)
}

var (
	_ CommentStore  = (*GormComments)(nil)
	_ LeadStore     = (*GormLeads)(nil)
	_ PostReader    = (*Directory)(nil)
	_ UserDirectory = (*Directory)(nil)
)
