package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"threadline/internal/models"
	"threadline/internal/moderation"
)

type GormComments struct {
	db  *gorm.DB
	now func() time.Time
}

func NewCommentStore(db *gorm.DB) *GormComments {
	return &GormComments{db: db, now: time.Now}
}

func (s *GormComments) Create(ctx context.Context, c *models.Comment) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

func (s *GormComments) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	var c models.Comment
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return &c, nil
}

func (s *GormComments) ListTopLevel(ctx context.Context, postID uint, opts ListOptions) ([]models.Comment, error) {
	var comments []models.Comment
	q := s.db.WithContext(ctx).
		Where("post_id = ? AND parent_comment_id IS NULL", postID)
	if opts.OnlyVisible {
		q = visible(q)
	}
	if err := q.Order("created_at DESC, id DESC").Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("list top-level comments: %w", err)
	}
	return comments, nil
}

func (s *GormComments) ListRepliesForParents(ctx context.Context, parentIDs []string, opts ListOptions) ([]models.Comment, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	var replies []models.Comment
	q := s.db.WithContext(ctx).Where("parent_comment_id IN ?", parentIDs)
	if opts.OnlyVisible {
		q = visible(q)
	}
	if err := q.Order("created_at ASC, id ASC").Find(&replies).Error; err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	return replies, nil
}

func (s *GormComments) Update(ctx context.Context, id string, patch CommentPatch) (*models.Comment, error) {
	if (patch.IsApproved != nil && *patch.IsApproved) || (patch.IsSpam != nil && *patch.IsSpam) {
		return nil, ErrUnreconciledFlags
	}

	updates := map[string]interface{}{"updated_at": s.now()}
	if patch.Content != nil {
		updates["content"] = *patch.Content
	}
	if patch.IsEdited != nil {
		updates["is_edited"] = *patch.IsEdited
	}
	if patch.IsApproved != nil {
		updates["is_approved"] = *patch.IsApproved
	}
	if patch.IsSpam != nil {
		updates["is_spam"] = *patch.IsSpam
	}

	q := s.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id)
	if patch.AuthorID != nil {
		q = q.Where("author_id = ?", *patch.AuthorID)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("update comment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

// ApplyTransition writes a moderation transition as a single UPDATE. The
// column expressions mirror moderation.Apply; in SQL every right-hand side
// sees the pre-update row, so a toggle reads the old is_approved.
func (s *GormComments) ApplyTransition(ctx context.Context, id string, t moderation.Transition) (*models.Comment, error) {
	updates := map[string]interface{}{"updated_at": s.now()}
	switch t {
	case moderation.Approve:
		updates["is_approved"] = true
		updates["is_spam"] = false
	case moderation.MarkSpam:
		updates["is_approved"] = false
		updates["is_spam"] = true
	case moderation.ToggleApproval:
		updates["is_approved"] = gorm.Expr("NOT is_approved")
		updates["is_spam"] = gorm.Expr("CASE WHEN is_approved THEN is_spam ELSE ? END", false)
	default:
		return nil, fmt.Errorf("unknown moderation transition %q", t)
	}

	res := s.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("apply %s: %w", t, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *GormComments) Delete(ctx context.Context, id string) (int64, error) {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Comment{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete comment: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *GormComments) CountByPost(ctx context.Context, postID uint, opts ListOptions) (int64, error) {
	var count int64
	q := s.db.WithContext(ctx).Model(&models.Comment{}).Where("post_id = ?", postID)
	if opts.OnlyVisible {
		q = visible(q)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count comments by post: %w", err)
	}
	return count, nil
}

func (s *GormComments) CountAll(ctx context.Context, filter Filter) (int64, error) {
	var count int64
	q := applyFilter(s.db.WithContext(ctx).Model(&models.Comment{}), filter)
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return count, nil
}

func (s *GormComments) ListAll(ctx context.Context, filter Filter, page Page) ([]models.Comment, error) {
	var comments []models.Comment
	q := applyFilter(s.db.WithContext(ctx), filter).Order("created_at DESC, id DESC")
	if page.Size > 0 {
		q = q.Offset(page.Offset()).Limit(page.Size)
	}
	if err := q.Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

func (s *GormComments) Transaction(ctx context.Context, fn func(tx CommentStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormComments{db: tx, now: s.now})
	})
}

func visible(q *gorm.DB) *gorm.DB {
	return q.Where("is_approved = ? AND is_spam = ?", true, false)
}

func applyFilter(q *gorm.DB, filter Filter) *gorm.DB {
	if filter.PostID != 0 {
		q = q.Where("post_id = ?", filter.PostID)
	}
	switch filter.State {
	case moderation.Pending:
		q = q.Where("is_approved = ? AND is_spam = ?", false, false)
	case moderation.Approved:
		q = visible(q)
	case moderation.Spam:
		q = q.Where("is_spam = ?", true)
	}
	return q
}
