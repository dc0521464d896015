package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"threadline/internal/models"
)

type GormLeads struct {
	db *gorm.DB
}

func NewLeadStore(db *gorm.DB) *GormLeads {
	return &GormLeads{db: db}
}

func (s *GormLeads) Upsert(ctx context.Context, lead *models.Lead) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}, {Name: "post_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "phone", "comment_id", "expires_at"}),
	}).Create(lead).Error
	if err != nil {
		return fmt.Errorf("upsert lead: %w", err)
	}
	return nil
}

func (s *GormLeads) Find(ctx context.Context, email string, postID uint) (*models.Lead, error) {
	var lead models.Lead
	err := s.db.WithContext(ctx).Where("email = ? AND post_id = ?", email, postID).First(&lead).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find lead: %w", err)
	}
	return &lead, nil
}
