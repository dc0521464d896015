package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"threadline/internal/models"
)

// Directory reads posts and users. Both tables are owned elsewhere; this
// service never writes them.
type Directory struct {
	db *gorm.DB
}

func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

func (d *Directory) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := d.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &post, nil
}

func (d *Directory) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := d.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// UsersByID loads every listed user in one query. Unknown ids are absent
// from the result.
func (d *Directory) UsersByID(ctx context.Context, ids []uint) (map[uint]models.User, error) {
	result := make(map[uint]models.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var users []models.User
	if err := d.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}
