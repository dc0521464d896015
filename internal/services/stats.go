package services

import (
	"context"

	"threadline/internal/guard"
	"threadline/internal/models"
	"threadline/internal/moderation"
	"threadline/internal/store"
)

const recentLimit = 5

// Stats is the moderation dashboard summary.
type Stats struct {
	Total    int64            `json:"total"`
	Approved int64            `json:"approved"`
	Pending  int64            `json:"pending"`
	Spam     int64            `json:"spam"`
	Recent   []models.Comment `json:"recent"`
}

type StatsService struct {
	comments store.CommentStore
	users    store.UserDirectory
}

func NewStatsService(comments store.CommentStore, users store.UserDirectory) *StatsService {
	return &StatsService{comments: comments, users: users}
}

// Summary counts comments by state and lists the newest ones whatever their
// state. A non-zero postID narrows everything to that post.
func (s *StatsService) Summary(ctx context.Context, actor *guard.Actor, postID uint) (*Stats, error) {
	if err := guard.CanPerform(actor, guard.ActionViewStats, guard.Target{}).Err(); err != nil {
		return nil, err
	}

	var (
		stats Stats
		err   error
	)
	if postID != 0 {
		stats.Total, err = s.comments.CountByPost(ctx, postID, store.ListOptions{})
	} else {
		stats.Total, err = s.comments.CountAll(ctx, store.Filter{})
	}
	if err != nil {
		return nil, internal("Failed to count comments", err)
	}

	for state, dst := range map[moderation.State]*int64{
		moderation.Approved: &stats.Approved,
		moderation.Pending:  &stats.Pending,
		moderation.Spam:     &stats.Spam,
	} {
		if *dst, err = s.comments.CountAll(ctx, store.Filter{State: state, PostID: postID}); err != nil {
			return nil, internal("Failed to count comments", err)
		}
	}

	recent, err := s.comments.ListAll(ctx, store.Filter{PostID: postID}, store.Page{Number: 1, Size: recentLimit})
	if err != nil {
		return nil, internal("Failed to load recent comments", err)
	}
	if recent == nil {
		recent = []models.Comment{}
	}
	if err := attachAuthors(ctx, s.users, recent); err != nil {
		return nil, internal("Failed to load comment authors", err)
	}
	stats.Recent = recent
	return &stats, nil
}
