package services

import (
	"context"

	"threadline/internal/models"
	"threadline/internal/store"
)

// attachAuthors fills Author on every comment with one directory lookup.
// Authors that no longer exist are left nil.
func attachAuthors(ctx context.Context, users store.UserDirectory, lists ...[]models.Comment) error {
	seen := make(map[uint]struct{})
	var ids []uint
	for _, list := range lists {
		for i := range list {
			if _, ok := seen[list[i].AuthorID]; ok {
				continue
			}
			seen[list[i].AuthorID] = struct{}{}
			ids = append(ids, list[i].AuthorID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	byID, err := users.UsersByID(ctx, ids)
	if err != nil {
		return err
	}
	for _, list := range lists {
		for i := range list {
			if u, ok := byID[list[i].AuthorID]; ok {
				list[i].Author = u.Summary()
			}
		}
	}
	return nil
}

func redactAll(list []models.Comment) {
	for i := range list {
		list[i] = list[i].Redacted()
	}
}
