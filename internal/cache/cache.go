// Package cache stores derived read views. Entries are JSON encoded so the
// in-process and Redis backends behave the same.
package cache

import (
	"context"
	"fmt"
	"time"
)

type Cache interface {
	// Get decodes the entry for key into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string, any) (bool, error) {
	return false, nil
}

func (Noop) Set(context.Context, string, any, time.Duration) error {
	return nil
}

func (Noop) Delete(context.Context, ...string) error {
	return nil
}

// ThreadGenKey holds the current generation of a post's thread view.
// Writers replace the generation instead of deleting the view, so a fill
// computed before a write lands under a key no reader asks for again.
func ThreadGenKey(postID uint) string {
	return fmt.Sprintf("threadline:thread:gen:%d", postID)
}

// ThreadKey is the cache key of a post's public thread view at generation gen.
func ThreadKey(postID uint, gen string) string {
	return fmt.Sprintf("threadline:thread:post:%d:%s", postID, gen)
}
