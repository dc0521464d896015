// Package thread nests a post's replies under their top-level comments.
package thread

import "threadline/internal/models"

// Thread is one discussion: a top-level comment and its replies.
type Thread struct {
	models.Comment
	Replies []models.Comment `json:"replies"`
}

// Assemble attaches each reply to its parent in O(len(top)+len(replies)).
// top is expected newest-first and replies oldest-first; both orders are
// kept. Replies whose parent is not in top are dropped, so a parent that is
// hidden or already deleted hides its replies too.
func Assemble(top, replies []models.Comment) []Thread {
	byParent := make(map[string][]models.Comment, len(top))
	for _, r := range replies {
		if r.ParentCommentID == nil {
			continue
		}
		byParent[*r.ParentCommentID] = append(byParent[*r.ParentCommentID], r)
	}

	threads := make([]Thread, 0, len(top))
	for _, c := range top {
		rs := byParent[c.ID]
		if rs == nil {
			rs = []models.Comment{}
		}
		threads = append(threads, Thread{Comment: c, Replies: rs})
	}
	return threads
}

// ParentIDs collects the ids to batch-load replies for.
func ParentIDs(top []models.Comment) []string {
	ids := make([]string, 0, len(top))
	for _, c := range top {
		ids = append(ids, c.ID)
	}
	return ids
}

// Count is the number of comments across all threads.
func Count(threads []Thread) int {
	n := len(threads)
	for _, t := range threads {
		n += len(t.Replies)
	}
	return n
}
