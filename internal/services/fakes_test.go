package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"threadline/internal/cache"
	"threadline/internal/guard"
	"threadline/internal/models"
	"threadline/internal/moderation"
	"threadline/internal/store"
)

type fakeComments struct {
	rows         map[string]models.Comment
	replyQueries int
	failDelete   error
}

func newFakeComments() *fakeComments {
	return &fakeComments{rows: map[string]models.Comment{}}
}

func (f *fakeComments) Create(_ context.Context, c *models.Comment) error {
	f.rows[c.ID] = *c
	return nil
}

func (f *fakeComments) GetByID(_ context.Context, id string) (*models.Comment, error) {
	c, ok := f.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (f *fakeComments) ListTopLevel(_ context.Context, postID uint, opts store.ListOptions) ([]models.Comment, error) {
	var out []models.Comment
	for _, c := range f.rows {
		if c.PostID == postID && c.ParentCommentID == nil && (!opts.OnlyVisible || c.Visible()) {
			out = append(out, c)
		}
	}
	sortComments(out, true)
	return out, nil
}

func (f *fakeComments) ListRepliesForParents(_ context.Context, parentIDs []string, opts store.ListOptions) ([]models.Comment, error) {
	f.replyQueries++
	want := make(map[string]bool, len(parentIDs))
	for _, id := range parentIDs {
		want[id] = true
	}
	var out []models.Comment
	for _, c := range f.rows {
		if c.ParentCommentID != nil && want[*c.ParentCommentID] && (!opts.OnlyVisible || c.Visible()) {
			out = append(out, c)
		}
	}
	sortComments(out, false)
	return out, nil
}

func (f *fakeComments) Update(_ context.Context, id string, patch store.CommentPatch) (*models.Comment, error) {
	if (patch.IsApproved != nil && *patch.IsApproved) || (patch.IsSpam != nil && *patch.IsSpam) {
		return nil, store.ErrUnreconciledFlags
	}
	c, ok := f.rows[id]
	if !ok || (patch.AuthorID != nil && c.AuthorID != *patch.AuthorID) {
		return nil, store.ErrNotFound
	}
	if patch.Content != nil {
		c.Content = *patch.Content
	}
	if patch.IsEdited != nil {
		c.IsEdited = *patch.IsEdited
	}
	if patch.IsApproved != nil {
		c.IsApproved = *patch.IsApproved
	}
	if patch.IsSpam != nil {
		c.IsSpam = *patch.IsSpam
	}
	f.rows[id] = c
	return &c, nil
}

func (f *fakeComments) ApplyTransition(_ context.Context, id string, t moderation.Transition) (*models.Comment, error) {
	c, ok := f.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	next, err := moderation.Apply(moderation.Flags{IsApproved: c.IsApproved, IsSpam: c.IsSpam}, t)
	if err != nil {
		return nil, err
	}
	c.IsApproved, c.IsSpam = next.IsApproved, next.IsSpam
	f.rows[id] = c
	return &c, nil
}

func (f *fakeComments) Delete(_ context.Context, id string) (int64, error) {
	if f.failDelete != nil {
		return 0, f.failDelete
	}
	if _, ok := f.rows[id]; !ok {
		return 0, nil
	}
	delete(f.rows, id)
	return 1, nil
}

func (f *fakeComments) CountByPost(_ context.Context, postID uint, opts store.ListOptions) (int64, error) {
	var n int64
	for _, c := range f.rows {
		if c.PostID == postID && (!opts.OnlyVisible || c.Visible()) {
			n++
		}
	}
	return n, nil
}

func (f *fakeComments) matching(filter store.Filter) []models.Comment {
	var out []models.Comment
	for _, c := range f.rows {
		if filter.PostID != 0 && c.PostID != filter.PostID {
			continue
		}
		if filter.State != "" && (moderation.Flags{IsApproved: c.IsApproved, IsSpam: c.IsSpam}).State() != filter.State {
			continue
		}
		out = append(out, c)
	}
	sortComments(out, true)
	return out
}

func (f *fakeComments) CountAll(_ context.Context, filter store.Filter) (int64, error) {
	return int64(len(f.matching(filter))), nil
}

func (f *fakeComments) ListAll(_ context.Context, filter store.Filter, page store.Page) ([]models.Comment, error) {
	all := f.matching(filter)
	start := page.Offset()
	if start >= len(all) {
		return nil, nil
	}
	end := start + page.Size
	if page.Size <= 0 || end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

// Transaction restores the previous rows when fn fails.
func (f *fakeComments) Transaction(_ context.Context, fn func(tx store.CommentStore) error) error {
	snapshot := make(map[string]models.Comment, len(f.rows))
	for k, v := range f.rows {
		snapshot[k] = v
	}
	if err := fn(f); err != nil {
		f.rows = snapshot
		return err
	}
	return nil
}

func sortComments(list []models.Comment, newestFirst bool) {
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if newestFirst {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if newestFirst {
			return a.ID > b.ID
		}
		return a.ID < b.ID
	})
}

type fakeDirectory struct {
	posts       map[uint]*models.Post
	users       map[uint]models.User
	userQueries int
}

func (d *fakeDirectory) GetPost(_ context.Context, id uint) (*models.Post, error) {
	p, ok := d.posts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (d *fakeDirectory) GetUser(_ context.Context, id uint) (*models.User, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (d *fakeDirectory) UsersByID(_ context.Context, ids []uint) (map[uint]models.User, error) {
	d.userQueries++
	out := make(map[uint]models.User, len(ids))
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

type fakeLeads struct {
	rows map[string]models.Lead
	err  error
}

func (l *fakeLeads) Upsert(_ context.Context, lead *models.Lead) error {
	if l.err != nil {
		return l.err
	}
	key := fmt.Sprintf("%s|%d", lead.Email, lead.PostID)
	if existing, ok := l.rows[key]; ok {
		existing.Name = lead.Name
		existing.Phone = lead.Phone
		existing.CommentID = lead.CommentID
		existing.ExpiresAt = lead.ExpiresAt
		l.rows[key] = existing
		return nil
	}
	l.rows[key] = *lead
	return nil
}

func (l *fakeLeads) Find(_ context.Context, email string, postID uint) (*models.Lead, error) {
	lead, ok := l.rows[fmt.Sprintf("%s|%d", email, postID)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &lead, nil
}

var errStoreDown = errors.New("store unavailable")

// Fixture ids.
const (
	adminID      uint = 1
	aliceID      uint = 2
	bobID        uint = 3
	postAuthorID uint = 4
	mutedID      uint = 5

	publishedPost uint = 10
	draftPost     uint = 11
	otherPost     uint = 12
)

type fixture struct {
	svc      *CommentService
	stats    *StatsService
	comments *fakeComments
	dir      *fakeDirectory
	leads    *fakeLeads
	capture  *LeadCapture
	clock    time.Time
}

func (fx *fixture) tick() time.Time {
	fx.clock = fx.clock.Add(time.Second)
	return fx.clock
}

func newFixture(c cache.Cache) *fixture {
	future := time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)
	fx := &fixture{
		comments: newFakeComments(),
		dir: &fakeDirectory{
			posts: map[uint]*models.Post{
				publishedPost: {ID: publishedPost, UserID: postAuthorID, Status: models.PostStatusPublished},
				draftPost:     {ID: draftPost, UserID: postAuthorID, Status: models.PostStatusDraft},
				otherPost:     {ID: otherPost, UserID: postAuthorID, Status: models.PostStatusPublished},
			},
			users: map[uint]models.User{
				adminID:      {ID: adminID, Username: "root", Avatar: "🐼", Role: models.RoleAdmin, IsActive: true},
				aliceID:      {ID: aliceID, Username: "alice", Avatar: "🌱", Role: models.RoleMember, IsActive: true},
				bobID:        {ID: bobID, Username: "bob", Avatar: "🦊", Role: models.RoleMember, IsActive: true},
				postAuthorID: {ID: postAuthorID, Username: "writer", Role: models.RoleMember, IsActive: true},
				mutedID:      {ID: mutedID, Username: "quiet", Role: models.RoleMember, IsActive: true, Status: models.UserStatusMuted, PunishExpires: &future},
			},
		},
		leads: &fakeLeads{rows: map[string]models.Lead{}},
		clock: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	fx.capture = NewLeadCapture(fx.leads, 0, zap.NewNop())
	fx.capture.now = func() time.Time { return fx.clock }
	fx.svc = NewCommentService(CommentDeps{
		Comments: fx.comments,
		Posts:    fx.dir,
		Users:    fx.dir,
		Leads:    fx.capture,
		Cache:    c,
		CacheTTL: time.Minute,
		Logger:   zap.NewNop(),
	})
	fx.svc.now = fx.tick
	fx.stats = NewStatsService(fx.comments, fx.dir)
	return fx
}

func (fx *fixture) actor(id uint) *guard.Actor {
	u := fx.dir.users[id]
	return guard.ActorFromUser(&u, fx.clock)
}
