package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"threadline/internal/db"
	"threadline/internal/models"
	"threadline/internal/moderation"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// 每个测试独立的内存库
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Migrate(conn, true); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func seedComment(t *testing.T, s *GormComments, postID uint, parent *string, createdAt time.Time, flags moderation.Flags) models.Comment {
	t.Helper()
	c := models.Comment{
		ID:              uuid.NewString(),
		Content:         "hello",
		AuthorID:        1,
		PostID:          postID,
		ParentCommentID: parent,
		IsApproved:      flags.IsApproved,
		IsSpam:          flags.IsSpam,
		CreatedAt:       createdAt,
	}
	if err := s.Create(context.Background(), &c); err != nil {
		t.Fatalf("create comment: %v", err)
	}
	return c
}

var approved = moderation.Flags{IsApproved: true}

func TestListTopLevelOrderAndVisibility(t *testing.T) {
	s := NewCommentStore(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	older := seedComment(t, s, 1, nil, base, approved)
	newer := seedComment(t, s, 1, nil, base.Add(time.Minute), approved)
	seedComment(t, s, 1, nil, base.Add(2*time.Minute), moderation.Flags{})
	seedComment(t, s, 1, nil, base.Add(3*time.Minute), moderation.Flags{IsSpam: true})
	seedComment(t, s, 2, nil, base, approved)
	seedComment(t, s, 1, &older.ID, base.Add(time.Hour), approved)

	got, err := s.ListTopLevel(ctx, 1, ListOptions{OnlyVisible: true})
	if err != nil {
		t.Fatalf("ListTopLevel: %v", err)
	}
	if len(got) != 2 || got[0].ID != newer.ID || got[1].ID != older.ID {
		t.Fatalf("unexpected visible top-level list: %+v", got)
	}

	all, err := s.ListTopLevel(ctx, 1, ListOptions{})
	if err != nil {
		t.Fatalf("ListTopLevel(all): %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 top-level comments, got %d", len(all))
	}
}

func TestListRepliesForParents(t *testing.T) {
	s := NewCommentStore(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	a := seedComment(t, s, 1, nil, base, approved)
	b := seedComment(t, s, 1, nil, base, approved)
	r2 := seedComment(t, s, 1, &a.ID, base.Add(2*time.Minute), approved)
	r1 := seedComment(t, s, 1, &b.ID, base.Add(time.Minute), approved)
	seedComment(t, s, 1, &a.ID, base.Add(3*time.Minute), moderation.Flags{})

	got, err := s.ListRepliesForParents(ctx, []string{a.ID, b.ID}, ListOptions{OnlyVisible: true})
	if err != nil {
		t.Fatalf("ListRepliesForParents: %v", err)
	}
	if len(got) != 2 || got[0].ID != r1.ID || got[1].ID != r2.ID {
		t.Fatalf("replies should be oldest first: %+v", got)
	}

	none, err := s.ListRepliesForParents(ctx, nil, ListOptions{})
	if err != nil || len(none) != 0 {
		t.Fatalf("empty parent list = %v, %v", none, err)
	}
}

func TestApplyTransitionMatchesModerationApply(t *testing.T) {
	s := NewCommentStore(openTestDB(t))
	ctx := context.Background()

	starts := []moderation.Flags{
		{},
		{IsApproved: true},
		{IsSpam: true},
		// legacy rows written before the flags were reconciled
		{IsApproved: true, IsSpam: true},
	}
	transitions := []moderation.Transition{moderation.Approve, moderation.MarkSpam, moderation.ToggleApproval}

	for _, start := range starts {
		for _, tr := range transitions {
			name := fmt.Sprintf("%s/approved=%v,spam=%v", tr, start.IsApproved, start.IsSpam)
			t.Run(name, func(t *testing.T) {
				c := seedComment(t, s, 1, nil, time.Now(), start)
				got, err := s.ApplyTransition(ctx, c.ID, tr)
				if err != nil {
					t.Fatalf("ApplyTransition: %v", err)
				}
				want, _ := moderation.Apply(start, tr)
				if got.IsApproved != want.IsApproved || got.IsSpam != want.IsSpam {
					t.Fatalf("got approved=%v spam=%v, want %+v", got.IsApproved, got.IsSpam, want)
				}
			})
		}
	}
}

func TestApplyTransitionMissing(t *testing.T) {
	s := NewCommentStore(openTestDB(t))
	_, err := s.ApplyTransition(context.Background(), uuid.NewString(), moderation.Approve)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateWithAuthorCondition(t *testing.T) {
	s := NewCommentStore(openTestDB(t))
	ctx := context.Background()
	c := seedComment(t, s, 1, nil, time.Now(), moderation.Flags{})

	content := "edited"
	edited := true
	stranger := uint(99)
	_, err := s.Update(ctx, c.ID, CommentPatch{Content: &content, IsEdited: &edited, AuthorID: &stranger})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign author update should not match, got %v", err)
	}

	owner := c.AuthorID
	got, err := s.Update(ctx, c.ID, CommentPatch{Content: &content, IsEdited: &edited, AuthorID: &owner})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Content != "edited" || !got.IsEdited {
		t.Fatalf("unexpected comment after update: %+v", got)
	}
}

func TestUpdateRefusesToRaiseFlags(t *testing.T) {
	s := NewCommentStore(openTestDB(t))
	c := seedComment(t, s, 1, nil, time.Now(), moderation.Flags{})
	yes := true
	if _, err := s.Update(context.Background(), c.ID, CommentPatch{IsSpam: &yes}); !errors.Is(err, ErrUnreconciledFlags) {
		t.Fatalf("expected ErrUnreconciledFlags, got %v", err)
	}

	no := false
	ap := seedComment(t, s, 1, nil, time.Now(), approved)
	got, err := s.Update(context.Background(), ap.ID, CommentPatch{IsApproved: &no})
	if err != nil {
		t.Fatalf("clearing approval: %v", err)
	}
	if got.IsApproved || got.IsSpam {
		t.Fatalf("expected pending flags, got %+v", got)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := NewCommentStore(openTestDB(t))
	ctx := context.Background()
	c := seedComment(t, s, 1, nil, time.Now(), approved)

	n, err := s.Delete(ctx, c.ID)
	if err != nil || n != 1 {
		t.Fatalf("first delete = %d, %v", n, err)
	}
	n, err = s.Delete(ctx, c.ID)
	if err != nil || n != 0 {
		t.Fatalf("second delete = %d, %v", n, err)
	}
}

func TestTransactionRollsBack(t *testing.T) {
	s := NewCommentStore(openTestDB(t))
	ctx := context.Background()
	c := seedComment(t, s, 1, nil, time.Now(), approved)

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(tx CommentStore) error {
		if _, err := tx.Delete(ctx, c.ID); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := s.GetByID(ctx, c.ID); err != nil {
		t.Fatalf("comment should survive rollback: %v", err)
	}
}

func TestCountAndListAllWithFilter(t *testing.T) {
	s := NewCommentStore(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		seedComment(t, s, 1, nil, base.Add(time.Duration(i)*time.Minute), approved)
	}
	seedComment(t, s, 1, nil, base, moderation.Flags{})
	seedComment(t, s, 2, nil, base, moderation.Flags{IsSpam: true})

	cases := []struct {
		filter Filter
		want   int64
	}{
		{Filter{}, 5},
		{Filter{State: moderation.Approved}, 3},
		{Filter{State: moderation.Pending}, 1},
		{Filter{State: moderation.Spam}, 1},
		{Filter{PostID: 2}, 1},
		{Filter{PostID: 1, State: moderation.Spam}, 0},
	}
	for _, tc := range cases {
		got, err := s.CountAll(ctx, tc.filter)
		if err != nil {
			t.Fatalf("CountAll(%+v): %v", tc.filter, err)
		}
		if got != tc.want {
			t.Errorf("CountAll(%+v) = %d, want %d", tc.filter, got, tc.want)
		}
	}

	visibleCount, err := s.CountByPost(ctx, 1, ListOptions{OnlyVisible: true})
	if err != nil || visibleCount != 3 {
		t.Fatalf("CountByPost = %d, %v", visibleCount, err)
	}

	page, err := s.ListAll(ctx, Filter{State: moderation.Approved}, Page{Number: 2, Size: 2})
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(page) != 1 || !page[0].CreatedAt.Equal(base) {
		t.Fatalf("second page should hold the oldest approved comment: %+v", page)
	}
}

func TestLeadUpsertRefreshesExpiry(t *testing.T) {
	leads := NewLeadStore(openTestDB(t))
	ctx := context.Background()
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	lead := &models.Lead{
		ID: uuid.NewString(), Name: "Ada", Email: "ada@example.com",
		Source: models.LeadSourceComment, PostID: 7, CommentID: "c1", ExpiresAt: first,
	}
	if err := leads.Upsert(ctx, lead); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	again := &models.Lead{
		ID: uuid.NewString(), Name: "Ada L.", Email: "ada@example.com", Phone: "123",
		Source: models.LeadSourceComment, PostID: 7, CommentID: "c2", ExpiresAt: first.Add(48 * time.Hour),
	}
	if err := leads.Upsert(ctx, again); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := leads.Find(ctx, "ada@example.com", 7)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.ID != lead.ID {
		t.Fatalf("expected the original row to be kept, got id %s", got.ID)
	}
	if !got.ExpiresAt.Equal(again.ExpiresAt) || got.Name != "Ada L." || got.CommentID != "c2" {
		t.Fatalf("lead not refreshed: %+v", got)
	}

	if _, err := leads.Find(ctx, "ada@example.com", 8); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another post, got %v", err)
	}
}

func TestDirectory(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	users := []models.User{
		{Username: "alice", Email: "alice@example.com", Role: models.RoleMember, IsActive: true},
		{Username: "root", Email: "root@example.com", Role: models.RoleAdmin, IsActive: true},
	}
	if err := conn.Create(&users).Error; err != nil {
		t.Fatalf("seed users: %v", err)
	}
	post := models.Post{UserID: users[0].ID, Title: "Hello", Status: models.PostStatusPublished}
	if err := conn.Create(&post).Error; err != nil {
		t.Fatalf("seed post: %v", err)
	}

	d := NewDirectory(conn)
	got, err := d.GetPost(ctx, post.ID)
	if err != nil || !got.IsPublished() {
		t.Fatalf("GetPost = %+v, %v", got, err)
	}
	if _, err := d.GetPost(ctx, post.ID+100); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	byID, err := d.UsersByID(ctx, []uint{users[0].ID, users[1].ID, 999})
	if err != nil {
		t.Fatalf("UsersByID: %v", err)
	}
	if len(byID) != 2 || byID[users[1].ID].Username != "root" {
		t.Fatalf("unexpected users: %+v", byID)
	}
	if _, err := d.GetUser(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}
