package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"threadline/internal/apperr"
	"threadline/internal/cache"
	"threadline/internal/guard"
	"threadline/internal/models"
	"threadline/internal/moderation"
	"threadline/internal/store"
	"threadline/internal/thread"
	"threadline/internal/utils"
)

// CreateCommentInput is the body of a new comment. IPAddress and UserAgent
// are filled from the request, never from the body.
type CreateCommentInput struct {
	Content         string        `json:"content" validate:"required,min=1,max=2000"`
	ParentCommentID *string       `json:"parentCommentId"`
	Anonymous       bool          `json:"anonymous"`
	Contact         *ContactInput `json:"contact" validate:"-"`
	IPAddress       string        `json:"-"`
	UserAgent       string        `json:"-"`
}

// UpdateCommentInput is a PATCH body. Members may only send Content;
// admins may send any field.
type UpdateCommentInput struct {
	Content    *string `json:"content"`
	IsApproved *bool   `json:"isApproved"`
	IsSpam     *bool   `json:"isSpam"`
}

type contentField struct {
	Content string `json:"content" validate:"required,min=1,max=2000"`
}

// ThreadView is the threaded listing of a post. Count is the number of
// comments in Threads.
type ThreadView struct {
	Threads []thread.Thread `json:"threads"`
	Count   int             `json:"count"`
}

type ListAllQuery struct {
	Status string
	PostID uint
	Page   int
	Limit  int
}

type CommentPage struct {
	Comments    []models.Comment `json:"comments"`
	Total       int64            `json:"total"`
	TotalPages  int              `json:"totalPages"`
	CurrentPage int              `json:"currentPage"`
	Limit       int              `json:"limit"`
}

type CommentDeps struct {
	Comments store.CommentStore
	Posts    store.PostReader
	Users    store.UserDirectory
	Leads    *LeadCapture
	Cache    cache.Cache
	CacheTTL time.Duration
	Logger   *zap.Logger
}

type CommentService struct {
	comments  store.CommentStore
	posts     store.PostReader
	users     store.UserDirectory
	leads     *LeadCapture
	cache     cache.Cache
	cacheTTL  time.Duration
	validator *Validator
	log       *zap.Logger
	now       func() time.Time
}

func NewCommentService(d CommentDeps) *CommentService {
	c := d.Cache
	if c == nil {
		c = cache.Noop{}
	}
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &CommentService{
		comments:  d.Comments,
		posts:     d.Posts,
		users:     d.Users,
		leads:     d.Leads,
		cache:     c,
		cacheTTL:  d.CacheTTL,
		validator: NewValidator(),
		log:       log,
		now:       time.Now,
	}
}

// generationTTL outlives any view TTL so a view never survives its generation.
const generationTTL = 24 * time.Hour

var (
	errCommentNotFound = apperr.NotFound("Comment not found")
	errAdminFieldsOnly = apperr.Forbidden("Only administrators can change moderation fields")
)

// ListForPost returns the threaded view of a post. Non-admins get only
// visible comments, served from the cache when possible.
func (s *CommentService) ListForPost(ctx context.Context, actor *guard.Actor, postID uint) (*ThreadView, error) {
	post, err := s.loadPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := guard.CanPerform(actor, guard.ActionListForPost, guard.Target{Post: post}).Err(); err != nil {
		return nil, err
	}

	admin := actor.IsAdmin()
	var key string
	if !admin {
		if gen, ok := s.threadGeneration(ctx, postID); ok {
			key = cache.ThreadKey(postID, gen)
		}
	}
	if key != "" {
		var cached ThreadView
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.Warn("thread cache read failed", zap.Error(err), zap.Uint("post_id", postID))
		}
		if found {
			return &cached, nil
		}
	}

	opts := store.ListOptions{OnlyVisible: !admin}
	top, err := s.comments.ListTopLevel(ctx, postID, opts)
	if err != nil {
		return nil, internal("Failed to load comments", err)
	}
	replies, err := s.comments.ListRepliesForParents(ctx, thread.ParentIDs(top), opts)
	if err != nil {
		return nil, internal("Failed to load replies", err)
	}
	if err := attachAuthors(ctx, s.users, top, replies); err != nil {
		return nil, internal("Failed to load comment authors", err)
	}
	if !admin {
		redactAll(top)
		redactAll(replies)
	}

	threads := thread.Assemble(top, replies)
	view := &ThreadView{Threads: threads, Count: thread.Count(threads)}

	if key != "" {
		if err := s.cache.Set(ctx, key, view, s.cacheTTL); err != nil {
			s.log.Warn("thread cache write failed", zap.Error(err), zap.Uint("post_id", postID))
		}
	}
	return view, nil
}

// Create stores a new comment or reply. Admin comments start approved.
func (s *CommentService) Create(ctx context.Context, actor *guard.Actor, postID uint, in CreateCommentInput) (*models.Comment, error) {
	if actor == nil {
		return nil, apperr.ErrNotAuthenticated
	}

	in.Content = utils.PlainText(in.Content)
	if err := s.validator.Validate(&in); err != nil {
		return nil, err
	}
	captureLead := !in.Anonymous && in.Contact != nil

	post, err := s.loadPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	target := guard.Target{Post: post}
	if in.ParentCommentID != nil && strings.TrimSpace(*in.ParentCommentID) != "" {
		target.HasParent = true
		target.Parent, err = s.loadComment(ctx, strings.TrimSpace(*in.ParentCommentID))
		if err != nil {
			return nil, err
		}
	}
	if err := guard.CanPerform(actor, guard.ActionCreate, target).Err(); err != nil {
		return nil, err
	}

	flags := moderation.Initial(actor.IsAdmin()).Flags()
	now := s.now()
	comment := &models.Comment{
		ID:         uuid.NewString(),
		Content:    in.Content,
		AuthorID:   actor.UserID,
		PostID:     post.ID,
		IsApproved: flags.IsApproved,
		IsSpam:     flags.IsSpam,
		IPAddress:  in.IPAddress,
		UserAgent:  in.UserAgent,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if target.HasParent {
		parentID := target.Parent.ID
		comment.ParentCommentID = &parentID
	}

	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, internal("Failed to create comment", err)
	}
	s.invalidate(ctx, comment.PostID)

	if captureLead {
		s.leads.Capture(ctx, comment, *in.Contact)
	}

	return s.present(ctx, actor, comment), nil
}

// Update edits a comment. Authors change content only and the comment is
// marked edited; admins may also change the moderation flags.
func (s *CommentService) Update(ctx context.Context, actor *guard.Actor, id string, in UpdateCommentInput) (*models.Comment, error) {
	if actor == nil {
		return nil, apperr.ErrNotAuthenticated
	}
	comment, err := s.loadComment(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.IsAdmin() {
		if err := guard.CanPerform(actor, guard.ActionUpdateContent, guard.Target{Comment: comment}).Err(); err != nil {
			return nil, err
		}
		if in.IsApproved != nil || in.IsSpam != nil {
			return nil, errAdminFieldsOnly
		}
		content, err := s.cleanContent(in.Content)
		if err != nil {
			return nil, err
		}
		edited := true
		author := actor.UserID
		updated, err := s.comments.Update(ctx, comment.ID, store.CommentPatch{
			Content:  &content,
			IsEdited: &edited,
			AuthorID: &author,
		})
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// deleted or reassigned since it was loaded
				return nil, guard.ErrNotPermitted
			}
			return nil, internal("Failed to update comment", err)
		}
		s.invalidate(ctx, updated.PostID)
		return s.present(ctx, actor, updated), nil
	}

	if err := guard.CanPerform(actor, guard.ActionUpdateAny, guard.Target{Comment: comment}).Err(); err != nil {
		return nil, err
	}
	updated, err := s.adminPatch(ctx, comment.ID, in)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, updated.PostID)
	return s.present(ctx, actor, updated), nil
}

// adminPatch applies content and cleared flags as one update, and raised
// flags through the matching moderation transition, in one transaction.
func (s *CommentService) adminPatch(ctx context.Context, id string, in UpdateCommentInput) (*models.Comment, error) {
	raiseApproved := in.IsApproved != nil && *in.IsApproved
	raiseSpam := in.IsSpam != nil && *in.IsSpam
	if raiseApproved && raiseSpam {
		return nil, apperr.Validation("isApproved and isSpam cannot both be true")
	}
	if in.Content == nil && in.IsApproved == nil && in.IsSpam == nil {
		return nil, apperr.Validation("Nothing to update")
	}

	var patch store.CommentPatch
	if in.Content != nil {
		content, err := s.cleanContent(in.Content)
		if err != nil {
			return nil, err
		}
		patch.Content = &content
	}
	if in.IsApproved != nil && !raiseApproved {
		patch.IsApproved = in.IsApproved
	}
	if in.IsSpam != nil && !raiseSpam {
		patch.IsSpam = in.IsSpam
	}

	var updated *models.Comment
	err := s.comments.Transaction(ctx, func(tx store.CommentStore) error {
		var err error
		if patch.Content != nil || patch.IsApproved != nil || patch.IsSpam != nil {
			if updated, err = tx.Update(ctx, id, patch); err != nil {
				return err
			}
		}
		switch {
		case raiseApproved:
			updated, err = tx.ApplyTransition(ctx, id, moderation.Approve)
		case raiseSpam:
			updated, err = tx.ApplyTransition(ctx, id, moderation.MarkSpam)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errCommentNotFound
		}
		return nil, internal("Failed to update comment", err)
	}
	return updated, nil
}

// Delete removes a comment. A top-level comment takes its replies with it,
// all inside one transaction. It returns the number of rows removed.
func (s *CommentService) Delete(ctx context.Context, actor *guard.Actor, id string) (int64, error) {
	if actor == nil {
		return 0, apperr.ErrNotAuthenticated
	}
	comment, err := s.loadComment(ctx, id)
	if err != nil {
		return 0, err
	}
	target := guard.Target{Comment: comment}
	if comment != nil {
		if target.Post, err = s.loadPost(ctx, comment.PostID); err != nil {
			return 0, err
		}
	}
	if err := guard.CanPerform(actor, guard.ActionDelete, target).Err(); err != nil {
		return 0, err
	}

	var removed int64
	err = s.comments.Transaction(ctx, func(tx store.CommentStore) error {
		removed = 0
		if comment.IsTopLevel() {
			replies, err := tx.ListRepliesForParents(ctx, []string{comment.ID}, store.ListOptions{})
			if err != nil {
				return err
			}
			for _, r := range replies {
				n, err := tx.Delete(ctx, r.ID)
				if err != nil {
					return err
				}
				removed += n
			}
		}
		n, err := tx.Delete(ctx, comment.ID)
		if err != nil {
			return err
		}
		removed += n
		return nil
	})
	if err != nil {
		s.log.Error("cascade delete failed",
			zap.Error(err),
			zap.String("comment_id", comment.ID),
			zap.Uint("post_id", comment.PostID),
		)
		return 0, internal("Failed to delete comment", err)
	}

	s.invalidate(ctx, comment.PostID)
	return removed, nil
}

// ToggleApproval flips isApproved; ending approved clears spam.
func (s *CommentService) ToggleApproval(ctx context.Context, actor *guard.Actor, id string) (*models.Comment, error) {
	return s.moderate(ctx, actor, id, moderation.ToggleApproval)
}

func (s *CommentService) Approve(ctx context.Context, actor *guard.Actor, id string) (*models.Comment, error) {
	return s.moderate(ctx, actor, id, moderation.Approve)
}

func (s *CommentService) MarkSpam(ctx context.Context, actor *guard.Actor, id string) (*models.Comment, error) {
	return s.moderate(ctx, actor, id, moderation.MarkSpam)
}

func (s *CommentService) moderate(ctx context.Context, actor *guard.Actor, id string, t moderation.Transition) (*models.Comment, error) {
	if actor == nil {
		return nil, apperr.ErrNotAuthenticated
	}
	// 先鉴权再查库，普通用户无法探测评论是否存在
	if !actor.IsAdmin() {
		return nil, guard.CanPerform(actor, guard.ActionModerate, guard.Target{}).Err()
	}
	comment, err := s.loadComment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guard.CanPerform(actor, guard.ActionModerate, guard.Target{Comment: comment}).Err(); err != nil {
		return nil, err
	}

	updated, err := s.comments.ApplyTransition(ctx, comment.ID, t)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errCommentNotFound
		}
		return nil, internal("Failed to moderate comment", err)
	}
	s.log.Info("comment moderated",
		zap.String("comment_id", updated.ID),
		zap.String("transition", string(t)),
		zap.Uint("admin_id", actor.UserID),
	)
	s.invalidate(ctx, updated.PostID)
	return s.present(ctx, actor, updated), nil
}

// ListAll is the admin listing across posts, newest first.
func (s *CommentService) ListAll(ctx context.Context, actor *guard.Actor, q ListAllQuery) (*CommentPage, error) {
	if err := guard.CanPerform(actor, guard.ActionListAll, guard.Target{}).Err(); err != nil {
		return nil, err
	}

	filter := store.Filter{PostID: q.PostID}
	if q.Status != "" {
		state, err := moderation.ParseState(q.Status)
		if err != nil {
			return nil, apperr.Validation("status must be one of pending, approved, spam")
		}
		filter.State = state
	}
	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = utils.DefaultPageSize
	}
	if limit > utils.MaxPageSize {
		limit = utils.MaxPageSize
	}

	total, err := s.comments.CountAll(ctx, filter)
	if err != nil {
		return nil, internal("Failed to count comments", err)
	}
	items, err := s.comments.ListAll(ctx, filter, store.Page{Number: page, Size: limit})
	if err != nil {
		return nil, internal("Failed to load comments", err)
	}
	if items == nil {
		items = []models.Comment{}
	}
	if err := attachAuthors(ctx, s.users, items); err != nil {
		return nil, internal("Failed to load comment authors", err)
	}

	return &CommentPage{
		Comments:    items,
		Total:       total,
		TotalPages:  utils.TotalPages(total, limit),
		CurrentPage: page,
		Limit:       limit,
	}, nil
}

// loadPost returns nil, nil for a missing post so the guard decides how to
// report it.
func (s *CommentService) loadPost(ctx context.Context, id uint) (*models.Post, error) {
	post, err := s.posts.GetPost(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, internal("Failed to load post", err)
	}
	return post, nil
}

func (s *CommentService) loadComment(ctx context.Context, id string) (*models.Comment, error) {
	c, err := s.comments.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, internal("Failed to load comment", err)
	}
	return c, nil
}

func (s *CommentService) cleanContent(raw *string) (string, error) {
	var f contentField
	if raw != nil {
		f.Content = utils.PlainText(*raw)
	}
	if err := s.validator.Validate(&f); err != nil {
		return "", err
	}
	return f.Content, nil
}

// present attaches the author and hides provenance from non-admins.
func (s *CommentService) present(ctx context.Context, actor *guard.Actor, c *models.Comment) *models.Comment {
	list := []models.Comment{*c}
	if err := attachAuthors(ctx, s.users, list); err != nil {
		s.log.Warn("load comment author failed", zap.Error(err), zap.String("comment_id", c.ID))
	}
	out := list[0]
	if !actor.IsAdmin() {
		out = out.Redacted()
	}
	return &out
}

// threadGeneration returns the generation the post's view is cached under,
// starting a new one when none exists. It is read before the store so a
// write committed after the read moves readers to a newer generation.
func (s *CommentService) threadGeneration(ctx context.Context, postID uint) (string, bool) {
	var gen string
	found, err := s.cache.Get(ctx, cache.ThreadGenKey(postID), &gen)
	if err != nil {
		s.log.Warn("thread cache read failed", zap.Error(err), zap.Uint("post_id", postID))
		return "", false
	}
	if found && gen != "" {
		return gen, true
	}
	gen = uuid.NewString()
	if err := s.cache.Set(ctx, cache.ThreadGenKey(postID), gen, generationTTL); err != nil {
		s.log.Warn("thread cache write failed", zap.Error(err), zap.Uint("post_id", postID))
		return "", false
	}
	return gen, true
}

func (s *CommentService) invalidate(ctx context.Context, postID uint) {
	if err := s.cache.Set(ctx, cache.ThreadGenKey(postID), uuid.NewString(), generationTTL); err != nil {
		s.log.Warn("thread cache invalidation failed", zap.Error(err), zap.Uint("post_id", postID))
	}
}

func internal(message string, err error) error {
	return apperr.Wrap(apperr.KindInternal, message, err)
}
