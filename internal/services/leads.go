package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"threadline/internal/apperr"
	"threadline/internal/models"
	"threadline/internal/store"
	"threadline/internal/utils"
)

const DefaultLeadTTL = 7 * 24 * time.Hour

// ContactInput is what a non-anonymous commenter hands over.
type ContactInput struct {
	Name  string `json:"name" validate:"required,max=120"`
	Email string `json:"email" validate:"required,email,max=254"`
	Phone string `json:"phone" validate:"max=40"`
}

func (c *ContactInput) normalize() {
	c.Name = utils.PlainText(c.Name)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Phone = strings.TrimSpace(c.Phone)
}

// LeadCapture turns non-anonymous comments into leads. It is best effort:
// the comment is already stored when it runs.
type LeadCapture struct {
	leads     store.LeadStore
	ttl       time.Duration
	validator *Validator
	log       *zap.Logger
	now       func() time.Time
}

func NewLeadCapture(leads store.LeadStore, ttl time.Duration, log *zap.Logger) *LeadCapture {
	if ttl <= 0 {
		ttl = DefaultLeadTTL
	}
	return &LeadCapture{leads: leads, ttl: ttl, validator: NewValidator(), log: log, now: time.Now}
}

// Capture upserts the lead for (email, post). An unusable contact block or
// a failed write is logged and swallowed.
func (l *LeadCapture) Capture(ctx context.Context, c *models.Comment, contact ContactInput) {
	if l == nil || l.leads == nil {
		return
	}
	contact.normalize()
	if err := l.validator.Validate(&contact); err != nil {
		l.log.Warn("lead skipped, invalid contact",
			zap.Error(err),
			zap.Uint("post_id", c.PostID),
			zap.String("comment_id", c.ID),
		)
		return
	}
	if err := l.record(ctx, c, contact); err != nil {
		l.log.Warn("lead capture failed",
			zap.Error(err),
			zap.Uint("post_id", c.PostID),
			zap.String("comment_id", c.ID),
		)
	}
}

func (l *LeadCapture) record(ctx context.Context, c *models.Comment, contact ContactInput) error {
	now := l.now()
	lead := &models.Lead{
		ID:        uuid.NewString(),
		Name:      contact.Name,
		Email:     contact.Email,
		Phone:     contact.Phone,
		Source:    models.LeadSourceComment,
		PostID:    c.PostID,
		CommentID: c.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(l.ttl),
	}
	if err := l.leads.Upsert(ctx, lead); err != nil {
		return apperr.Wrap(apperr.KindUpstreamWrite, "lead capture failed", err)
	}
	return nil
}
