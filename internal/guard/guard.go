// Package guard decides whether an actor may perform an action on a comment
// or post. It performs no I/O: callers load the target first.
package guard

import (
	"time"

	"threadline/internal/apperr"
	"threadline/internal/models"
)

type Action string

const (
	ActionListForPost   Action = "list_for_post"
	ActionCreate        Action = "create"
	ActionUpdateContent Action = "update_content"
	ActionUpdateAny     Action = "update_any"
	ActionDelete        Action = "delete"
	ActionModerate      Action = "moderate"
	ActionListAll       Action = "list_all"
	ActionViewStats     Action = "view_stats"
)

// Actor is the identity behind a request. A nil *Actor is an anonymous
// visitor.
type Actor struct {
	UserID uint
	Role   string
	Active bool
}

func ActorFromUser(u *models.User, now time.Time) *Actor {
	if u == nil {
		return nil
	}
	return &Actor{UserID: u.ID, Role: u.Role, Active: u.CanParticipate(now)}
}

func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == models.RoleAdmin
}

// Target carries whatever the action is about. Parent is only consulted for
// ActionCreate when HasParent is set.
type Target struct {
	Post      *models.Post
	Comment   *models.Comment
	Parent    *models.Comment
	HasParent bool
}

type Decision struct {
	Allowed bool
	Reason  error
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason error) Decision { return Decision{Reason: reason} }

// Err is nil for an allowed decision.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Reason == nil {
		return apperr.ErrForbidden
	}
	return d.Reason
}

// ErrNotPermitted is the single answer a non-admin gets for a comment that
// is missing or not theirs.
var ErrNotPermitted = apperr.Forbidden("You are not permitted to modify this comment")

var (
	errPostNotFound = apperr.NotFound("Post not found")
	errAdminOnly    = apperr.Forbidden("Only administrators can perform this action")
	errInactive     = apperr.Forbidden("Your account cannot post comments right now")
)

func CanPerform(actor *Actor, action Action, target Target) Decision {
	switch action {
	case ActionListForPost:
		if target.Post == nil {
			return deny(errPostNotFound)
		}
		if !target.Post.IsPublished() && !actor.IsAdmin() {
			return deny(errPostNotFound)
		}
		return allow()

	case ActionCreate:
		if actor == nil {
			return deny(apperr.ErrNotAuthenticated)
		}
		if !actor.Active {
			return deny(errInactive)
		}
		if target.Post == nil || !target.Post.IsPublished() {
			return deny(errPostNotFound)
		}
		if target.HasParent {
			p := target.Parent
			if p == nil || !p.IsTopLevel() || p.PostID != target.Post.ID {
				return deny(apperr.ErrInvalidParent)
			}
		}
		return allow()

	case ActionUpdateContent, ActionDelete:
		if actor == nil {
			return deny(apperr.ErrNotAuthenticated)
		}
		if actor.IsAdmin() {
			if target.Comment == nil {
				return deny(apperr.NotFound("Comment not found"))
			}
			return allow()
		}
		// missing and foreign comments look the same to non-admins
		if target.Comment == nil || !actor.Active {
			return deny(ErrNotPermitted)
		}
		if target.Comment.AuthorID == actor.UserID {
			return allow()
		}
		if action == ActionDelete && target.Post != nil && target.Post.UserID == actor.UserID {
			return allow()
		}
		return deny(ErrNotPermitted)

	case ActionUpdateAny, ActionModerate:
		if actor == nil {
			return deny(apperr.ErrNotAuthenticated)
		}
		if !actor.IsAdmin() {
			return deny(errAdminOnly)
		}
		if target.Comment == nil {
			return deny(apperr.NotFound("Comment not found"))
		}
		return allow()

	case ActionListAll, ActionViewStats:
		if actor == nil {
			return deny(apperr.ErrNotAuthenticated)
		}
		if !actor.IsAdmin() {
			return deny(errAdminOnly)
		}
		return allow()

	default:
		return deny(apperr.ErrForbidden)
	}
}
