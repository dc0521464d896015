// Package moderation is the comment review workflow. A comment is Pending,
// Approved or Spam; storage keeps the two legacy flags isApproved and isSpam,
// and every transition leaves them in a combination where at most one is set.
package moderation

import (
	"fmt"
	"strings"
)

type State string

const (
	Pending  State = "pending"
	Approved State = "approved"
	Spam     State = "spam"
)

type Transition string

const (
	Approve        Transition = "approve"
	MarkSpam       Transition = "mark_spam"
	ToggleApproval Transition = "toggle_approval"
)

// Flags is the externally visible encoding of a State.
type Flags struct {
	IsApproved bool
	IsSpam     bool
}

func (f Flags) State() State {
	switch {
	case f.IsSpam:
		return Spam
	case f.IsApproved:
		return Approved
	default:
		return Pending
	}
}

func (s State) Flags() Flags {
	switch s {
	case Approved:
		return Flags{IsApproved: true}
	case Spam:
		return Flags{IsSpam: true}
	default:
		return Flags{}
	}
}

func (s State) Visible() bool {
	return s == Approved
}

func (s State) Valid() bool {
	switch s {
	case Pending, Approved, Spam:
		return true
	default:
		return false
	}
}

func ParseState(raw string) (State, error) {
	s := State(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown moderation state %q", raw)
	}
	return s, nil
}

// Initial is the state of a freshly created comment.
func Initial(creatorIsAdmin bool) State {
	if creatorIsAdmin {
		return Approved
	}
	return Pending
}

// Apply runs t against f. Approving always clears spam; marking spam always
// clears approval; a toggle that ends approved clears spam too.
func Apply(f Flags, t Transition) (Flags, error) {
	switch t {
	case Approve:
		return Flags{IsApproved: true}, nil
	case MarkSpam:
		return Flags{IsSpam: true}, nil
	case ToggleApproval:
		next := Flags{IsApproved: !f.IsApproved, IsSpam: f.IsSpam}
		if next.IsApproved {
			next.IsSpam = false
		}
		return next, nil
	default:
		return f, fmt.Errorf("unknown moderation transition %q", t)
	}
}
