// Package approval holds the rules of the MOU tri-party approval workflow.
//
// Each MOU carries one decision per party (brand, influencer, admin). A
// decision starts PENDING and may move exactly once, to APPROVED or REJECTED.
// The MOU status is derived from the three decisions and is never set directly.
package approval

import (
	"errors"
	"fmt"
)

// Decision values, shared by the per-party fields and the aggregate status.
const (
	Pending  = "PENDING"
	Approved = "APPROVED"
	Rejected = "REJECTED"
)

// Party identifies who is deciding.
type Party string

const (
	Brand      Party = "BRAND"
	Influencer Party = "INFLUENCER"
	Admin      Party = "ADMIN"
)

var (
	ErrInvalidDecision   = errors.New("decision must be APPROVED or REJECTED")
	ErrInvalidTransition = errors.New("decision has already been made")
	ErrAwaitingParties   = errors.New("brand and influencer must approve before admin approval")
	ErrReasonRequired    = errors.New("a reason is required when rejecting")
	ErrClosed            = errors.New("mou is no longer pending")
	ErrNotParty          = errors.New("user is not a party to this mou")
)

// State is the set of decisions on one MOU.
type State struct {
	Brand      string
	Influencer string
	Admin      string
}

// NewState returns a state with every party pending.
func NewState() State {
	return State{Brand: Pending, Influencer: Pending, Admin: Pending}
}

// Of returns the decision recorded for party p.
func (s State) Of(p Party) string {
	switch p {
	case Brand:
		return s.Brand
	case Influencer:
		return s.Influencer
	default:
		return s.Admin
	}
}

// Status aggregates the three decisions.
func (s State) Status() string {
	return Aggregate(s.Brand, s.Influencer, s.Admin)
}

// Aggregate combines per-party decisions: any rejection rejects the MOU,
// unanimous approval approves it, anything else is still pending.
func Aggregate(decisions ...string) string {
	approved := 0
	for _, d := range decisions {
		switch d {
		case Rejected:
			return Rejected
		case Approved:
			approved++
		}
	}
	if approved == len(decisions) && approved > 0 {
		return Approved
	}
	return Pending
}

// Transition validates moving a single party's decision from current to next.
func Transition(current, next string) error {
	if next != Approved && next != Rejected {
		return ErrInvalidDecision
	}
	if current != Pending {
		return ErrInvalidTransition
	}
	return nil
}

// Apply validates a decision by party p and returns the resulting state.
// reason is required for rejections.
func (s State) Apply(p Party, decision, reason string) (State, error) {
	if s.Status() != Pending {
		return s, ErrClosed
	}
	if err := Transition(s.Of(p), decision); err != nil {
		return s, err
	}
	if decision == Rejected && reason == "" {
		return s, ErrReasonRequired
	}
	if p == Admin && decision == Approved && (s.Brand != Approved || s.Influencer != Approved) {
		return s, ErrAwaitingParties
	}

	next := s
	switch p {
	case Brand:
		next.Brand = decision
	case Influencer:
		next.Influencer = decision
	case Admin:
		next.Admin = decision
	default:
		return s, fmt.Errorf("unknown party %q", p)
	}
	return next, nil
}

// Column returns the database column that stores party p's decision.
func Column(p Party) string {
	switch p {
	case Brand:
		return "brand_approval"
	case Influencer:
		return "influencer_approval"
	default:
		return "admin_approval"
	}
}
