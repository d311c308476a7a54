package ledger

import (
	"context"
	"fmt"

	"github.com/xraph/conductor"
	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/resource"
)

// Conflicts is the result of checking a proposed resource map against the
// ledger.
type Conflicts struct {
	// Response is the overall decision for the proposed call.
	Response resource.Response

	// Blockers are the calls responsible for Response, in first-seen order.
	// Empty when Response is Accepted.
	Blockers []id.CallID

	// Reasons are the distinct blocking claims, first-seen order kept.
	// Empty when Response is Accepted.
	Reasons []resource.Reason

	// Claims are the proposed map flattened into claims. Their CallID is
	// unset until the caller assigns one.
	Claims []*resource.Claim
}

// BlockedBy reports whether callID is one of the blockers.
func (c *Conflicts) BlockedBy(callID id.CallID) bool {
	for _, b := range c.Blockers {
		if b.String() == callID.String() {
			return true
		}
	}
	return false
}

// Ledger answers conflict queries over a claim Store.
type Ledger struct {
	store Store
}

// New returns a Ledger backed by s.
func New(s Store) *Ledger {
	return &Ledger{store: s}
}

// Store returns the underlying claim store.
func (l *Ledger) Store() Store { return l.store }

// FindConflicts compares proposed against every claim currently held on the
// same resources. Rejection dominates postponement. An empty proposal is
// always accepted.
func (l *Ledger) FindConflicts(ctx context.Context, proposed resource.Map) (*Conflicts, error) {
	out := &Conflicts{
		Response: resource.Accepted,
		Claims:   proposed.Flatten(id.Nil),
	}
	if len(out.Claims) == 0 {
		return out, nil
	}

	byKey := proposed.Proposed()
	keys := proposed.Keys()

	existing, err := l.store.FindClaims(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("find claims: %w", err)
	}

	var rejecting, postponing blockerSet
	var rejectReasons, postponeReasons resource.ReasonSet

	for _, c := range existing {
		for _, op := range byKey[c.Key()] {
			switch resource.Resolve(c.Operation, op) {
			case resource.Rejected:
				rejecting.add(c.CallID)
				rejectReasons.Add(c.Reason())
			case resource.Postponed:
				postponing.add(c.CallID)
				postponeReasons.Add(c.Reason())
			}
		}
	}

	switch {
	case rejecting.len() > 0:
		out.Response = resource.Rejected
		out.Blockers = rejecting.list
		out.Reasons = rejectReasons.List()
	case postponing.len() > 0:
		out.Response = resource.Postponed
		out.Blockers = postponing.list
		out.Reasons = postponeReasons.List()
	}
	return out, nil
}

// Insert persists claims. Every claim must carry the id of its owning call.
func (l *Ledger) Insert(ctx context.Context, claims []*resource.Claim) error {
	if len(claims) == 0 {
		return nil
	}
	for _, c := range claims {
		if c.CallID.IsNil() {
			return fmt.Errorf("%w: %s", conductor.ErrClaimWithoutCallID, c.Key())
		}
	}
	return l.store.InsertClaims(ctx, claims)
}

// Remove deletes every claim held by callID. It is idempotent.
func (l *Ledger) Remove(ctx context.Context, callID id.CallID) error {
	return l.store.RemoveClaims(ctx, callID)
}

// Clear deletes every claim in the ledger.
func (l *Ledger) Clear(ctx context.Context) error {
	return l.store.ClearClaims(ctx)
}

// Claims returns the claims currently held by callID.
func (l *Ledger) Claims(ctx context.Context, callID id.CallID) ([]*resource.Claim, error) {
	return l.store.ListClaims(ctx, callID)
}

type blockerSet struct {
	seen map[string]struct{}
	list []id.CallID
}

func (s *blockerSet) add(callID id.CallID) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	k := callID.String()
	if _, ok := s.seen[k]; ok {
		return
	}
	s.seen[k] = struct{}{}
	s.list = append(s.list, callID)
}

func (s *blockerSet) len() int { return len(s.list) }
