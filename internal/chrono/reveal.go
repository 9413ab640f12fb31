package chrono

import (
	"context"
	"fmt"
	"time"
)

// RevealMode is how a seal is being shown.
type RevealMode int

const (
	// RevealLocked: the seal is locked and no override was requested.
	RevealLocked RevealMode = iota
	// RevealUnlocked: the unlock time has passed.
	RevealUnlocked
	// RevealForced: the seal is still locked but the viewer asked to see it.
	RevealForced
)

func (m RevealMode) String() string {
	switch m {
	case RevealUnlocked:
		return "unlocked"
	case RevealForced:
		return "force-revealed"
	default:
		return "locked"
	}
}

// RevealOptions are per-request view inputs. They are never stored.
type RevealOptions struct {
	// Force shows a locked seal's content and media before its unlock time.
	Force bool
}

// SealView is what a presentation layer renders for one seal.
type SealView struct {
	Seal *DecodedSeal
	Mode RevealMode

	// NaturallyUnlocked is the unlock state at ViewedAt, independent of Force.
	NaturallyUnlocked bool

	// Content and Media are only populated when the seal is revealable.
	Content string
	Media   []*MediaAsset

	// Countdown is set while the seal is not naturally unlocked.
	Countdown *Countdown
	ViewedAt  time.Time
}

// Revealable reports whether content and media are shown.
func (v *SealView) Revealable() bool {
	return v.Mode != RevealLocked
}

// Open builds the view of a seal. When the seal is locked and opts.Force is
// set, content and media are revealed exactly as for an unlocked seal but the
// view is marked RevealForced. The seal itself, including IsUnlocked, is
// not modified. Media is only resolved when the seal is revealable.
// A nil seal has no view and Open returns nil.
func (s *SealService) Open(ctx context.Context, seal *DecodedSeal, opts RevealOptions) *SealView {
	if seal == nil {
		return nil
	}
	now := s.clock.Now()
	natural := UnlockedAt(seal.UnlockTime, now)

	view := &SealView{
		Seal:              seal,
		NaturallyUnlocked: natural,
		ViewedAt:          now,
	}

	switch {
	case natural:
		view.Mode = RevealUnlocked
	case opts.Force:
		view.Mode = RevealForced
		s.logger.Info("seal force-revealed", "id", seal.ID, "unlock_time", seal.UnlockTime)
	default:
		view.Mode = RevealLocked
	}

	if !natural {
		view.Countdown = RemainingAt(seal.UnlockTime, now)
	}

	if view.Revealable() {
		view.Content = seal.Content
		view.Media = s.ResolveAll(ctx, JoinMediaIDs(seal.MediaIDs))
	}
	return view
}

// OpenByTransactionID looks up a seal and opens it. An unknown id returns
// ErrNotFound.
func (s *SealService) OpenByTransactionID(ctx context.Context, txID string, opts RevealOptions) (*SealView, error) {
	seal, err := s.GetByTransactionID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if seal == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, txID)
	}
	return s.Open(ctx, seal, opts), nil
}
