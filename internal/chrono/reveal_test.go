package chrono_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"chronovault/internal/chrono"
	"chronovault/internal/testutil"
)

func lockedSeal(t *testing.T, unlock time.Time, mediaIDs ...string) *chrono.DecodedSeal {
	t.Helper()
	return &chrono.DecodedSeal{
		Seal: chrono.Seal{
			Title:      "capsule",
			Content:    "secret",
			UnlockTime: unlock.Unix(),
			MediaIDs:   mediaIDs,
		},
		ID: "0x01",
	}
}

func TestOpen_LockedHidesContent(t *testing.T) {
	store := testutil.NewCountingMediaStore(testutil.NewTestMediaStore())
	id := testutil.StoreTestMedia(t, store, "a.png")
	svc, clock, _, _ := newIndexedService(t, testutil.NewFakeIndexer(), store)

	view := svc.Open(context.Background(), lockedSeal(t, clock.Now().Add(time.Hour), id), chrono.RevealOptions{})

	if view.Mode != chrono.RevealLocked || view.Revealable() {
		t.Errorf("Mode = %s, want locked", view.Mode)
	}
	if view.Content != "" || view.Media != nil {
		t.Errorf("locked view exposes content %q / media %v", view.Content, view.Media)
	}
	if view.Countdown == nil || view.Countdown.Hours != 1 {
		t.Errorf("Countdown = %+v, want 1h", view.Countdown)
	}
	if got := store.Resolved(); len(got) != 0 {
		t.Errorf("media resolved for a locked seal: %v", got)
	}
}

func TestOpen_ForceReveal(t *testing.T) {
	store := testutil.NewCountingMediaStore(testutil.NewTestMediaStore())
	id := testutil.StoreTestMedia(t, store, "a.png")
	svc, clock, _, logger := newIndexedService(t, testutil.NewFakeIndexer(), store)
	seal := lockedSeal(t, clock.Now().Add(24*time.Hour), id)

	view := svc.Open(context.Background(), seal, chrono.RevealOptions{Force: true})

	if view.Mode != chrono.RevealForced || view.Mode.String() != "force-revealed" {
		t.Errorf("Mode = %s, want force-revealed", view.Mode)
	}
	if view.Content != "secret" {
		t.Errorf("Content = %q, want revealed", view.Content)
	}
	if len(view.Media) != 1 || view.Media[0].ID != id {
		t.Errorf("Media = %v, want %s", view.Media, id)
	}
	if view.NaturallyUnlocked || seal.IsUnlocked {
		t.Error("forcing a reveal changed the natural unlock state")
	}
	if view.Countdown == nil || view.Countdown.Days != 1 {
		t.Errorf("Countdown = %+v, want 1d", view.Countdown)
	}

	infos := logger.Entries("INFO")
	if len(infos) != 1 || infos[0].Msg != "seal force-revealed" {
		t.Errorf("info entries = %+v", infos)
	}
}

func TestOpen_Unlocked(t *testing.T) {
	store := testutil.NewCountingMediaStore(testutil.NewTestMediaStore())
	id := testutil.StoreTestMedia(t, store, "a.png")
	svc, clock, _, logger := newIndexedService(t, testutil.NewFakeIndexer(), store)
	seal := lockedSeal(t, clock.Now().Add(-time.Minute), id, "file_0_missing")

	for _, force := range []bool{false, true} {
		view := svc.Open(context.Background(), seal, chrono.RevealOptions{Force: force})
		if view.Mode != chrono.RevealUnlocked || !view.NaturallyUnlocked {
			t.Errorf("force=%v: Mode = %s, want unlocked", force, view.Mode)
		}
		if view.Countdown != nil {
			t.Errorf("force=%v: Countdown = %+v, want nil", force, view.Countdown)
		}
		if view.Content != "secret" || len(view.Media) != 1 {
			t.Errorf("force=%v: content %q, %d media", force, view.Content, len(view.Media))
		}
	}
	if len(logger.Entries("INFO")) != 0 {
		t.Error("unlocked seals should not log a forced reveal")
	}
}

func TestOpen_UnlocksAsClockAdvances(t *testing.T) {
	svc, clock, _, _ := newIndexedService(t, testutil.NewFakeIndexer(), nil)
	seal := lockedSeal(t, clock.Now().Add(time.Minute))

	if view := svc.Open(context.Background(), seal, chrono.RevealOptions{}); view.Revealable() {
		t.Fatal("seal revealable before unlock time")
	}
	clock.Advance(time.Minute)
	if view := svc.Open(context.Background(), seal, chrono.RevealOptions{}); view.Mode != chrono.RevealUnlocked {
		t.Fatalf("Mode = %s at unlock time, want unlocked", view.Mode)
	}
}

func TestOpen_NilSeal(t *testing.T) {
	store := testutil.NewCountingMediaStore(testutil.NewTestMediaStore())
	svc, _, _, _ := newIndexedService(t, testutil.NewFakeIndexer(), store)

	for _, force := range []bool{false, true} {
		if view := svc.Open(context.Background(), nil, chrono.RevealOptions{Force: force}); view != nil {
			t.Errorf("Open(nil, force=%v) = %+v, want nil", force, view)
		}
	}
	if got := store.Resolved(); len(got) != 0 {
		t.Errorf("media resolved for a nil seal: %v", got)
	}
}

func TestOpenByTransactionID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.Submit(ctx, f.signer, "hidden", f.clock.Now().Add(time.Hour).Unix(), "")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	view, err := f.svc.OpenByTransactionID(ctx, id, chrono.RevealOptions{Force: true})
	if err != nil {
		t.Fatalf("OpenByTransactionID() error = %v", err)
	}
	if view.Mode != chrono.RevealForced || view.Content != "hidden" {
		t.Errorf("view = %s %q", view.Mode, view.Content)
	}

	_, err = f.svc.OpenByTransactionID(ctx, "0xmissing", chrono.RevealOptions{})
	if !errors.Is(err, chrono.ErrNotFound) {
		t.Errorf("OpenByTransactionID(unknown) error = %v, want ErrNotFound", err)
	}
}
