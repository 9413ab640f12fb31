package chrono_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"chronovault/internal/chrono"
	"chronovault/internal/testutil"
)

func TestSubmit_ThenGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	unlock := f.clock.Now().Add(time.Hour).Unix()

	id, err := f.svc.Submit(ctx, f.signer, "hello", unlock, "")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !strings.HasPrefix(id, "0x") || len(id) != 66 {
		t.Fatalf("Submit() id = %q, want a 0x-prefixed 32-byte hash", id)
	}

	f.clock.Advance(time.Second)
	seal, err := f.svc.GetByTransactionID(ctx, id)
	if err != nil {
		t.Fatalf("GetByTransactionID() error = %v", err)
	}
	if seal == nil {
		t.Fatal("GetByTransactionID() = nil, want the submitted seal")
	}
	if seal.IsUnlocked {
		t.Error("seal is unlocked one second after submission")
	}
	if seal.Content != "hello" || seal.BodyFormat != chrono.BodyPlain {
		t.Errorf("seal content = %q (%s), want plain %q", seal.Content, seal.BodyFormat, "hello")
	}
	if seal.ID != id || seal.TxHash != id {
		t.Errorf("seal id = %q / %q, want %q", seal.ID, seal.TxHash, id)
	}
	if seal.Creator != testAddress {
		t.Errorf("seal creator = %q, want %q", seal.Creator, testAddress)
	}
	if seal.Sender != strings.ToLower(testAddress) {
		t.Errorf("seal sender = %q, want lowercase address", seal.Sender)
	}

	c := chrono.RemainingAt(seal.UnlockTime, f.clock.Now())
	if c == nil || c.Days != 0 || c.Hours != 0 || c.Minutes != 59 {
		t.Errorf("countdown = %+v, want 0d 0h 59m", c)
	}

	f.clock.Advance(time.Hour)
	seal, err = f.svc.GetByTransactionID(ctx, id)
	if err != nil || seal == nil {
		t.Fatalf("GetByTransactionID() = %v, %v", seal, err)
	}
	if !seal.IsUnlocked {
		t.Error("seal still locked after its unlock time")
	}
	if c := chrono.RemainingAt(seal.UnlockTime, f.clock.Now()); c != nil {
		t.Errorf("countdown after unlock = %+v, want nil", c)
	}
}

func TestSubmit_Notifications(t *testing.T) {
	f := newFixture(t)

	id, err := f.svc.Submit(context.Background(), f.signer, "hello", f.clock.Now().Add(time.Hour).Unix(), "a,b")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	assertLevels(t, f.notifier.Levels(), chrono.NotifyLoading, chrono.NotifySuccess)
	last := f.notifier.Last()
	if last.Key != "create-seal" || !strings.Contains(last.Message, id) {
		t.Errorf("last notification = %+v, want create-seal success naming %s", last, id)
	}
	for _, n := range f.notifier.All() {
		if n.Key != last.Key {
			t.Errorf("notification key = %q, want all submissions under %q", n.Key, last.Key)
		}
	}
}

func TestSubmit_NotConnected(t *testing.T) {
	tests := []struct {
		name   string
		signer func() *chrono.SigningContext
	}{
		{"nil signer", func() *chrono.SigningContext { return nil }},
		{"empty address", func() *chrono.SigningContext { return chrono.NewSigningContext("", 1) }},
		{"invalidated", func() *chrono.SigningContext {
			s := chrono.NewSigningContext(testAddress, 1)
			s.Invalidate()
			return s
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &testutil.FailingLedger{}
			notifier := testutil.NewRecordingNotifier()
			clock := testutil.FixedClock()
			svc := chrono.NewSealService(l, testutil.NewFakeIndexer(), testutil.NewTestMediaStore(), chrono.NewNopLogger(), notifier, clock)

			id, err := svc.Submit(context.Background(), tt.signer(), "hello", clock.Now().Add(time.Hour).Unix(), "")
			if !errors.Is(err, chrono.ErrNotConnected) {
				t.Fatalf("Submit() error = %v, want ErrNotConnected", err)
			}
			if id != "" {
				t.Errorf("Submit() id = %q, want empty", id)
			}
			if l.Calls() != 0 {
				t.Errorf("ledger called %d times, want 0", l.Calls())
			}
			assertLevels(t, notifier.Levels(), chrono.NotifyError)
		})
	}
}

func TestSubmit_LedgerFailure(t *testing.T) {
	tests := []struct {
		name       string
		failOnWait bool
		levels     []chrono.NotificationLevel
	}{
		{"rejected", false, []chrono.NotificationLevel{chrono.NotifyError}},
		{"never confirmed", true, []chrono.NotificationLevel{chrono.NotifyLoading, chrono.NotifyError}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &testutil.FailingLedger{FailOnWait: tt.failOnWait}
			notifier := testutil.NewRecordingNotifier()
			logger := testutil.NewRecordingLogger()
			clock := testutil.FixedClock()
			svc := chrono.NewSealService(l, testutil.NewFakeIndexer(), testutil.NewTestMediaStore(), logger, notifier, clock)

			id, err := svc.Submit(context.Background(), chrono.NewSigningContext(testAddress, 1), "hello", clock.Now().Add(time.Hour).Unix(), "")
			if !errors.Is(err, chrono.ErrSubmissionFailed) {
				t.Fatalf("Submit() error = %v, want ErrSubmissionFailed", err)
			}
			if !errors.Is(err, testutil.ErrLedgerUnavailable) {
				t.Errorf("Submit() error = %v, want the ledger error wrapped", err)
			}
			if id != "" {
				t.Errorf("Submit() id = %q, want empty", id)
			}
			if l.Calls() != 1 {
				t.Errorf("ledger called %d times, want exactly 1 (no retries)", l.Calls())
			}
			assertLevels(t, notifier.Levels(), tt.levels...)
			if got := notifier.Last().Message; got != "Failed to create time seal" {
				t.Errorf("error notification = %q", got)
			}
			if len(logger.Entries("ERROR")) != 1 {
				t.Errorf("error log entries = %d, want 1", len(logger.Entries("ERROR")))
			}
		})
	}
}

func TestSubmit_CancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Submit(ctx, f.signer, "hello", f.clock.Now().Add(time.Hour).Unix(), "")
	if !errors.Is(err, chrono.ErrSubmissionFailed) {
		t.Fatalf("Submit() error = %v, want ErrSubmissionFailed", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Submit() error = %v, want context.Canceled wrapped", err)
	}
}

func TestCreateSeal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	unlockAt := f.clock.Now().Add(48 * time.Hour)

	id, err := f.svc.CreateSeal(ctx, f.signer, chrono.Draft{
		Title:    "  Letter  ",
		Content:  "Dear future me",
		Emotion:  "nostalgic",
		Tags:     []string{"letters"},
		UnlockAt: unlockAt,
		MediaIDs: []string{"file_1_a", "file_2_b"},
	})
	if err != nil {
		t.Fatalf("CreateSeal() error = %v", err)
	}

	seal, err := f.svc.GetByTransactionID(ctx, id)
	if err != nil || seal == nil {
		t.Fatalf("GetByTransactionID() = %v, %v", seal, err)
	}
	if seal.BodyFormat != chrono.BodyJSON {
		t.Errorf("BodyFormat = %s, want json", seal.BodyFormat)
	}
	if seal.Title != "Letter" || seal.Content != "Dear future me" || seal.Emotion != "nostalgic" {
		t.Errorf("seal = %q / %q / %q", seal.Title, seal.Content, seal.Emotion)
	}
	if len(seal.Tags) != 1 || seal.Tags[0] != "letters" {
		t.Errorf("Tags = %v", seal.Tags)
	}
	if seal.UnlockTime != unlockAt.Unix() {
		t.Errorf("UnlockTime = %d, want %d", seal.UnlockTime, unlockAt.Unix())
	}
	if chrono.JoinMediaIDs(seal.MediaIDs) != "file_1_a,file_2_b" {
		t.Errorf("MediaIDs = %v", seal.MediaIDs)
	}
	if !seal.CreatedAt.Equal(f.clock.Now()) {
		t.Errorf("CreatedAt = %v, want %v", seal.CreatedAt, f.clock.Now())
	}
}

func TestCreateSeal_Defaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.CreateSeal(ctx, f.signer, chrono.Draft{Content: "no title"})
	if err != nil {
		t.Fatalf("CreateSeal() error = %v", err)
	}
	seal, err := f.svc.GetByTransactionID(ctx, id)
	if err != nil || seal == nil {
		t.Fatalf("GetByTransactionID() = %v, %v", seal, err)
	}
	if want := "Time Seal 2024-01-15 10:30"; seal.Title != want {
		t.Errorf("Title = %q, want %q", seal.Title, want)
	}
	if want := f.clock.Now().Add(chrono.DefaultUnlockDelay).Unix(); seal.UnlockTime != want {
		t.Errorf("UnlockTime = %d, want %d", seal.UnlockTime, want)
	}
}

func TestCreateSeal_InvalidDraft(t *testing.T) {
	now := testutil.FixedClock().Now()
	tests := []struct {
		name    string
		draft   chrono.Draft
		message string
	}{
		{"empty content", chrono.Draft{Content: "  ", UnlockAt: now.Add(time.Hour)}, "Seal content is required"},
		{"unlock in the past", chrono.Draft{Content: "x", UnlockAt: now.Add(-time.Minute)}, "Unlock time must be in the future"},
		{"unlock now", chrono.Draft{Content: "x", UnlockAt: now}, "Unlock time must be in the future"},
		{"unlock within the current second", chrono.Draft{Content: "x", UnlockAt: now.Add(500 * time.Millisecond)}, "Unlock time must be in the future"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &testutil.FailingLedger{}
			notifier := testutil.NewRecordingNotifier()
			svc := chrono.NewSealService(l, testutil.NewFakeIndexer(), testutil.NewTestMediaStore(), chrono.NewNopLogger(), notifier, testutil.FixedClock())

			_, err := svc.CreateSeal(context.Background(), chrono.NewSigningContext(testAddress, 1), tt.draft)
			if !errors.Is(err, chrono.ErrInvalidDraft) {
				t.Fatalf("CreateSeal() error = %v, want ErrInvalidDraft", err)
			}
			if l.Calls() != 0 {
				t.Errorf("ledger called %d times, want 0", l.Calls())
			}
			if got := notifier.Last(); got.Level != chrono.NotifyError || got.Message != tt.message {
				t.Errorf("notification = %+v, want error %q", got, tt.message)
			}
		})
	}
}
