package chrono

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DefaultUnlockDelay is used when a draft has no unlock time.
const DefaultUnlockDelay = time.Hour

// CreateSealKey is the notification key shared by every seal-creation outcome.
const CreateSealKey = "create-seal"

// Draft is a seal as entered by its author, before submission.
type Draft struct {
	Title    string
	Content  string
	Emotion  string
	Tags     []string
	UnlockAt time.Time // zero means now + DefaultUnlockDelay
	MediaIDs []string
}

// DefaultTitle is the title given to drafts that have none.
func DefaultTitle(now time.Time) string {
	return "Time Seal " + now.Format("2006-01-02 15:04")
}

// CreateSeal validates a draft, builds the nested content document and
// submits it. The returned id is the ledger transaction hash.
func (s *SealService) CreateSeal(ctx context.Context, signer *SigningContext, d Draft) (string, error) {
	now := s.clock.Now()

	if strings.TrimSpace(d.Content) == "" {
		s.notify(NotifyError, CreateSealKey, "Seal content is required")
		return "", fmt.Errorf("%w: content is required", ErrInvalidDraft)
	}

	unlockAt := d.UnlockAt
	if unlockAt.IsZero() {
		unlockAt = now.Add(DefaultUnlockDelay)
	}
	unlockTime := unlockAt.Unix()
	if unlockTime*msPerSecond <= now.UnixMilli() {
		s.notify(NotifyError, CreateSealKey, "Unlock time must be in the future")
		return "", fmt.Errorf("%w: unlock time %s is not in the future", ErrInvalidDraft, unlockAt.UTC().Format(time.RFC3339))
	}

	title := strings.TrimSpace(d.Title)
	if title == "" {
		title = DefaultTitle(now)
	}

	body, err := EncodeBody(Seal{
		Title:     title,
		Content:   d.Content,
		CreatedAt: now,
		Emotion:   d.Emotion,
		Tags:      d.Tags,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidDraft, err)
	}

	return s.Submit(ctx, signer, string(body), unlockTime, JoinMediaIDs(d.MediaIDs))
}

// Submit writes one seal payload to the ledger from signer and waits for it
// to be included. It does not check that unlockTime is in the future; callers
// are expected to have done so. On failure the id is empty, the error wraps
// ErrNotConnected or ErrSubmissionFailed, and an error notification is sent.
// Nothing is retried automatically.
func (s *SealService) Submit(ctx context.Context, signer *SigningContext, content string, unlockTime int64, mediaIDs string) (string, error) {
	if !signer.Connected() {
		s.notify(NotifyError, CreateSealKey, "Connect a wallet first")
		return "", ErrNotConnected
	}

	data, err := encodePayload(wirePayload{
		Content:    content,
		UnlockTime: unlockTime,
		MediaIDs:   mediaIDs,
		Creator:    signer.Address(),
		CreatedAt:  s.clock.Now().UnixMilli(),
	})
	if err != nil {
		return "", s.submissionFailed(err, "")
	}

	tx, err := s.ledger.StoreData(ctx, signer.Address(), data)
	if err != nil {
		return "", s.submissionFailed(err, "")
	}
	s.notify(NotifyLoading, CreateSealKey, "Creating time seal...")
	s.logger.Debug("seal submitted", "tx_hash", tx.Hash(), "bytes", len(data))

	receipt, err := tx.Wait(ctx)
	if err != nil {
		return "", s.submissionFailed(err, tx.Hash())
	}

	s.notify(NotifySuccess, CreateSealKey, "Time seal created: "+receipt.TxHash)
	s.logger.Info("seal created", "tx_hash", receipt.TxHash, "block", receipt.BlockNumber, "unlock_time", unlockTime)
	return receipt.TxHash, nil
}

func (s *SealService) submissionFailed(err error, txHash string) error {
	s.notify(NotifyError, CreateSealKey, "Failed to create time seal")
	if txHash != "" {
		s.logger.Error("seal submission failed", "tx_hash", txHash, "error", err)
		return fmt.Errorf("%w: transaction %s: %w", ErrSubmissionFailed, txHash, err)
	}
	s.logger.Error("seal submission failed", "error", err)
	return fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
}
