package chrono

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const querySealKey = "query-seal"

// GetByTransactionID returns the seal written by txID. A transaction with no
// seal returns (nil, nil) and a "not found" notification. If the indexer
// reports more than one record the first is used and the inconsistency is
// logged.
func (s *SealService) GetByTransactionID(ctx context.Context, txID string) (*DecodedSeal, error) {
	txHash := strings.ToLower(strings.TrimSpace(txID))
	if txHash == "" {
		s.notify(NotifyError, querySealKey, "Seal not found")
		return nil, nil
	}

	records, err := s.indexer.FindByTransactionHash(ctx, txHash)
	if err != nil {
		s.notify(NotifyError, querySealKey, "Failed to query seal")
		s.logger.Error("querying seal by transaction", "tx_hash", txHash, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	if len(records) == 0 {
		s.notify(NotifyError, querySealKey, "Seal not found")
		s.logger.Debug("seal not found", "tx_hash", txHash)
		return nil, nil
	}
	if len(records) > 1 {
		s.logger.Warn("multiple seals recorded for one transaction", "tx_hash", txHash, "count", len(records))
	}

	seal, err := s.decodeRecord(records[0])
	if err != nil {
		s.notify(NotifyError, querySealKey, "Failed to decode seal")
		s.logger.Warn("decoding seal", "tx_hash", txHash, "error", err)
		return nil, err
	}
	return seal, nil
}

// ListByOwner returns every seal sent from address, newest ledger timestamp
// first. Records that cannot be decoded are left out. An empty address
// returns an empty list without querying.
func (s *SealService) ListByOwner(ctx context.Context, address string) ([]*DecodedSeal, error) {
	owner := strings.ToLower(strings.TrimSpace(address))
	if owner == "" {
		s.logger.Warn("listing seals without an owner address")
		return []*DecodedSeal{}, nil
	}

	var records []Record
	for skip := 0; ; skip += s.pageSize {
		page, err := s.indexer.FindBySender(ctx, owner, Page{First: s.pageSize, Skip: skip})
		if err != nil {
			s.logger.Error("querying seals by owner", "owner", owner, "error", err)
			return []*DecodedSeal{}, fmt.Errorf("%w: %w", ErrQueryFailed, err)
		}
		records = append(records, page...)
		if len(page) < s.pageSize {
			break
		}
	}

	seals := s.decodeAll(records)
	s.logger.Debug("listed seals", "owner", owner, "records", len(records), "seals", len(seals))
	return seals, nil
}

// ListMine lists the seals of a signing context. A missing or invalidated
// context returns an empty list without querying.
func (s *SealService) ListMine(ctx context.Context, signer *SigningContext) ([]*DecodedSeal, error) {
	if !signer.Connected() {
		return []*DecodedSeal{}, nil
	}
	return s.ListByOwner(ctx, signer.Owner())
}

// ListAll returns one page of seals from every sender, newest first.
func (s *SealService) ListAll(ctx context.Context, page Page) ([]*DecodedSeal, error) {
	if page.First <= 0 {
		page.First = s.pageSize
	}
	if page.Skip < 0 {
		page.Skip = 0
	}

	records, err := s.indexer.FindAll(ctx, page)
	if err != nil {
		s.logger.Error("querying all seals", "error", err)
		return []*DecodedSeal{}, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	return s.decodeAll(records), nil
}

func (s *SealService) decodeAll(records []Record) []*DecodedSeal {
	seals := make([]*DecodedSeal, 0, len(records))
	for _, r := range records {
		seal, err := s.decodeRecord(r)
		if err != nil {
			var decodeErr *DecodeError
			if errors.As(err, &decodeErr) {
				s.logger.Warn("skipping undecodable seal", "tx_hash", r.TransactionHash, "reason", decodeErr.Reason)
			}
			continue
		}
		seals = append(seals, seal)
	}
	return seals
}

func (s *SealService) decodeRecord(r Record) (*DecodedSeal, error) {
	seal, err := DecodeSeal(r.Data, s.clock.Now())
	if err != nil {
		return nil, err
	}
	seal.ID = r.TransactionHash
	seal.TxHash = r.TransactionHash
	seal.Sender = r.Sender
	seal.BlockNumber = r.BlockNumber
	seal.Timestamp = r.Timestamp
	seal.SubmittedAt = time.Unix(r.Timestamp, 0)
	return seal, nil
}
