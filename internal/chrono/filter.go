package chrono

import (
	"fmt"
	"strings"
)

// StatusFilter selects seals by lock state.
type StatusFilter string

const (
	StatusAll      StatusFilter = "all"
	StatusLocked   StatusFilter = "locked"
	StatusUnlocked StatusFilter = "unlocked"
)

// ParseStatusFilter parses a status name; the empty string means all.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch StatusFilter(strings.ToLower(strings.TrimSpace(s))) {
	case "", StatusAll:
		return StatusAll, nil
	case StatusLocked:
		return StatusLocked, nil
	case StatusUnlocked:
		return StatusUnlocked, nil
	default:
		return "", fmt.Errorf("unknown status filter %q (want all, locked or unlocked)", s)
	}
}

// FilterSeals returns the seals matching a case-insensitive search over
// title, content and tags, and the lock status. Order is preserved.
func FilterSeals(seals []*DecodedSeal, search string, status StatusFilter) []*DecodedSeal {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]*DecodedSeal, 0, len(seals))
	for _, seal := range seals {
		if !matchesStatus(seal, status) || !matchesSearch(seal, needle) {
			continue
		}
		out = append(out, seal)
	}
	return out
}

func matchesStatus(seal *DecodedSeal, status StatusFilter) bool {
	switch status {
	case StatusLocked:
		return !seal.IsUnlocked
	case StatusUnlocked:
		return seal.IsUnlocked
	default:
		return true
	}
}

func matchesSearch(seal *DecodedSeal, needle string) bool {
	if needle == "" {
		return true
	}
	if strings.Contains(strings.ToLower(seal.Title), needle) ||
		strings.Contains(strings.ToLower(seal.Content), needle) {
		return true
	}
	for _, tag := range seal.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}
