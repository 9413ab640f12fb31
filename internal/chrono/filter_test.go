package chrono_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronovault/internal/chrono"
)

func TestParseStatusFilter(t *testing.T) {
	tests := map[string]chrono.StatusFilter{
		"":         chrono.StatusAll,
		"all":      chrono.StatusAll,
		" Locked ": chrono.StatusLocked,
		"UNLOCKED": chrono.StatusUnlocked,
	}
	for in, want := range tests {
		got, err := chrono.ParseStatusFilter(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := chrono.ParseStatusFilter("sealed")
	assert.Error(t, err)
}

func TestFilterSeals(t *testing.T) {
	seal := func(title, content string, unlocked bool, tags ...string) *chrono.DecodedSeal {
		return &chrono.DecodedSeal{
			Seal:       chrono.Seal{Title: title, Content: content, Tags: tags},
			IsUnlocked: unlocked,
		}
	}
	seals := []*chrono.DecodedSeal{
		seal("Birthday", "cake", true, "family"),
		seal("Graduation", "speech", false),
		seal("Trip", "Lisbon", false, "travel", "Family"),
	}
	titles := func(ss []*chrono.DecodedSeal) []string {
		out := []string{}
		for _, s := range ss {
			out = append(out, s.Title)
		}
		return out
	}

	tests := []struct {
		name   string
		search string
		status chrono.StatusFilter
		want   []string
	}{
		{"everything", "", chrono.StatusAll, []string{"Birthday", "Graduation", "Trip"}},
		{"locked", "", chrono.StatusLocked, []string{"Graduation", "Trip"}},
		{"unlocked", "", chrono.StatusUnlocked, []string{"Birthday"}},
		{"title search is case-insensitive", "GRAD", chrono.StatusAll, []string{"Graduation"}},
		{"content search", "lisbon", chrono.StatusAll, []string{"Trip"}},
		{"tag search", "family", chrono.StatusAll, []string{"Birthday", "Trip"}},
		{"search and status", "family", chrono.StatusLocked, []string{"Trip"}},
		{"no match", "wedding", chrono.StatusAll, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, titles(chrono.FilterSeals(seals, tt.search, tt.status)))
		})
	}
}
