package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"chronovault/internal/chrono"
	"chronovault/internal/media"
)

var (
	lockedStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	unlockedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	forcedStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	titleStyle    = lipgloss.NewStyle().Bold(true)
	faintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// badge renders the fixed-width lock state label.
func badge(mode chrono.RevealMode) string {
	switch mode {
	case chrono.RevealUnlocked:
		return unlockedStyle.Render("UNLOCKED      ")
	case chrono.RevealForced:
		return forcedStyle.Render("FORCE-REVEALED")
	default:
		return lockedStyle.Render("LOCKED        ")
	}
}

func shortID(id string) string {
	if len(id) <= 14 {
		return id
	}
	return id[:8] + "…" + id[len(id)-4:]
}

// renderSealRow writes one list line: state, id, title and either the
// coarse countdown or the unlock date.
func renderSealRow(w io.Writer, seal *chrono.DecodedSeal, now time.Time) {
	mode := chrono.RevealLocked
	status := ""
	if seal.IsUnlocked {
		mode = chrono.RevealUnlocked
		status = "unlocked " + seal.UnlockAt().Local().Format("2006-01-02 15:04")
	} else if c := chrono.RemainingAt(seal.UnlockTime, now); c != nil {
		status = c.Summary()
	}

	title := seal.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(w, "%s  %s  %s  %s\n", badge(mode), faintStyle.Render(shortID(seal.ID)), titleStyle.Render(title), faintStyle.Render(status))
}

// renderView writes a full seal. Locked seals show only the envelope and
// countdown.
func renderView(w io.Writer, view *chrono.SealView) {
	seal := view.Seal
	fmt.Fprintf(w, "%s  %s\n", badge(view.Mode), titleStyle.Render(seal.Title))
	fmt.Fprintf(w, "id:       %s\n", seal.ID)
	fmt.Fprintf(w, "creator:  %s\n", seal.Creator)
	fmt.Fprintf(w, "sealed:   %s (block %d)\n", seal.SubmittedAt.Local().Format("2006-01-02 15:04:05"), seal.BlockNumber)
	fmt.Fprintf(w, "unlocks:  %s\n", seal.UnlockAt().Local().Format("2006-01-02 15:04:05"))
	if view.Countdown != nil {
		fmt.Fprintf(w, "remaining: %s\n", view.Countdown.String())
	}
	if seal.Emotion != "" {
		fmt.Fprintf(w, "emotion:  %s\n", seal.Emotion)
	}
	if len(seal.Tags) > 0 {
		fmt.Fprintf(w, "tags:     %s\n", strings.Join(seal.Tags, ", "))
	}
	if extra := seal.ExtraKeys(); len(extra) > 0 {
		fmt.Fprintf(w, "fields:   %s\n", strings.Join(extra, ", "))
	}

	if !view.Revealable() {
		fmt.Fprintf(w, "\n%s\n", faintStyle.Render(fmt.Sprintf("This seal is locked. %d attachment(s). Use --force to open it early.", len(seal.MediaIDs))))
		return
	}

	fmt.Fprintf(w, "\n%s\n", view.Content)
	if len(view.Media) > 0 {
		fmt.Fprintln(w)
		for _, a := range view.Media {
			renderAsset(w, a)
		}
	}
	if missing := len(seal.MediaIDs) - len(view.Media); missing > 0 {
		fmt.Fprintln(w, faintStyle.Render(fmt.Sprintf("%d attachment(s) could not be resolved", missing)))
	}
}

func renderAsset(w io.Writer, a *chrono.MediaAsset) {
	fmt.Fprintf(w, "[%s] %s  %s  %s\n", a.Type, a.Name, faintStyle.Render(media.FormatFileSize(a.Size)), a.URL)
}

// cliNotifier prints service notifications on stderr.
type cliNotifier struct {
	w io.Writer
}

func (n *cliNotifier) Notify(note chrono.Notification) {
	switch note.Level {
	case chrono.NotifyLoading:
		fmt.Fprintln(n.w, faintStyle.Render("… "+note.Message))
	case chrono.NotifySuccess:
		fmt.Fprintln(n.w, unlockedStyle.Render("✓ ")+note.Message)
	case chrono.NotifyError:
		fmt.Fprintln(n.w, errorStyle.Render("✗ "+note.Message))
	default:
		fmt.Fprintln(n.w, note.Message)
	}
}

var _ chrono.Notifier = (*cliNotifier)(nil)
