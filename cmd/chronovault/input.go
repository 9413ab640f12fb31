package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

// passphraseEnv lets scripts supply the wallet passphrase non-interactively.
const passphraseEnv = "CHRONOVAULT_PASSPHRASE"

// Test seams for the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
	openTTY      = func() (*os.File, error) { return os.OpenFile("/dev/tty", os.O_RDWR, 0) }
)

// readPassphrase returns the wallet passphrase from the environment or, when
// unset, prompts for it on the terminal without echo. When stdin carries
// piped content the controlling terminal is used instead.
func readPassphrase(prompt string) (string, error) {
	if p := os.Getenv(passphraseEnv); p != "" {
		return p, nil
	}
	fd, done, err := passphraseFD()
	if err != nil {
		return "", err
	}
	defer done()

	fmt.Fprint(os.Stderr, prompt)
	b, err := readPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

func passphraseFD() (int, func(), error) {
	if fd := int(os.Stdin.Fd()); isTerminal(fd) {
		return fd, func() {}, nil
	}
	tty, err := openTTY()
	if err != nil {
		return 0, nil, fmt.Errorf("stdin is not a terminal and no terminal is available to prompt on (%v): set %s", err, passphraseEnv)
	}
	return int(tty.Fd()), func() { tty.Close() }, nil
}

// readNewPassphrase prompts twice and requires both entries to match.
func readNewPassphrase() (string, error) {
	if p := os.Getenv(passphraseEnv); p != "" {
		return p, nil
	}
	first, err := readPassphrase("New passphrase: ")
	if err != nil {
		return "", err
	}
	second, err := readPassphrase("Confirm passphrase: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", fmt.Errorf("passphrases do not match")
	}
	return first, nil
}

// parseUnlock accepts either a duration from now ("36h", "90m") or an
// RFC 3339 timestamp. The empty string returns the zero time, which leaves
// the default unlock delay to the service. Whether the result lies in the
// future is checked when the seal is created.
func parseUnlock(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(d), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid unlock time %q, expected a duration or RFC3339", s)
	}
	return t, nil
}

// readContent joins args into the seal body. With no args the body is read
// from stdin when it is not a terminal.
func readContent(args []string, stdin *os.File) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	info, err := stdin.Stat()
	if err != nil {
		return "", fmt.Errorf("cannot stat stdin: %w", err)
	}
	if info.Mode()&os.ModeCharDevice != 0 {
		return "", fmt.Errorf("no content given: pass it as arguments or pipe it on stdin")
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimRight(string(b), "\n"), nil
}
