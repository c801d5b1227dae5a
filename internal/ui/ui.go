// Package ui runs fzf for interactive selection. Items go to fzf as plain
// text on stdin; no preview commands or shell-evaluated strings are built
// from remote data.
package ui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// ErrCancelled is returned when the user aborts a prompt.
var ErrCancelled = errors.New("selection cancelled")

// Interactive reports whether stdin and stdout are both terminals.
func Interactive() bool {
	return IsTerminal(os.Stdin) && IsTerminal(os.Stdout)
}

// IsTerminal reports whether f is a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Select presents items via fzf and returns the chosen index.
func Select(ctx context.Context, prompt string, items []string) (int, error) {
	if len(items) == 0 {
		return -1, fmt.Errorf("no items to select from")
	}

	out, err := fzf(ctx, numbered(items),
		"--prompt", prompt+" > ",
		"--height", "40%",
		"--reverse",
		"--with-nth", "2..", // hide the index column
		"--delimiter", "\t",
		"--no-multi",
		"--cycle",
	)
	if err != nil {
		return -1, err
	}
	return parseSelection(out, len(items))
}

// Choose is Select over arbitrary values, labelled by label.
func Choose[T any](ctx context.Context, prompt string, items []T, label func(T) string) (T, error) {
	labels := make([]string, len(items))
	for i, it := range items {
		labels[i] = label(it)
	}
	idx, err := Select(ctx, prompt, labels)
	if err != nil {
		var zero T
		return zero, err
	}
	return items[idx], nil
}

// Confirm asks a yes/no question.
func Confirm(ctx context.Context, prompt string) (bool, error) {
	idx, err := Select(ctx, prompt, []string{"Yes", "No"})
	if err != nil {
		return false, err
	}
	return idx == 0, nil
}

// Input prompts for free text using fzf's --print-query.
func Input(ctx context.Context, prompt string) (string, error) {
	out, err := fzf(ctx, "",
		"--prompt", prompt+" > ",
		"--height", "10%",
		"--reverse",
		"--print-query",
		"--no-info",
	)
	// fzf exits 1 with --print-query when nothing matched.
	if err != nil && !errors.Is(err, errNoMatch) {
		return "", err
	}
	query := strings.TrimSpace(strings.SplitN(out, "\n", 2)[0])
	if query == "" {
		return "", fmt.Errorf("no input provided")
	}
	return query, nil
}

var errNoMatch = errors.New("fzf: no match")

func fzf(ctx context.Context, input string, args ...string) (string, error) {
	path, err := exec.LookPath("fzf")
	if err != nil {
		return "", fmt.Errorf("fzf not found in PATH: %w", err)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = strings.NewReader(input)
	cmd.Stderr = os.Stderr
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			switch exitErr.ExitCode() {
			case 1:
				return stdout.String(), errNoMatch
			case 130:
				return "", ErrCancelled
			}
		}
		return "", fmt.Errorf("fzf failed: %w", err)
	}
	return stdout.String(), nil
}

func numbered(items []string) string {
	var b strings.Builder
	for i, item := range items {
		// Tabs and newlines in item text would break the index column.
		clean := strings.NewReplacer("\t", " ", "\n", " ", "\r", " ").Replace(item)
		fmt.Fprintf(&b, "%d\t%s\n", i, clean)
	}
	return b.String()
}

func parseSelection(out string, n int) (int, error) {
	selected := strings.TrimSpace(out)
	if selected == "" {
		return -1, fmt.Errorf("no selection made")
	}
	field, _, _ := strings.Cut(selected, "\t")
	idx, err := strconv.Atoi(field)
	if err != nil {
		return -1, fmt.Errorf("parsing selection index: %w", err)
	}
	if idx < 0 || idx >= n {
		return -1, fmt.Errorf("selection index %d out of range", idx)
	}
	return idx, nil
}
