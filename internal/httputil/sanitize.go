package httputil

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// validIDPattern matches extension content IDs: letters, digits, hyphens,
// underscores, dots and slashes.
var validIDPattern = regexp.MustCompile(`^[a-zA-Z0-9/._-]+$`)

// ValidateURL checks that a URL is well-formed and uses HTTPS.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("only HTTPS URLs are allowed, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	return nil
}

// ValidateID checks that a content ID contains only safe characters.
func ValidateID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("ID cannot be empty")
	case len(id) > 256:
		return fmt.Errorf("ID too long: %d characters", len(id))
	case !validIDPattern.MatchString(id):
		return fmt.Errorf("ID contains invalid characters: %q", id)
	case strings.Contains(id, ".."):
		return fmt.Errorf("ID contains path traversal: %q", id)
	}
	return nil
}

var filenameReplacer = strings.NewReplacer(
	"..", "_",
	"/", "_",
	"\\", "_",
	"\x00", "",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// SanitizeFilename strips directory components and characters that are
// unsafe in file names on common platforms.
func SanitizeFilename(name string) string {
	name = filenameReplacer.Replace(filepath.Base(name))
	if name == "" || name == "." {
		return "untitled"
	}
	return name
}

// SafeJoin sanitizes name and joins it to dir, refusing results that
// escape dir.
func SafeJoin(dir, name string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	full := filepath.Join(absDir, SanitizeFilename(name))
	if !strings.HasPrefix(full, absDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: %q escapes %q", full, absDir)
	}
	return full, nil
}
