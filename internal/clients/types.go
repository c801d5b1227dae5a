package clients

import (
	"fmt"
	"strings"
)

// ExtensionType is the capability an extension is loaded for.
type ExtensionType int

const (
	Database ExtensionType = iota
	Stream
	Subtitle
)

// Types lists every extension type in display order.
var Types = []ExtensionType{Database, Stream, Subtitle}

func (t ExtensionType) String() string {
	switch t {
	case Database:
		return "database"
	case Stream:
		return "stream"
	case Subtitle:
		return "subtitle"
	default:
		return "unknown"
	}
}

// Feature returns the feature tag an installed package declares for t.
func (t ExtensionType) Feature(prefix string) string {
	return prefix + ".extension." + t.String()
}

// ParseExtensionType accepts the lowercase names returned by String.
func ParseExtensionType(s string) (ExtensionType, error) {
	for _, t := range Types {
		if strings.EqualFold(strings.TrimSpace(s), t.String()) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown extension type %q (valid: database, stream, subtitle)", s)
}
