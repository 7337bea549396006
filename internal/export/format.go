package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/dusk-indust/agentflow/internal/domain"
)

// Format selects how a report is rendered.
type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatMermaid Format = "mermaid"
)

// ParseFormat validates a --format value. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatMermaid:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want text, json or mermaid)", domain.ErrInvalidInput, s)
	}
}

// Write renders v in format f.
func Write(w io.Writer, f Format, v any) error {
	switch f {
	case FormatJSON:
		return JSON(w, v)
	case FormatMermaid:
		diagram, err := Mermaid(v)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, diagram)
		return err
	default:
		return Markdown(w, v)
	}
}
