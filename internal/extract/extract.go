// Package extract pulls tagged sections and task lists out of untrusted
// oracle text. Nothing here returns an error for missing structure; callers
// get an empty value or the raw text plus a warning.
package extract

import (
	"regexp"
	"strings"
	"sync"

	"github.com/dusk-indust/agentflow/internal/domain"
)

// Tags used on the wire between the planner, workers and the extractor.
const (
	TagAnalysis = "analysis"
	TagTasks    = "tasks"
	TagResponse = "response"
)

var sectionPatterns sync.Map // tag -> *regexp.Regexp

func sectionPattern(tag string) *regexp.Regexp {
	if re, ok := sectionPatterns.Load(tag); ok {
		return re.(*regexp.Regexp)
	}
	q := regexp.QuoteMeta(tag)
	re := regexp.MustCompile(`(?s)<` + q + `>(.*?)</` + q + `>`)
	actual, _ := sectionPatterns.LoadOrStore(tag, re)
	return actual.(*regexp.Regexp)
}

// Section returns the trimmed content of the first <tag>...</tag> span in
// text, or "" when there is none.
func Section(text, tag string) string {
	m := sectionPattern(tag).FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// SectionOrRaw returns the section content when present and non-empty.
// Otherwise it returns the trimmed raw text and a *domain.MalformedStructureError
// the caller should surface as a warning.
func SectionOrRaw(text, tag string) (string, error) {
	if s := Section(text, tag); s != "" {
		return s, nil
	}
	return strings.TrimSpace(text), &domain.MalformedStructureError{Tag: tag}
}

// Normalize replaces non-breaking spaces, trims the payload and strips a
// single wrapping markdown code fence.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = text[i+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
	}
	if strings.HasSuffix(text, "```") {
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}
