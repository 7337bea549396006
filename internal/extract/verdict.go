package extract

import (
	"strings"

	"github.com/dusk-indust/agentflow/internal/domain"
)

// DefaultApprovalToken is the literal an evaluator reply must start with.
const DefaultApprovalToken = "APPROVED"

// Verdict classifies an evaluator reply. Only the first whitespace-delimited
// token is considered: it must equal token case-insensitively once markdown
// emphasis and trailing punctuation are removed. Feedback is the whole reply.
func Verdict(text, token string) domain.Verdict {
	if token == "" {
		token = DefaultApprovalToken
	}
	text = strings.TrimSpace(strings.ReplaceAll(text, "\u00a0", " "))

	v := domain.Verdict{Feedback: text}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return v
	}
	first := strings.Trim(fields[0], "*_`")
	first = strings.TrimRight(first, ".:,;!-")
	v.Approved = strings.EqualFold(first, token)
	return v
}
