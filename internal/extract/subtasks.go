package extract

import (
	"strings"

	"github.com/dusk-indust/agentflow/internal/domain"
)

// DefaultKind is assigned to a task block that names no type.
const DefaultKind = "default"

type pendingTask struct {
	kind        string
	description strings.Builder
	hasDesc     bool
}

// Subtasks parses repeated <task><type/><description/></task> blocks in
// order. A block without a type gets DefaultKind; a block without a
// description is dropped. Descriptions may span several lines.
func Subtasks(block string) []domain.Subtask {
	var (
		out       []domain.Subtask
		cur       *pendingTask
		capturing bool
	)

	flush := func() {
		if cur == nil {
			return
		}
		desc := strings.TrimSpace(cur.description.String())
		if cur.hasDesc && desc != "" {
			kind := strings.TrimSpace(cur.kind)
			if kind == "" {
				kind = DefaultKind
			}
			out = append(out, domain.Subtask{Kind: kind, Description: desc})
		}
		cur = nil
		capturing = false
	}

	for _, raw := range strings.Split(Normalize(block), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if strings.Contains(line, "<task>") {
			flush()
			cur = &pendingTask{}
			line = strings.TrimSpace(line[strings.Index(line, "<task>")+len("<task>"):])
		}
		if cur == nil {
			cur = &pendingTask{}
		}

		if capturing {
			if i := strings.Index(line, "</description>"); i >= 0 {
				appendLine(&cur.description, line[:i])
				capturing = false
			} else {
				appendLine(&cur.description, line)
			}
		} else {
			if v, ok := inline(line, "type"); ok {
				cur.kind = v
			}
			if v, ok := inline(line, "description"); ok {
				cur.description.Reset()
				cur.description.WriteString(v)
				cur.hasDesc = true
			} else if i := strings.Index(line, "<description>"); i >= 0 {
				cur.description.Reset()
				appendLine(&cur.description, line[i+len("<description>"):])
				cur.hasDesc = true
				capturing = true
			}
		}

		if strings.Contains(line, "</task>") {
			flush()
		}
	}
	flush()
	return out
}

// inline returns the trimmed value of <tag>value</tag> on a single line.
func inline(line, tag string) (string, bool) {
	open, closing := "<"+tag+">", "</"+tag+">"
	i := strings.Index(line, open)
	if i < 0 {
		return "", false
	}
	rest := line[i+len(open):]
	j := strings.Index(rest, closing)
	if j < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:j]), true
}

func appendLine(b *strings.Builder, s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	b.WriteString(s)
}
