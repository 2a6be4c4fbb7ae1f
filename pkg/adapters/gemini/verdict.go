package gemini

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
)

var scenePrefix = regexp.MustCompile(`(?i)^\s*[-*]?\s*scene\s+(\d+)\s*(?:\[(\w+)\])?\s*[:.-]\s*(.+)$`)

// ParseVerdict interprets a free-text review.
// A reply ending in REVISION_NEEDED yields one issue per preceding line that names a
// scene, or the whole text as a single issue. Exactly SATISFIED yields no issues.
// Anything else is treated as a revision request carrying the whole reply.
func ParseVerdict(text string) ports.Evaluation {
	text = strings.TrimSpace(strings.Trim(strings.TrimSpace(text), `"`))

	switch {
	case strings.EqualFold(text, string(ports.VerdictSatisfied)):
		return ports.Evaluation{Verdict: ports.VerdictSatisfied}
	case strings.HasSuffix(text, string(ports.VerdictRevisionNeeded)):
		body := strings.TrimSpace(strings.TrimSuffix(text, string(ports.VerdictRevisionNeeded)))
		return ports.Evaluation{Verdict: ports.VerdictRevisionNeeded, Issues: parseIssues(body)}
	default:
		return ports.Evaluation{Verdict: ports.VerdictRevisionNeeded, Issues: parseIssues(text)}
	}
}

func parseIssues(body string) []domain.Issue {
	if body == "" {
		return nil
	}

	var issues []domain.Issue
	for _, line := range strings.Split(body, "\n") {
		m := scenePrefix.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		issues = append(issues, domain.Issue{
			Scene:       n,
			Severity:    domain.ParseSeverity(m[2]),
			Description: strings.TrimSpace(m[3]),
		})
	}
	if len(issues) > 0 {
		return issues
	}
	return []domain.Issue{{Severity: domain.SeverityMedium, Description: body}}
}
