package standup

import (
	"strings"

	"github.com/wildlifechorus/standup-bot/internal/domain"
)

// Interview questions in order. A "-" reply to a skippable question is the
// usual shorthand for /skip, so the prompts mention it.
const (
	questionYesterday = "What did you do yesterday? (/skip if nothing)"
	questionToday     = "What will you do today?"
	questionBlockers  = "Anything blocking you? (/skip if nothing)"
)

func questionFor(st State) string {
	switch st {
	case AwaitingYesterday:
		return questionYesterday
	case AwaitingToday:
		return questionToday
	case AwaitingBlockers:
		return questionBlockers
	}
	return ""
}

// Summary renders the compiled standup posted to the shared channel.
// Sections answered with skip are left out entirely.
func Summary(r *domain.Response) string {
	var b strings.Builder
	b.WriteString("📋 Standup — @")
	b.WriteString(r.Handle)
	b.WriteString(" (")
	b.WriteString(r.Day)
	b.WriteString(")\n")

	if r.Yesterday != "" {
		b.WriteString("\nYesterday:\n")
		b.WriteString(r.Yesterday)
		b.WriteString("\n")
	}
	b.WriteString("\nToday:\n")
	b.WriteString(r.Today)
	b.WriteString("\n")
	if r.Blockers != "" {
		b.WriteString("\nBlockers:\n")
		b.WriteString(r.Blockers)
		b.WriteString("\n")
	}
	return b.String()
}
