package decision

import (
	"strconv"
	"strings"

	"github.com/brensch/broadside/api"
)

// NoMovement is shown when the engine returned an empty summary.
const NoMovement = "No movement returned by the AI."

// MostExplored returns the candidate with strictly the most visits; on a
// tie the first one wins.
func MostExplored(summary []api.SummaryEntry) (api.SummaryEntry, bool) {
	if len(summary) == 0 {
		return api.SummaryEntry{}, false
	}
	best := summary[0]
	for _, e := range summary[1:] {
		if e.Visits > best.Visits {
			best = e
		}
	}
	return best, true
}

// JoinActions lists the candidates as coordinate pairs, the last one joined
// with "and".
func JoinActions(summary []api.SummaryEntry) string {
	parts := make([]string, len(summary))
	for i, e := range summary {
		parts[i] = e.Action.String()
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
}

// Describe builds the one-line explanation of the engine's last decision.
func Describe(summary []api.SummaryEntry) string {
	best, ok := MostExplored(summary)
	if !ok {
		return NoMovement
	}
	var sb strings.Builder
	sb.WriteString("Evaluated movements: ")
	sb.WriteString(JoinActions(summary))
	sb.WriteString(". Most explored: ")
	sb.WriteString(best.Action.String())
	sb.WriteString(" with ")
	sb.WriteString(strconv.Itoa(best.Visits))
	sb.WriteString(" visits and ")
	sb.WriteString(strconv.Itoa(best.Wins))
	sb.WriteString(" victories (ratio ")
	sb.WriteString(strconv.FormatFloat(best.WinRate, 'f', 2, 64))
	sb.WriteString(").")
	return sb.String()
}
