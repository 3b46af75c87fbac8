package bot

import (
	"fmt"
	"strings"
	"time"

	"goals_bot/internal/model"
)

// Telegram limits, in characters.
const (
	maxCaptionLen = 1024
	maxTextLen    = 4096
)

var outcomeOrder = []model.Outcome{
	model.OutcomeMedia,
	model.OutcomeLink,
	model.OutcomeSuppressed,
	model.OutcomeFailed,
	model.OutcomeRejected,
}

// FormatCaption fits a title into a media caption.
func FormatCaption(title string) string {
	return truncate(strings.TrimSpace(title), maxCaptionLen)
}

// FormatText fits a message into a single Telegram text message.
func FormatText(text string) string {
	return truncate(text, maxTextLen)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// FormatStatus formats ledger counts and poll loop statistics.
func FormatStatus(counts map[model.LedgerState]int, st model.Stats, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ledger: %d queued, %d processed\n",
		counts[model.StateQueued], counts[model.StateProcessed])

	if st.Cycles == 0 {
		b.WriteString("No poll cycle has run yet.\n")
	} else {
		fmt.Fprintf(&b, "Cycles: %d\n", st.Cycles)
		fmt.Fprintf(&b, "Last cycle: started %s ago", now.Sub(st.LastCycleStart).Round(time.Second))
		if !st.LastCycleEnd.IsZero() && !st.LastCycleEnd.Before(st.LastCycleStart) {
			fmt.Fprintf(&b, ", took %s", st.LastCycleEnd.Sub(st.LastCycleStart).Round(time.Second))
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "Last fetch: %d items, %d accepted\n", st.LastFetched, st.LastAccepted)
	}
	if st.LastFetchError != "" {
		fmt.Fprintf(&b, "Last fetch error: %s\n", st.LastFetchError)
	}
	if st.Recovered > 0 {
		fmt.Fprintf(&b, "Recovered at startup: %d\n", st.Recovered)
	}

	parts := make([]string, 0, len(outcomeOrder))
	for _, o := range outcomeOrder {
		parts = append(parts, fmt.Sprintf("%s %d", o, st.Outcomes[o]))
	}
	fmt.Fprintf(&b, "Outcomes: %s", strings.Join(parts, ", "))
	return b.String()
}

// FormatRecent formats the latest processed ledger entries.
func FormatRecent(entries []model.LedgerEntry) string {
	if len(entries) == 0 {
		return "Nothing processed yet."
	}
	var b strings.Builder
	b.WriteString("Recently processed:\n")
	for _, e := range entries {
		when := "?"
		if e.ProcessedAt != nil {
			when = e.ProcessedAt.UTC().Format("2006-01-02 15:04 UTC")
		}
		title := e.Title
		if title == "" {
			title = e.ID
		}
		fmt.Fprintf(&b, "\n[%s] %s\n%s\n", e.Outcome, when, title)
		if e.URL != "" {
			fmt.Fprintf(&b, "%s\n", e.URL)
		}
	}
	return b.String()
}
