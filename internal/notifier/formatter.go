package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"MarketPulse/internal/model"
)

var labelIcon = map[model.Label]string{
	model.LabelVeryBullish: "🚀",
	model.LabelBullish:     "📈",
	model.LabelNeutral:     "➖",
	model.LabelBearish:     "📉",
	model.LabelVeryBearish: "🔻",
}

// FormatSnapshot formats the current snapshot into a Telegram HTML message.
func FormatSnapshot(snap *model.Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 <b>MarketPulse</b> | %s\n\n", snap.Date)
	fmt.Fprintf(&b, "%s Sentiment: <b>%+.2f</b> (%s)\n\n", labelIcon[snap.Sentiment.Label], snap.Sentiment.Score, snap.Sentiment.Label)

	keys := make([]string, 0, len(snap.Indices))
	for k := range snap.Indices {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		q := snap.Indices[k]
		fmt.Fprintf(&b, "%s: %.2f (%+.2f, %+.2f%%)", html.EscapeString(q.Name), q.Current, q.Change, q.ChangePercent)
		if e, ok := snap.Sentiment.PerIndex[k]; ok {
			fmt.Fprintf(&b, " | %+.1f", e.Score)
		}
		b.WriteString("\n")
	}
	if len(keys) == 0 {
		b.WriteString("No index data.\n")
	}
	return b.String()
}
