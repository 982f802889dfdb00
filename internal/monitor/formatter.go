package monitor

import (
	"fmt"
	"math"
	"time"
)

// FormatMoney formats an amount as "$1,234.50", with a leading minus for
// negative values.
func FormatMoney(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	cents := int64(math.Round(amount * 100))
	whole, frac := cents/100, cents%100

	digits := fmt.Sprintf("%d", whole)
	var out []byte
	for i, d := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, d)
	}
	return fmt.Sprintf("%s$%s.%02d", sign, out, frac)
}

// FormatPercentage formats a whole percentage as "X%".
func FormatPercentage(pct int) string {
	return fmt.Sprintf("%d%%", pct)
}

// FormatDuration formats a duration as "Xh Ym", "Xm" or "Xs".
func FormatDuration(d time.Duration) string {
	seconds := int64(d.Seconds())
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// FormatAge formats how long ago t was relative to now.
func FormatAge(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return FormatDuration(now.Sub(t)) + " ago"
}
