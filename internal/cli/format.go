package cli

import (
	"fmt"
	"math"
	"strings"
	"time"

	"crypto-analyzer/internal/models"
)

// notAvailable is printed for undefined indicator values.
const notAvailable = "n/a"

// FormatPrice formats a price with enough decimal places to show the
// significant digits of low-priced coins.
func FormatPrice(price float64) string {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return notAvailable
	}
	abs := math.Abs(price)
	switch {
	case abs >= 1000:
		return fmt.Sprintf("%.2f", price)
	case abs >= 1:
		return fmt.Sprintf("%.4f", price)
	case abs >= 0.01:
		return fmt.Sprintf("%.6f", price)
	case abs == 0:
		return "0"
	}
	return fmt.Sprintf("%.8f", price)
}

// FormatLevel formats an optional price level.
func FormatLevel(v models.Float) string {
	return FormatPrice(float64(v))
}

// FormatValue formats an indicator value with two decimals.
func FormatValue(v models.Float) string {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return notAvailable
	}
	return fmt.Sprintf("%.2f", f)
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatFraction formats a 0..1 fraction as a percentage.
func FormatFraction(f float64) string {
	return fmt.Sprintf("%.0f%%", f*100)
}

// FormatDistance formats the signed distance from price to level as a
// percentage of price.
func FormatDistance(price float64, level models.Float) string {
	l := float64(level)
	if price == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return notAvailable
	}
	return FormatPercent((l - price) / price * 100)
}

// FormatVolume formats volume in compact form.
func FormatVolume(volume float64) string {
	abs := math.Abs(volume)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%.2fB", volume/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.2fM", volume/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.2fK", volume/1e3)
	}
	return fmt.Sprintf("%.2f", volume)
}

// FormatTime formats a candle time in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04 UTC")
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	} else if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}

// FormatScore renders a 0-100 score with a ten-cell bar.
func FormatScore(score int) string {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	filled := score / 10
	return fmt.Sprintf("%3d %s%s", score, strings.Repeat("█", filled), strings.Repeat("░", 10-filled))
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
