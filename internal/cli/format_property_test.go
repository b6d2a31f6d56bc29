package cli

import (
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"crypto-analyzer/internal/models"
)

func TestFormatPriceProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	// The printed price parses back to within its last printed digit.
	properties.Property("FormatPrice preserves value", prop.ForAll(
		func(price float64) bool {
			formatted := FormatPrice(price)
			parsed, err := strconv.ParseFloat(formatted, 64)
			if err != nil {
				t.Logf("FormatPrice(%v) = %q does not parse: %v", price, formatted, err)
				return false
			}

			decimals := 0
			if i := strings.IndexByte(formatted, '.'); i >= 0 {
				decimals = len(formatted) - i - 1
			}
			tolerance := math.Pow(10, -float64(decimals))
			if math.Abs(parsed-price) > tolerance {
				t.Logf("FormatPrice(%v) = %q drifts by %v", price, formatted, parsed-price)
				return false
			}
			return true
		},
		gen.Float64Range(-1e6, 1e6),
	))

	// Sub-cent prices keep eight decimals.
	properties.Property("FormatPrice keeps precision for small prices", prop.ForAll(
		func(price float64) bool {
			if price == 0 {
				return true
			}
			formatted := FormatPrice(price)
			parts := strings.Split(formatted, ".")
			return len(parts) == 2 && len(parts[1]) == 8
		},
		gen.Float64Range(0.00000001, 0.0099),
	))

	properties.Property("FormatPercent is signed and suffixed", prop.ForAll(
		func(value float64) bool {
			formatted := FormatPercent(value)
			if !strings.HasSuffix(formatted, "%") {
				return false
			}
			if value > 0 && !strings.HasPrefix(formatted, "+") {
				return false
			}
			return true
		},
		gen.Float64Range(-100, 100),
	))

	properties.Property("FormatVolume uses correct units", prop.ForAll(
		func(volume float64) bool {
			formatted := FormatVolume(volume)
			switch {
			case volume >= 1e9:
				return strings.HasSuffix(formatted, "B")
			case volume >= 1e6:
				return strings.HasSuffix(formatted, "M")
			case volume >= 1e3:
				return strings.HasSuffix(formatted, "K")
			}
			_, err := strconv.ParseFloat(formatted, 64)
			return err == nil
		},
		gen.Float64Range(0, 1e12),
	))

	properties.TestingRun(t)
}

func TestFormatExamples(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"large price", FormatPrice(43250.5), "43250.50"},
		{"mid price", FormatPrice(2.5), "2.5000"},
		{"small price", FormatPrice(0.5), "0.500000"},
		{"tiny price", FormatPrice(0.00001234), "0.00001234"},
		{"zero price", FormatPrice(0), "0"},
		{"nan price", FormatPrice(math.NaN()), "n/a"},
		{"undefined level", FormatLevel(models.Float(math.NaN())), "n/a"},
		{"indicator value", FormatValue(models.Float(54.321)), "54.32"},
		{"undefined value", FormatValue(models.Float(math.Inf(1))), "n/a"},
		{"positive percent", FormatPercent(1.5), "+1.50%"},
		{"negative percent", FormatPercent(-2.5), "-2.50%"},
		{"zero percent", FormatPercent(0), "0.00%"},
		{"fraction", FormatFraction(0.7692), "77%"},
		{"distance below", FormatDistance(200, models.Float(190)), "-5.00%"},
		{"distance above", FormatDistance(200, models.Float(230)), "+15.00%"},
		{"distance undefined", FormatDistance(200, models.Float(math.NaN())), "n/a"},
		{"volume", FormatVolume(1_234_567), "1.23M"},
		{"candle time", FormatTime(time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)), "2024-03-01 14:00 UTC"},
		{"duration", FormatDuration(90 * time.Minute), "1h 30m"},
		{"score", FormatScore(50), " 50 █████░░░░░"},
		{"score clamp", FormatScore(130), "100 ██████████"},
		{"truncate", TruncateString("BTCUSDT-PERPETUAL", 10), "BTCUSDT..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
