package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	apperrors "crypto-analyzer/internal/errors"
)

// Profile holds the thresholds that turn an indicator snapshot into a
// direction. RSI bounds are strict: a Buy needs BuyRSIAbove < RSI < BuyRSIBelow.
type Profile struct {
	Name         string
	BuyRSIAbove  float64
	BuyRSIBelow  float64
	SellRSIAbove float64
	SellRSIBelow float64
	RequireMACD  bool // Buy needs histogram > 0, Sell needs histogram < 0
}

// Profile names.
const (
	ProfileMomentum = "momentum"
	ProfileClassic  = "classic"
)

// MomentumProfile is the default: trend filter plus RSI hysteresis (40 to
// enter long, 60 to enter short) and a MACD histogram gate.
func MomentumProfile() Profile {
	return Profile{
		Name:         ProfileMomentum,
		BuyRSIAbove:  40,
		BuyRSIBelow:  math.Inf(1),
		SellRSIAbove: math.Inf(-1),
		SellRSIBelow: 60,
		RequireMACD:  true,
	}
}

// ClassicProfile avoids overbought buys and oversold sells and ignores MACD.
func ClassicProfile() Profile {
	return Profile{
		Name:         ProfileClassic,
		BuyRSIAbove:  math.Inf(-1),
		BuyRSIBelow:  70,
		SellRSIAbove: 30,
		SellRSIBelow: math.Inf(1),
		RequireMACD:  false,
	}
}

var profiles = map[string]func() Profile{
	ProfileMomentum: MomentumProfile,
	ProfileClassic:  ClassicProfile,
}

// LookupProfile returns the named profile. An empty name selects momentum.
func LookupProfile(name string) (Profile, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return MomentumProfile(), nil
	}
	fn, ok := profiles[name]
	if !ok {
		return Profile{}, apperrors.NewValidationError("profile", name,
			fmt.Sprintf("must be one of %s", strings.Join(ProfileNames(), ", ")), apperrors.ErrConfigInvalid)
	}
	return fn(), nil
}

// ProfileNames returns the known profile names in sorted order.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
