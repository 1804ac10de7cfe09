package core

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// ScanConfig is a snapshot of the scanner settings. It is read-only to the scanner.
type ScanConfig struct {
	QuoteSuffix string  `json:"quote_suffix" yaml:"quote_suffix"` // e.g. USDT
	MinVolume   float64 `json:"min_volume" yaml:"min_volume"`     // minimum 24h quote turnover
	PivotPeriod int     `json:"pivot_period" yaml:"pivot_period"` // zigzag lookback on each side
	Timeframe1  string  `json:"timeframe_1" yaml:"timeframe_1"`   // human label, resolved by the provider
	Timeframe2  string  `json:"timeframe_2" yaml:"timeframe_2"`
	WaitSeconds int     `json:"wait_seconds" yaml:"wait_seconds"` // pause between cycles
}

// Missing returns the names of required settings that are not set
func (c ScanConfig) Missing() []string {
	var missing []string
	if c.PivotPeriod <= 0 {
		missing = append(missing, "pivot_period")
	}
	if c.Timeframe1 == "" {
		missing = append(missing, "timeframe_1")
	}
	if c.Timeframe2 == "" {
		missing = append(missing, "timeframe_2")
	}
	return missing
}

// ScanUpdate lists settings to change. A nil field is left alone, so zero values such as a
// minimum volume of 0 or an empty quote suffix can be set.
type ScanUpdate struct {
	QuoteSuffix *string  `json:"quote_suffix,omitempty"`
	MinVolume   *float64 `json:"min_volume,omitempty"`
	PivotPeriod *int     `json:"pivot_period,omitempty"`
	Timeframe1  *string  `json:"timeframe_1,omitempty"`
	Timeframe2  *string  `json:"timeframe_2,omitempty"`
	WaitSeconds *int     `json:"wait_seconds,omitempty"`
}

func override[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Empty reports whether u changes nothing
func (u ScanUpdate) Empty() bool {
	return u == ScanUpdate{}
}

// Apply returns c with every field set in u
func (c ScanConfig) Apply(u ScanUpdate) ScanConfig {
	override(&c.QuoteSuffix, u.QuoteSuffix)
	override(&c.MinVolume, u.MinVolume)
	override(&c.PivotPeriod, u.PivotPeriod)
	override(&c.Timeframe1, u.Timeframe1)
	override(&c.Timeframe2, u.Timeframe2)
	override(&c.WaitSeconds, u.WaitSeconds)
	return c
}

// Merge returns u with every field set in other replacing its own
func (u ScanUpdate) Merge(other ScanUpdate) ScanUpdate {
	u.QuoteSuffix = lo.CoalesceOrEmpty(other.QuoteSuffix, u.QuoteSuffix)
	u.MinVolume = lo.CoalesceOrEmpty(other.MinVolume, u.MinVolume)
	u.PivotPeriod = lo.CoalesceOrEmpty(other.PivotPeriod, u.PivotPeriod)
	u.Timeframe1 = lo.CoalesceOrEmpty(other.Timeframe1, u.Timeframe1)
	u.Timeframe2 = lo.CoalesceOrEmpty(other.Timeframe2, u.Timeframe2)
	u.WaitSeconds = lo.CoalesceOrEmpty(other.WaitSeconds, u.WaitSeconds)
	return u
}

// Validate rejects values the scanner cannot run with. A wait of 0 falls back to the default.
func (u ScanUpdate) Validate() error {
	switch {
	case u.MinVolume != nil && *u.MinVolume < 0:
		return fmt.Errorf("%w: min_volume must not be negative", ErrInvalidSettings)
	case u.PivotPeriod != nil && *u.PivotPeriod <= 0:
		return fmt.Errorf("%w: pivot_period must be positive", ErrInvalidSettings)
	case u.WaitSeconds != nil && *u.WaitSeconds < 0:
		return fmt.Errorf("%w: wait_seconds must not be negative", ErrInvalidSettings)
	case u.Timeframe1 != nil && strings.TrimSpace(*u.Timeframe1) == "":
		return fmt.Errorf("%w: timeframe_1 must not be empty", ErrInvalidSettings)
	case u.Timeframe2 != nil && strings.TrimSpace(*u.Timeframe2) == "":
		return fmt.Errorf("%w: timeframe_2 must not be empty", ErrInvalidSettings)
	}
	return nil
}

// TelegramSettings holds configuration for Telegram integration
type TelegramSettings struct {
	Enabled bool    `yaml:"enabled"`          // Whether Telegram notifications are enabled
	Token   string  `yaml:"token"`            // Telegram bot token
	Admins  []int64 `yaml:"admins,omitempty"` // Users allowed to control the scanner
}
