package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/raykavin/fibscan/pkg/core"

	"github.com/xhit/go-str2duration/v2"
)

// DefaultPeriods maps human timeframe labels to exchange interval codes
var DefaultPeriods = map[string]string{
	"1 minute":   "1m",
	"5 minutes":  "5m",
	"15 minutes": "15m",
	"30 minutes": "30m",
	"1 hour":     "1h",
	"4 hours":    "4h",
	"1 day":      "1d",
}

// Provider serves scan settings from file defaults overlaid by the settings store
type Provider struct {
	mu       sync.Mutex
	defaults core.ScanConfig
	store    core.SettingsStorage
}

// NewProvider creates a provider. store may be nil, in which case only defaults are served.
func NewProvider(defaults core.ScanConfig, store core.SettingsStorage) *Provider {
	return &Provider{defaults: defaults, store: store}
}

// Settings returns the defaults with every stored override applied
func (p *Provider) Settings() (core.ScanConfig, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	overrides, err := p.overrides()
	if err != nil {
		return core.ScanConfig{}, err
	}
	return p.defaults.Apply(overrides), nil
}

func (p *Provider) overrides() (core.ScanUpdate, error) {
	if p.store == nil {
		return core.ScanUpdate{}, nil
	}

	stored, err := p.store.ScanSettings()
	if errors.Is(err, core.ErrNotFound) {
		return core.ScanUpdate{}, nil
	}
	if err != nil {
		return core.ScanUpdate{}, fmt.Errorf("load scan settings: %w", err)
	}
	return stored, nil
}

// Update validates update, folds it into the stored overrides and returns the resulting settings
func (p *Provider) Update(update core.ScanUpdate) (core.ScanConfig, error) {
	if err := update.Validate(); err != nil {
		return core.ScanConfig{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.store == nil {
		p.defaults = p.defaults.Apply(update)
		return p.defaults, nil
	}

	overrides, err := p.overrides()
	if err != nil {
		return core.ScanConfig{}, err
	}
	merged := overrides.Merge(update)
	if err := p.store.SaveScanSettings(merged); err != nil {
		return core.ScanConfig{}, fmt.Errorf("save scan settings: %w", err)
	}
	return p.defaults.Apply(merged), nil
}

// Periods returns the stored label table, or DefaultPeriods without a store
func (p *Provider) Periods() (map[string]string, error) {
	if p.store == nil {
		return DefaultPeriods, nil
	}
	return p.store.Periods()
}

// SeedPeriods stores DefaultPeriods when the table is empty
func (p *Provider) SeedPeriods() error {
	if p.store == nil {
		return nil
	}

	periods, err := p.store.Periods()
	if err != nil {
		return err
	}
	if len(periods) > 0 {
		return nil
	}

	for label, code := range DefaultPeriods {
		if err := p.store.SavePeriod(label, code); err != nil {
			return err
		}
	}
	return nil
}

// ResolveTimeframe maps a label to an exchange interval code. The periods table wins; otherwise
// a duration label is normalised (60m becomes 1h) and anything else is returned unchanged.
func (p *Provider) ResolveTimeframe(label string) string {
	label = strings.TrimSpace(label)

	if periods, err := p.Periods(); err == nil {
		if code, ok := periods[label]; ok {
			return code
		}
	}

	if code, ok := NormalizeInterval(label); ok {
		return code
	}
	return label
}

// NormalizeInterval converts a duration such as 60m, 2h or 7d to the largest whole unit code
func NormalizeInterval(value string) (string, bool) {
	d, err := str2duration.ParseDuration(value)
	if err != nil || d < time.Minute || d%time.Minute != 0 {
		return "", false
	}

	const (
		day  = 24 * time.Hour
		week = 7 * day
	)

	switch {
	case d%week == 0:
		return fmt.Sprintf("%dw", d/week), true
	case d%day == 0:
		return fmt.Sprintf("%dd", d/day), true
	case d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour), true
	default:
		return fmt.Sprintf("%dm", d/time.Minute), true
	}
}
