// Package plan holds the plan tiers and the limits each tier grants.
package plan

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Tier identifies a subscription plan.
type Tier string

const (
	TierFree  Tier = "FREE"
	TierBasic Tier = "BASIC"
	TierPro   Tier = "PRO"
)

// DefaultTier is the tier every new subscription starts on.
const DefaultTier = TierFree

// ordered lists the tiers from cheapest to most generous.
var ordered = []Tier{TierFree, TierBasic, TierPro}

// Limits are the numeric allowances of a plan.
type Limits struct {
	MaxDailyRecordings     int `json:"max_daily_recordings"`
	MaxParticipants        int `json:"max_participants"`
	RecordingRetentionDays int `json:"recording_retention_days"`
}

// Overrides replace individual limits for a single subscription. Nil fields
// fall through to the catalog value.
type Overrides struct {
	MaxDailyRecordings     *int `json:"max_daily_recordings,omitempty"`
	MaxParticipants        *int `json:"max_participants,omitempty"`
	RecordingRetentionDays *int `json:"recording_retention_days,omitempty"`
}

// IsZero reports whether no override is set.
func (o Overrides) IsZero() bool {
	return o.MaxDailyRecordings == nil && o.MaxParticipants == nil && o.RecordingRetentionDays == nil
}

// Apply returns l with every non-nil override applied.
func (l Limits) Apply(o Overrides) Limits {
	if o.MaxDailyRecordings != nil {
		l.MaxDailyRecordings = *o.MaxDailyRecordings
	}
	if o.MaxParticipants != nil {
		l.MaxParticipants = *o.MaxParticipants
	}
	if o.RecordingRetentionDays != nil {
		l.RecordingRetentionDays = *o.RecordingRetentionDays
	}
	return l
}

func (l Limits) validate() error {
	if l.MaxDailyRecordings < 0 || l.MaxParticipants < 0 || l.RecordingRetentionDays < 0 {
		return fmt.Errorf("limits must be non-negative: %+v", l)
	}
	return nil
}

// Validate checks that every set override is non-negative.
func (o Overrides) Validate() error {
	for name, v := range map[string]*int{
		"max_daily_recordings":     o.MaxDailyRecordings,
		"max_participants":         o.MaxParticipants,
		"recording_retention_days": o.RecordingRetentionDays,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("override %s must be non-negative, got %d", name, *v)
		}
	}
	return nil
}

type entry struct {
	name   string
	limits Limits
}

var defaults = map[Tier]entry{
	TierFree: {
		name:   "Free",
		limits: Limits{MaxDailyRecordings: 1, MaxParticipants: 2, RecordingRetentionDays: 7},
	},
	TierBasic: {
		name:   "Basic",
		limits: Limits{MaxDailyRecordings: 5, MaxParticipants: 5, RecordingRetentionDays: 30},
	},
	TierPro: {
		name:   "Pro",
		limits: Limits{MaxDailyRecordings: 20, MaxParticipants: 15, RecordingRetentionDays: 90},
	},
}

// Catalog is the immutable tier -> limits table. Build it once at startup
// and pass it to whatever needs limits.
type Catalog struct {
	entries map[Tier]entry
}

// NewCatalog returns the default catalog with per-tier replacements applied.
// Replacing an unknown tier or supplying a negative value is an error.
func NewCatalog(replace map[Tier]Limits) (*Catalog, error) {
	m := make(map[Tier]entry, len(defaults))
	for k, v := range defaults {
		m[k] = v
	}
	for tier, limits := range replace {
		e, ok := m[tier]
		if !ok {
			return nil, fmt.Errorf("unknown plan tier %q", tier)
		}
		if err := limits.validate(); err != nil {
			return nil, fmt.Errorf("plan %s: %w", tier, err)
		}
		e.limits = limits
		m[tier] = e
	}
	return &Catalog{entries: m}, nil
}

// DefaultCatalog returns the built-in table.
func DefaultCatalog() *Catalog {
	c, _ := NewCatalog(nil)
	return c
}

// ParseCatalogJSON builds a catalog from a JSON object keyed by tier, e.g.
// {"FREE":{"max_daily_recordings":2}}. Fields a tier object leaves out keep
// the built-in value. Empty input yields the defaults.
func ParseCatalogJSON(raw string) (*Catalog, error) {
	if strings.TrimSpace(raw) == "" {
		return DefaultCatalog(), nil
	}
	var tiers map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &tiers); err != nil {
		return nil, fmt.Errorf("decode plan catalog: %w", err)
	}
	replace := make(map[Tier]Limits, len(tiers))
	for key, body := range tiers {
		tier, err := ParseTier(key)
		if err != nil {
			return nil, err
		}
		limits := defaults[tier].limits
		if err := json.Unmarshal(body, &limits); err != nil {
			return nil, fmt.Errorf("decode plan %s: %w", tier, err)
		}
		replace[tier] = limits
	}
	return NewCatalog(replace)
}

// LimitsFor returns the limits of tier. Asking for a tier outside the
// enumeration is a programming error and panics; parse untrusted input with
// ParseTier first.
func (c *Catalog) LimitsFor(tier Tier) Limits {
	e, ok := c.entries[tier]
	if !ok {
		panic(fmt.Sprintf("plan: unknown tier %q", tier))
	}
	return e.limits
}

// Lookup is the non-panicking form of LimitsFor.
func (c *Catalog) Lookup(tier Tier) (Limits, bool) {
	e, ok := c.entries[tier]
	return e.limits, ok
}

// DisplayName returns the user-facing name of tier.
func (c *Catalog) DisplayName(tier Tier) string {
	e, ok := c.entries[tier]
	if !ok {
		panic(fmt.Sprintf("plan: unknown tier %q", tier))
	}
	return e.name
}

// Tiers lists the known tiers in ascending order.
func (c *Catalog) Tiers() []Tier {
	out := make([]Tier, len(ordered))
	copy(out, ordered)
	return out
}

// ParseTier converts s (case-insensitive) into a Tier.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := defaults[t]; !ok {
		return "", fmt.Errorf("unknown plan tier %q", s)
	}
	return t, nil
}
