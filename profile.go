package untangle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/k-nishimoto/untangle/store"
)

// Profile is the persisted user profile document. It is read at
// decomposition time to ground the planner, and mutated only through an
// explicit profile update.
type Profile struct {
	// PreferredActiveHours is the user's chronotype preference. Either a
	// keyword ("early bird", "night owl") or a range like "09:00-17:00".
	PreferredActiveHours string `json:"preferred_active_hours"`

	// MaxSubtaskMinutes caps the duration of any single task. Work implying
	// more time must be decomposed into multiple tasks under the cap.
	MaxSubtaskMinutes int `json:"max_subtask_minutes"`

	// Notes are free-form preference notes passed to the planner verbatim.
	Notes string `json:"notes"`
}

// DefaultProfile returns the profile used when no document is persisted.
// The profile is always resolvable to a non-empty default.
func DefaultProfile() *Profile {
	return &Profile{
		PreferredActiveHours: "early bird",
		MaxSubtaskMinutes:    45,
		Notes:                "",
	}
}

// ContextPrompt renders the profile as grounding context for the planner.
func (p *Profile) ContextPrompt() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Preferred active hours: %s.\n", p.PreferredActiveHours)
	if p.MaxSubtaskMinutes > 0 {
		fmt.Fprintf(&sb, "Maximum duration of a single task: %d minutes. Split anything longer.\n", p.MaxSubtaskMinutes)
	}
	if p.Notes != "" {
		fmt.Fprintf(&sb, "Notes: %s\n", p.Notes)
	}
	return sb.String()
}

// LoadProfile reads the persisted profile document. A missing or empty
// document resolves to DefaultProfile, never to nil.
func LoadProfile(ctx context.Context, db store.Store) (*Profile, error) {
	raw, err := db.Get(ctx, store.KeyUserProfile)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return DefaultProfile(), nil
		}
		return nil, goerr.Wrap(err, "failed to load profile")
	}

	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, goerr.Wrap(err, "profile document is corrupt")
	}
	if p.MaxSubtaskMinutes == 0 && p.PreferredActiveHours == "" {
		return DefaultProfile(), nil
	}
	return &p, nil
}

// SaveProfile persists the profile. This is the only operation that mutates
// the profile document.
func SaveProfile(ctx context.Context, db store.Store, p *Profile) error {
	raw, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to encode profile")
	}
	if err := db.Put(ctx, store.KeyUserProfile, raw); err != nil {
		return goerr.Wrap(ErrPersistence, err.Error())
	}
	return nil
}

// ActiveStartHour derives the hour of day an ambiguous anchor should resolve
// to for this chronotype.
func (p *Profile) ActiveStartHour() int {
	pref := strings.ToLower(strings.TrimSpace(p.PreferredActiveHours))
	switch {
	case strings.Contains(pref, "early"), strings.Contains(pref, "morning"):
		return 8
	case strings.Contains(pref, "night"), strings.Contains(pref, "owl"), strings.Contains(pref, "evening"):
		return 20
	}

	// "HH:MM-HH:MM" style range: use the range start.
	if idx := strings.IndexAny(pref, "-–"); idx > 0 {
		start := strings.TrimSpace(pref[:idx])
		if h, _, ok := strings.Cut(start, ":"); ok {
			if hour, err := strconv.Atoi(h); err == nil && hour >= 0 && hour < 24 {
				return hour
			}
		}
	}

	return 9
}
