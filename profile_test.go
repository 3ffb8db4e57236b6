package untangle_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/k-nishimoto/untangle"
	"github.com/k-nishimoto/untangle/store/memstore"
)

func TestLoadProfileDefaults(t *testing.T) {
	db := memstore.New()

	profile, err := untangle.LoadProfile(context.Background(), db)
	gt.NoError(t, err)
	gt.Equal(t, "early bird", profile.PreferredActiveHours)
	gt.Equal(t, 45, profile.MaxSubtaskMinutes)
}

func TestProfileRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()

	saved := &untangle.Profile{
		PreferredActiveHours: "night owl",
		MaxSubtaskMinutes:    30,
		Notes:                "no calls before noon",
	}
	gt.NoError(t, untangle.SaveProfile(ctx, db, saved))

	loaded, err := untangle.LoadProfile(ctx, db)
	gt.NoError(t, err)
	gt.Equal(t, saved, loaded)
}

func TestActiveStartHour(t *testing.T) {
	cases := []struct {
		pref string
		want int
	}{
		{"early bird", 8},
		{"morning person", 8},
		{"night owl", 20},
		{"evenings", 20},
		{"10:30-18:00", 10},
		{"09:00-17:00", 9},
		{"", 9},
		{"whenever", 9},
	}

	for _, tc := range cases {
		t.Run(tc.pref, func(t *testing.T) {
			p := &untangle.Profile{PreferredActiveHours: tc.pref}
			gt.Equal(t, tc.want, p.ActiveStartHour())
		})
	}
}

func TestProfileContextPrompt(t *testing.T) {
	p := &untangle.Profile{
		PreferredActiveHours: "early bird",
		MaxSubtaskMinutes:    45,
		Notes:                "prefers short bursts",
	}
	prompt := p.ContextPrompt()
	gt.S(t, prompt).
		Contains("early bird").
		Contains("45 minutes").
		Contains("prefers short bursts")
}
