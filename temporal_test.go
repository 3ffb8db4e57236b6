package untangle_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/k-nishimoto/untangle"
)

func TestResolveTemporalPhrases(t *testing.T) {
	// Wednesday, 2026-09-02 10:00 UTC.
	tc := untangle.TimeContext{Now: wednesday}

	day := func(d, hour int) time.Time {
		return time.Date(2026, 9, d, hour, 0, 0, 0, time.UTC)
	}

	cases := []struct {
		phrase string
		want   time.Time
	}{
		{"Friday", day(4, 9)},
		{"by Friday", day(4, 9)},
		{"friday evening", day(4, 19)},
		{"tonight", day(2, 19)},
		{"today", day(2, 9)},
		{"this afternoon", day(2, 15)},
		{"tomorrow", day(3, 9)},
		{"tomorrow night", day(3, 19)},
		{"this weekend", day(5, 9)},
		{"next friday", day(11, 9)},
		{"Wednesday", day(2, 9)},
		{"2026-09-04", day(4, 9)},
		{"2026-09-04T17:30:00Z", time.Date(2026, 9, 4, 17, 30, 0, 0, time.UTC)},
	}

	for _, tc2 := range cases {
		t.Run(tc2.phrase, func(t *testing.T) {
			got, ok := tc.Resolve(tc2.phrase)
			gt.True(t, ok)
			gt.Equal(t, tc2.want, got)
		})
	}
}

func TestResolveUnresolvablePhrases(t *testing.T) {
	tc := untangle.TimeContext{Now: wednesday}

	for _, phrase := range []string{"", "someday", "when I feel like it", "in the morning maybe"} {
		t.Run(phrase, func(t *testing.T) {
			_, ok := tc.Resolve(phrase)
			gt.False(t, ok)
		})
	}
}
