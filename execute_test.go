package untangle_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/k-nishimoto/untangle"
	"github.com/k-nishimoto/untangle/store/memstore"
)

func newTestExecutor(clock time.Time) (*untangle.Executor, *memstore.MemStore) {
	db := memstore.New()
	executor := untangle.NewExecutor(db,
		untangle.WithExecutorClock(func() time.Time { return clock }),
	)
	return executor, db
}

func TestExecuteScheduledTask(t *testing.T) {
	ctx := context.Background()
	executor, db := newTestExecutor(wednesday)

	start := time.Date(2026, 9, 4, 9, 0, 0, 0, time.UTC)
	task := untangle.Task{
		Description: "Apply for the visa",
		Kind:        untangle.KindScheduled,
		DurationMin: 30,
		StartAt:     &start,
		Priority:    "high",
	}

	entry, err := executor.Execute(ctx, "session-1", 0, task)
	gt.NoError(t, err)
	gt.Equal(t, "Apply for the visa", entry.Title)
	gt.NotNil(t, entry.StartTime)
	gt.Equal(t, "2026-09-04T09:00:00Z", *entry.StartTime)
	gt.Equal(t, "session-1", entry.SessionID)
	gt.Equal(t, 0, entry.SourceTaskIndex)

	entries, err := untangle.LoadCalendar(ctx, db)
	gt.NoError(t, err)
	gt.Array(t, entries).Length(1)
	gt.Equal(t, *entry, entries[0])
}

func TestExecuteFloatingTask(t *testing.T) {
	ctx := context.Background()
	executor, _ := newTestExecutor(wednesday)

	task := untangle.Task{
		Description: "Email the boss",
		Kind:        untangle.KindFloating,
		DurationMin: 10,
	}

	entry, err := executor.Execute(ctx, "session-1", 0, task)
	gt.NoError(t, err)
	gt.Nil(t, entry.StartTime)
}

func TestExecuteResolvesAmbiguousAnchor(t *testing.T) {
	ctx := context.Background()

	task := untangle.Task{
		Description:  "Review the contract",
		Kind:         untangle.KindScheduled,
		DurationMin:  30,
		AnchorPhrase: "in the morning",
	}

	t.Run("active hour still ahead today", func(t *testing.T) {
		executor, db := newTestExecutor(wednesday)
		gt.NoError(t, untangle.SaveProfile(ctx, db, &untangle.Profile{
			PreferredActiveHours: "night owl",
			MaxSubtaskMinutes:    45,
		}))

		entry, err := executor.Execute(ctx, "session-1", 0, task)
		gt.NoError(t, err)
		gt.NotNil(t, entry.StartTime)
		gt.Equal(t, "2026-09-02T20:00:00Z", *entry.StartTime)
	})

	t.Run("active hour already passed rolls to tomorrow", func(t *testing.T) {
		lateEvening := time.Date(2026, 9, 2, 21, 0, 0, 0, time.UTC)
		executor, db := newTestExecutor(lateEvening)
		gt.NoError(t, untangle.SaveProfile(ctx, db, &untangle.Profile{
			PreferredActiveHours: "night owl",
			MaxSubtaskMinutes:    45,
		}))

		entry, err := executor.Execute(ctx, "session-1", 0, task)
		gt.NoError(t, err)
		gt.NotNil(t, entry.StartTime)
		gt.Equal(t, "2026-09-03T20:00:00Z", *entry.StartTime)
	})
}

func TestExecuteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	executor, db := newTestExecutor(wednesday)

	task := untangle.Task{
		Description: "Buy groceries",
		Kind:        untangle.KindFloating,
		DurationMin: 25,
	}

	_, err := executor.Execute(ctx, "session-1", 3, task)
	gt.NoError(t, err)

	_, err = executor.Execute(ctx, "session-1", 3, task)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, untangle.ErrAlreadyExecuted))

	// The duplicate attempt wrote nothing.
	entries, err := untangle.LoadCalendar(ctx, db)
	gt.NoError(t, err)
	gt.Array(t, entries).Length(1)

	// A different task index of the same session is not a duplicate.
	_, err = executor.Execute(ctx, "session-1", 4, task)
	gt.NoError(t, err)
}

func TestLoadCalendarEmpty(t *testing.T) {
	entries, err := untangle.LoadCalendar(context.Background(), memstore.New())
	gt.NoError(t, err)
	gt.Nil(t, entries)
}
