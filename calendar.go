package untangle

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/k-nishimoto/untangle/store"
)

// CalendarEntry is one persisted record in the calendar database. Entries
// are created only by the executor after explicit confirmation, never
// speculatively.
type CalendarEntry struct {
	EntryID string `json:"entry_id"`
	Title   string `json:"title"`

	// StartTime is the RFC3339 start, or nil for a floating reminder.
	StartTime *string `json:"start_time"`

	DurationMinutes int    `json:"duration_minutes"`
	Priority        string `json:"priority,omitempty"`

	// SourceTaskIndex and SessionID identify the task this entry came from
	// and key the executor's idempotency guard.
	SourceTaskIndex int    `json:"source_task_index"`
	SessionID       string `json:"session_id"`

	CreatedAt string `json:"created_at"`
}

// LoadCalendar reads the calendar database. A missing document is an empty
// calendar, not an error.
func LoadCalendar(ctx context.Context, db store.Store) ([]CalendarEntry, error) {
	raw, err := db.Get(ctx, store.KeyCalendar)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to load calendar")
	}

	var entries []CalendarEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, goerr.Wrap(err, "calendar document is corrupt")
	}
	return entries, nil
}

// rawCalendar returns the current calendar document, or an empty array when
// none is persisted yet.
func rawCalendar(ctx context.Context, db store.Store) ([]byte, error) {
	raw, err := db.Get(ctx, store.KeyCalendar)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return []byte("[]"), nil
		}
		return nil, goerr.Wrap(err, "failed to load calendar")
	}
	return raw, nil
}

// entryFor returns the persisted entry for (sessionID, taskIndex) from the
// raw calendar document, if one exists.
func entryFor(raw []byte, sessionID string, taskIndex int) (*CalendarEntry, bool) {
	var found *CalendarEntry
	gjson.ParseBytes(raw).ForEach(func(_, v gjson.Result) bool {
		if v.Get("session_id").Str == sessionID && v.Get("source_task_index").Int() == int64(taskIndex) {
			var entry CalendarEntry
			if err := json.Unmarshal([]byte(v.Raw), &entry); err == nil {
				found = &entry
			}
			return false
		}
		return true
	})
	return found, found != nil
}

// appendEntry appends the entry to the raw calendar array.
func appendEntry(raw []byte, entry CalendarEntry) ([]byte, error) {
	out, err := sjson.SetBytes(raw, "-1", entry)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to append calendar entry")
	}
	return out, nil
}
