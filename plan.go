package untangle

import (
	"log/slog"
	"time"
)

// TaskKind distinguishes tasks with a concrete start time from floating
// reminders.
type TaskKind string

const (
	// KindScheduled is a task anchored to a concrete day or time. It maps to
	// the schedule_event tool.
	KindScheduled TaskKind = "scheduled"

	// KindFloating is a task without a time anchor. It maps to the
	// set_reminder tool.
	KindFloating TaskKind = "floating"
)

// Task is one atomic unit of work: a single verb-object action that is
// independently completable without referencing sibling tasks.
type Task struct {
	// Description is the imperative, single verb-object description.
	Description string `json:"description"`

	// Kind determines the tool the executor maps the task to.
	Kind TaskKind `json:"kind"`

	// DurationMin is the estimated duration in minutes. Never exceeds the
	// profile's MaxSubtaskMinutes when that constraint is set.
	DurationMin int `json:"duration_minutes"`

	// StartAt is the temporal anchor resolved against the brain dump's time
	// context at decomposition time. Nil for floating tasks and for anchors
	// the executor must resolve against the user's chronotype.
	StartAt *time.Time `json:"start_at,omitempty"`

	// AnchorPhrase is the model's raw temporal phrase (e.g. "Friday",
	// "tonight"). Kept so ambiguity can be resolved downstream and for the
	// judge to inspect.
	AnchorPhrase string `json:"temporal_anchor,omitempty"`

	// Priority is high, medium or low.
	Priority string `json:"priority,omitempty"`

	// Source is the fragment of the reasoning trace this task came from.
	Source string `json:"source,omitempty"`
}

func (t Task) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("description", t.Description),
		slog.String("kind", string(t.Kind)),
		slog.Int("duration_minutes", t.DurationMin),
	}
	if t.StartAt != nil {
		attrs = append(attrs, slog.Time("start_at", *t.StartAt))
	}
	return slog.GroupValue(attrs...)
}

// TaskPlan is an ordered sequence of atomic tasks plus the reasoning trace
// the model produced before enumerating them.
type TaskPlan struct {
	// Reasoning enumerates each distinct action detected in the input. It is
	// emitted before the tasks to force verb-first analysis.
	Reasoning string `json:"reasoning"`

	// Tasks are executed in emitted order when the plan is confirmed.
	Tasks []Task `json:"tasks"`

	// Encouragement is a short supportive message for the user.
	Encouragement string `json:"encouragement,omitempty"`

	// Conflicts lists potential conflicts the model noticed between tasks.
	Conflicts []string `json:"conflicts,omitempty"`
}

// BrainDump is the ephemeral input to decomposition: the raw utterance plus
// the timestamp context anchors are resolved against. The context is supplied
// by the caller, not invented internally, so decomposition is deterministic
// for a fixed context.
type BrainDump struct {
	Text    string
	Context TimeContext
}

// Trivial reports whether the dump carries no content worth decomposing.
// An empty tasks array is only a schema violation for non-trivial dumps.
func (b BrainDump) Trivial() bool {
	for _, r := range b.Text {
		if r != ' ' && r != '\t' && r != '\n' && r != '.' && r != '!' && r != '?' {
			return false
		}
	}
	return true
}
