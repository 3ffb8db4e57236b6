package untangle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// planSchema is the response schema the decomposer enforces. The reasoning
// field comes first so the model analyzes verbs before enumerating tasks.
var planSchema = &Parameter{
	Title:       "task_plan",
	Type:        TypeObject,
	Description: "Decomposition of a brain dump into atomic tasks",
	Properties: map[string]*Parameter{
		"reasoning": {
			Type:        TypeString,
			Description: "Verb-first analysis of every distinct action in the input",
		},
		"tasks": {
			Type: TypeArray,
			Items: &Parameter{
				Type: TypeObject,
				Properties: map[string]*Parameter{
					"description": {
						Type:        TypeString,
						Description: "Imperative single verb-object action",
					},
					"kind": {
						Type: TypeString,
						Enum: []string{string(KindScheduled), string(KindFloating)},
					},
					"duration_minutes": {
						Type:    TypeInteger,
						Minimum: Ptr(1.0),
					},
					"temporal_anchor": {
						Type:        TypeString,
						Description: "The user's own day/time phrase, verbatim",
					},
					"priority": {
						Type: TypeString,
						Enum: []string{"high", "medium", "low"},
					},
					"source": {
						Type:        TypeString,
						Description: "Fragment of the reasoning this task came from",
					},
				},
				Required: []string{"description", "kind", "duration_minutes"},
			},
		},
		"encouragement": {Type: TypeString},
		"conflicts": {
			Type:  TypeArray,
			Items: &Parameter{Type: TypeString},
		},
	},
	Required: []string{"reasoning", "tasks"},
}

// Decomposer is the planning agent: it turns a brain dump plus profile into
// a task plan through schema-enforced structured generation, retrying with
// an amended instruction when the model under-decomposes or violates the
// schema.
type Decomposer struct {
	llm        LLMClient
	retryLimit int
	timeout    time.Duration
	logger     *slog.Logger
}

// DecomposerOption configures a Decomposer.
type DecomposerOption func(*Decomposer)

// WithDecomposerRetryLimit sets the number of repair retries after the
// first attempt.
func WithDecomposerRetryLimit(limit int) DecomposerOption {
	return func(d *Decomposer) {
		d.retryLimit = limit
	}
}

// WithDecomposerTimeout bounds a single generation call.
func WithDecomposerTimeout(timeout time.Duration) DecomposerOption {
	return func(d *Decomposer) {
		d.timeout = timeout
	}
}

// WithDecomposerLogger sets the logger.
func WithDecomposerLogger(logger *slog.Logger) DecomposerOption {
	return func(d *Decomposer) {
		d.logger = logger
	}
}

// NewDecomposer creates a Decomposer over the generation client.
func NewDecomposer(llm LLMClient, options ...DecomposerOption) *Decomposer {
	d := &Decomposer{
		llm:        llm,
		retryLimit: DefaultRetryLimit,
		timeout:    DefaultGenerateTimeout,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// wire types for decoding the validated response document.
type wireTask struct {
	Description     string `json:"description"`
	Kind            string `json:"kind"`
	DurationMinutes int    `json:"duration_minutes"`
	TemporalAnchor  string `json:"temporal_anchor"`
	Priority        string `json:"priority"`
	Source          string `json:"source"`
}

type wirePlan struct {
	Reasoning     string     `json:"reasoning"`
	Tasks         []wireTask `json:"tasks"`
	Encouragement string     `json:"encouragement"`
	Conflicts     []string   `json:"conflicts"`
}

// Decompose turns the brain dump into a task plan. Schema violations, an
// empty task list for non-trivial input, merged multi-verb descriptions, and
// over-long durations each consume one retry with an instruction amendment
// naming the violated constraint. When the budget is exhausted the caller
// gets ErrDecomposition and the session is left untouched.
func (d *Decomposer) Decompose(ctx context.Context, dump BrainDump, profile *Profile) (*TaskPlan, error) {
	system := renderTemplate(decomposerTmpl, decomposerTemplateData{
		MaxMinutes:     profile.MaxSubtaskMinutes,
		TimeContext:    dump.Context.Prompt(),
		ProfileContext: profile.ContextPrompt(),
	})

	amendment := ""
	var lastErr error

	for attempt := 0; attempt <= d.retryLimit; attempt++ {
		req := &GenerateRequest{
			SystemPrompt: system + amendment,
			Prompt:       dump.Text,
			Schema:       planSchema,
		}

		genCtx, cancel := context.WithTimeout(ctx, d.timeout)
		doc, err := GenerateStructured(genCtx, d.llm, req)
		cancel()

		if err != nil {
			lastErr = err
			d.logger.Warn("decomposition attempt failed", "attempt", attempt, "error", err)
			amendment = "\n\n" + renderTemplate(repairTmpl, repairTemplateData{
				Violation: "the response did not conform to the required JSON schema",
			})
			continue
		}

		plan, violation := d.buildPlan(doc, dump, profile)
		if violation == "" {
			d.logger.Info("decomposition succeeded",
				"attempt", attempt,
				"task_count", len(plan.Tasks),
			)
			return plan, nil
		}

		lastErr = goerr.New(violation)
		d.logger.Warn("decomposition constraint violated", "attempt", attempt, "violation", violation)
		amendment = "\n\n" + renderTemplate(repairTmpl, repairTemplateData{Violation: violation})
	}

	return nil, goerr.Wrap(ErrDecomposition, "retry budget exhausted",
		goerr.V("attempts", d.retryLimit+1),
		goerr.V("last_error", lastErr.Error()))
}

// buildPlan converts the schema-valid document into a TaskPlan and applies
// the semantic checks the schema cannot express. A non-empty violation
// message means the plan was rejected and the message should be fed back to
// the model.
func (d *Decomposer) buildPlan(doc map[string]any, dump BrainDump, profile *Profile) (*TaskPlan, string) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, "the response could not be re-encoded as JSON"
	}
	var wp wirePlan
	if err := json.Unmarshal(raw, &wp); err != nil {
		return nil, "the response fields have unexpected types"
	}

	if len(wp.Tasks) == 0 {
		if dump.Trivial() {
			return &TaskPlan{Reasoning: wp.Reasoning, Encouragement: wp.Encouragement}, ""
		}
		return nil, "the tasks array is empty although the input describes at least one action; emit one task per distinct action"
	}

	plan := &TaskPlan{
		Reasoning:     wp.Reasoning,
		Encouragement: wp.Encouragement,
		Conflicts:     wp.Conflicts,
		Tasks:         make([]Task, 0, len(wp.Tasks)),
	}

	for _, wt := range wp.Tasks {
		if mergedActions(wt.Description) {
			return nil, fmt.Sprintf("task %q merges multiple independent actions; split it into one task per verb-object pair", wt.Description)
		}
		if profile.MaxSubtaskMinutes > 0 && wt.DurationMinutes > profile.MaxSubtaskMinutes {
			return nil, fmt.Sprintf("task %q is estimated at %d minutes, above the %d minute cap; split it into shorter tasks that together cover the work",
				wt.Description, wt.DurationMinutes, profile.MaxSubtaskMinutes)
		}

		task := Task{
			Description:  wt.Description,
			Kind:         TaskKind(wt.Kind),
			DurationMin:  wt.DurationMinutes,
			AnchorPhrase: wt.TemporalAnchor,
			Priority:     wt.Priority,
			Source:       wt.Source,
		}

		// Resolve anchors here so downstream scheduling never reinterprets
		// natural language. Phrases only the chronotype can settle stay nil
		// for the executor's get_user_context path.
		if task.Kind == KindScheduled && wt.TemporalAnchor != "" {
			if at, ok := dump.Context.Resolve(wt.TemporalAnchor); ok {
				task.StartAt = &at
			}
		}

		plan.Tasks = append(plan.Tasks, task)
	}

	return plan, ""
}

// conjunctionSplit separates candidate verb phrases within one description.
var conjunctionSplit = regexp.MustCompile(`(?i)\s*(?:,|;|&|\band\b|\bthen\b|\bplus\b|\balso\b|\bas well as\b)\s*`)

// actionVerbs are imperative verbs that commonly open an atomic task. The
// heuristic flags a description as merged when more than one split segment
// starts with one of them.
var actionVerbs = map[string]struct{}{
	"apply": {}, "book": {}, "buy": {}, "call": {}, "cancel": {}, "check": {},
	"clean": {}, "complete": {}, "cook": {}, "create": {}, "draft": {},
	"email": {}, "file": {}, "finish": {}, "fix": {}, "get": {}, "go": {},
	"make": {}, "order": {}, "organize": {}, "pack": {}, "pay": {},
	"pick": {}, "plan": {}, "practice": {}, "prep": {}, "prepare": {},
	"print": {}, "read": {}, "renew": {}, "research": {}, "review": {},
	"schedule": {}, "send": {}, "sign": {}, "start": {}, "study": {},
	"submit": {}, "update": {}, "walk": {}, "wash": {}, "write": {},
}

// mergedActions heuristically detects a description that still contains two
// independent verb phrases. Under-decomposition is a probabilistic model
// failure, so this is a predicate feeding the bounded retry loop, not a fix.
func mergedActions(description string) bool {
	segments := conjunctionSplit.Split(strings.ToLower(description), -1)
	count := 0
	for _, seg := range segments {
		fields := strings.Fields(seg)
		if len(fields) == 0 {
			continue
		}
		if _, ok := actionVerbs[strings.Trim(fields[0], ".,!?")]; ok {
			count++
		}
	}
	return count > 1
}
