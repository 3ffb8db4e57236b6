// Package eval replays a golden dataset of brain dumps through the
// production decomposition pipeline and grades each resulting plan with an
// independent LLM-as-judge call. It never confirms a plan into persisted
// state and never touches the production store.
package eval

import (
	"context"
	_ "embed"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/k-nishimoto/untangle"
	"github.com/k-nishimoto/untangle/store/memstore"
)

// DefaultPassThreshold is the default per-dimension and aggregate gate on a
// 0-10 scale. Override through Config when a dataset needs a different bar.
const DefaultPassThreshold = 7.0

//go:embed templates/judge_prompt.md
var judgePromptTemplate string

var judgeTmpl = template.Must(template.New("judge").Parse(judgePromptTemplate))

type judgeTemplateData struct {
	BrainDump        string
	PlanJSON         string
	ExpectedBehavior string
}

// judgeSchema is the verdict schema the judge call must conform to.
var judgeSchema = &untangle.Parameter{
	Title: "judge_verdict",
	Type:  untangle.TypeObject,
	Properties: map[string]*untangle.Parameter{
		"dimension_scores": {
			Type: untangle.TypeObject,
			Properties: map[string]*untangle.Parameter{
				"atomicity":             {Type: untangle.TypeNumber, Minimum: untangle.Ptr(0.0), Maximum: untangle.Ptr(10.0)},
				"temporal_awareness":    {Type: untangle.TypeNumber, Minimum: untangle.Ptr(0.0), Maximum: untangle.Ptr(10.0)},
				"hallucination_absence": {Type: untangle.TypeNumber, Minimum: untangle.Ptr(0.0), Maximum: untangle.Ptr(10.0)},
			},
			Required: []string{"atomicity", "temporal_awareness", "hallucination_absence"},
		},
		"justification": {Type: untangle.TypeString},
		"aggregate":     {Type: untangle.TypeNumber, Minimum: untangle.Ptr(0.0), Maximum: untangle.Ptr(10.0)},
	},
	Required: []string{"dimension_scores", "justification", "aggregate"},
}

// Verdict is the judge's grading of one produced plan. Evaluation-only; it
// is never written to the production store.
type Verdict struct {
	DimensionScores map[string]float64 `json:"dimension_scores"`
	Justification   string             `json:"justification"`
	Aggregate       float64            `json:"aggregate"`
}

// CaseResult is the outcome of one golden case.
type CaseResult struct {
	Name    string
	Plan    *untangle.TaskPlan
	Verdict *Verdict
	Pass    bool

	// Err is set when the pipeline or the judge call failed; such a case
	// counts as failed.
	Err error
}

// Report aggregates all case results.
type Report struct {
	Results []CaseResult
	Passed  int
	Failed  int

	// Aggregate is the mean judge aggregate over cases that produced a
	// verdict.
	Aggregate float64
}

// Pass reports whether the whole run clears the aggregate gate.
func (r *Report) Pass(cfg Config) bool {
	return r.Failed == 0 && r.Aggregate >= cfg.AggregateMin
}

// Config holds the grading thresholds. A case fails when atomicity or
// temporal awareness falls below its minimum, or the aggregate below its.
type Config struct {
	AtomicityMin float64
	TemporalMin  float64
	AggregateMin float64

	// Workers sets how many cases run concurrently. Cases are independent;
	// within one case decompose and judge stay strictly sequential.
	Workers int
}

// DefaultConfig returns thresholds at DefaultPassThreshold and sequential
// execution.
func DefaultConfig() Config {
	return Config{
		AtomicityMin: DefaultPassThreshold,
		TemporalMin:  DefaultPassThreshold,
		AggregateMin: DefaultPassThreshold,
		Workers:      1,
	}
}

// Harness drives the evaluation. The agent client feeds the production
// decomposition path; the judge client is a separate invocation of the same
// capability so judge reasoning cannot leak into the agent's plan.
type Harness struct {
	agent untangle.LLMClient
	judge untangle.LLMClient

	cfg    Config
	logger *slog.Logger
	clock  func() time.Time
}

// Option configures a Harness.
type Option func(*Harness)

// WithConfig overrides the grading thresholds.
func WithConfig(cfg Config) Option {
	return func(h *Harness) {
		h.cfg = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// WithClock overrides the wall clock used when a case pins no time context.
func WithClock(clock func() time.Time) Option {
	return func(h *Harness) {
		h.clock = clock
	}
}

// New creates a Harness over an agent client and a judge client.
func New(agent, judge untangle.LLMClient, options ...Option) *Harness {
	h := &Harness{
		agent:  agent,
		judge:  judge,
		cfg:    DefaultConfig(),
		logger: slog.New(slog.DiscardHandler),
		clock:  time.Now,
	}
	for _, opt := range options {
		opt(h)
	}
	return h
}

// Evaluate runs one golden case: decompose through the production pipeline,
// then grade the captured plan with an independent judge call.
func (h *Harness) Evaluate(ctx context.Context, gc GoldenCase) *CaseResult {
	result := &CaseResult{Name: gc.Name}

	now := h.clock()
	if gc.TimeContext != "" {
		pinned, err := time.Parse(time.RFC3339, gc.TimeContext)
		if err != nil {
			result.Err = goerr.Wrap(err, "invalid time_context", goerr.V("case", gc.Name))
			return result
		}
		now = pinned
	}

	// Fresh coordinator over a throwaway store: the exact production code
	// path, with nothing confirmed and nothing persisted beyond the run.
	db := memstore.New()
	coordinator := untangle.New(h.agent, db,
		untangle.WithLogger(h.logger),
		untangle.WithClock(func() time.Time { return now }),
	)

	plan, err := coordinator.Submit(ctx, untangle.BrainDump{
		Text:    gc.BrainDump,
		Context: untangle.TimeContext{Now: now},
	})
	if err != nil {
		result.Err = goerr.Wrap(err, "pipeline failed", goerr.V("case", gc.Name))
		return result
	}
	result.Plan = plan

	if gc.Rubric.MinTasks > 0 && len(plan.Tasks) < gc.Rubric.MinTasks {
		result.Err = goerr.New("plan has fewer tasks than the rubric requires",
			goerr.V("case", gc.Name),
			goerr.V("got", len(plan.Tasks)),
			goerr.V("min", gc.Rubric.MinTasks))
		return result
	}

	verdict, err := h.judgePlan(ctx, gc, plan)
	if err != nil {
		result.Err = goerr.Wrap(err, "judge call failed", goerr.V("case", gc.Name))
		return result
	}
	result.Verdict = verdict
	result.Pass = verdict.DimensionScores["atomicity"] >= h.cfg.AtomicityMin &&
		verdict.DimensionScores["temporal_awareness"] >= h.cfg.TemporalMin &&
		verdict.Aggregate >= h.cfg.AggregateMin

	h.logger.Info("case evaluated",
		"case", gc.Name,
		"aggregate", verdict.Aggregate,
		"pass", result.Pass,
	)

	return result
}

// judgePlan submits the captured plan to the judge. The plan is serialized
// once and passed by value; the harness never mutates it.
func (h *Harness) judgePlan(ctx context.Context, gc GoldenCase, plan *untangle.TaskPlan) (*Verdict, error) {
	planJSON, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to serialize plan")
	}

	promptText, err := renderJudgePrompt(judgeTemplateData{
		BrainDump:        gc.BrainDump,
		PlanJSON:         string(planJSON),
		ExpectedBehavior: gc.Rubric.ExpectedBehavior,
	})
	if err != nil {
		return nil, err
	}

	doc, err := untangle.GenerateStructured(ctx, h.judge, &untangle.GenerateRequest{
		SystemPrompt: "You are a strict, fair evaluator of task decomposition quality.",
		Prompt:       promptText,
		Schema:       judgeSchema,
	})
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to re-encode verdict")
	}
	var verdict Verdict
	if err := json.Unmarshal(raw, &verdict); err != nil {
		return nil, goerr.Wrap(err, "verdict fields have unexpected types")
	}

	return &verdict, nil
}

func renderJudgePrompt(data judgeTemplateData) (string, error) {
	var sb strings.Builder
	if err := judgeTmpl.Execute(&sb, data); err != nil {
		return "", goerr.Wrap(err, "failed to render judge prompt")
	}
	return sb.String(), nil
}

// Run evaluates every case and aggregates the report. Cases may run in
// parallel (they are independent); each case still serializes its own
// decompose and judge calls.
func (h *Harness) Run(ctx context.Context, cases []GoldenCase) *Report {
	results := make([]CaseResult, len(cases))

	workers := h.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, gc := range cases {
		wg.Add(1)
		go func(i int, gc GoldenCase) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = *h.Evaluate(ctx, gc)
		}(i, gc)
	}
	wg.Wait()

	report := &Report{Results: results}
	var sum float64
	var graded int
	for _, r := range results {
		if r.Err == nil && r.Pass {
			report.Passed++
		} else {
			report.Failed++
		}
		if r.Verdict != nil {
			sum += r.Verdict.Aggregate
			graded++
		}
	}
	if graded > 0 {
		report.Aggregate = sum / float64(graded)
	}

	return report
}
