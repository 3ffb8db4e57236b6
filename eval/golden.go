package eval

import (
	"encoding/json"
	"os"

	"github.com/m-mizutani/goerr/v2"
)

// Rubric is the per-case grading context passed to the judge.
type Rubric struct {
	// ExpectedBehavior describes what a good decomposition looks like for
	// this input.
	ExpectedBehavior string `json:"expected_behavior"`

	// MinTasks optionally asserts a lower bound on the task count; the case
	// fails outright when the plan is smaller, before the judge is asked.
	MinTasks int `json:"min_tasks,omitempty"`
}

// GoldenCase is one entry of the golden dataset: an input plus the rubric to
// grade its decomposition against.
type GoldenCase struct {
	Name      string `json:"name"`
	BrainDump string `json:"brain_dump"`

	// TimeContext pins the timestamp context (RFC3339) so temporal anchors
	// resolve deterministically. Empty means the harness clock.
	TimeContext string `json:"time_context,omitempty"`

	Rubric Rubric `json:"rubric"`
}

// LoadGolden reads a golden dataset file: a JSON array of cases.
func LoadGolden(path string) ([]GoldenCase, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read golden dataset", goerr.V("path", path))
	}

	var cases []GoldenCase
	if err := json.Unmarshal(raw, &cases); err != nil {
		return nil, goerr.Wrap(err, "golden dataset is not valid JSON", goerr.V("path", path))
	}
	if len(cases) == 0 {
		return nil, goerr.New("golden dataset is empty", goerr.V("path", path))
	}

	return cases, nil
}
