package orchestrator

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"enrollment/internal/chaos/loadgen"
	"enrollment/internal/enrollment/models"
)

// Phase names a stage of the run.
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseHealthCheck      Phase = "health_check"
	PhaseConcurrentLoad   Phase = "concurrent_load"
	PhaseFaultInjection   Phase = "fault_injection"
	PhaseRecoveryWait     Phase = "recovery_wait"
	PhaseHighLoad         Phase = "high_load"
	PhaseFinalHealthCheck Phase = "final_health_check"
)

// Result is the overall outcome of a run.
type Result string

const (
	ResultPass Result = "pass"
	ResultFail Result = "fail"
)

// PhaseResult is the recorded outcome of one phase.
type PhaseResult struct {
	Phase    Phase           `json:"phase"`
	Passed   bool            `json:"passed"`
	Detail   string          `json:"detail,omitempty"`
	Errors   []string        `json:"errors,omitempty"`
	Load     *loadgen.Report `json:"load,omitempty"`
	Duration time.Duration   `json:"duration"`
}

// Verdict is the structured result of a run. Violation is set only when an
// invariant audit failed, and the run stopped there.
type Verdict struct {
	Result    Result                  `json:"result"`
	Phases    []PhaseResult           `json:"phases"`
	Violation *models.InvariantReport `json:"violation,omitempty"`
	StartedAt time.Time               `json:"started_at"`
	Duration  time.Duration           `json:"duration"`
}

func (v *Verdict) record(res PhaseResult) {
	v.Phases = append(v.Phases, res)
	if !res.Passed {
		v.Result = ResultFail
	}
}

// Passed reports whether every phase passed.
func (v *Verdict) Passed() bool {
	return v.Result == ResultPass
}

// Phase returns the last result recorded for p.
func (v *Verdict) Phase(p Phase) (PhaseResult, bool) {
	for i := len(v.Phases) - 1; i >= 0; i-- {
		if v.Phases[i].Phase == p {
			return v.Phases[i], true
		}
	}
	return PhaseResult{}, false
}

// WriteJSON writes the verdict as indented JSON.
func (v *Verdict) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteTable renders one row per phase followed by the result line and any
// invariant violation.
func (v *Verdict) WriteTable(w io.Writer) error {
	table := tablewriter.NewWriter(w)
	table.Header("Phase", "Status", "Duration", "Detail")
	for _, p := range v.Phases {
		status := "PASS"
		if !p.Passed {
			status = "FAIL"
		}
		if err := table.Append([]string{
			string(p.Phase),
			status,
			p.Duration.Round(time.Millisecond).String(),
			p.Detail,
		}); err != nil {
			return fmt.Errorf("render phase %s: %w", p.Phase, err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render verdict: %w", err)
	}

	if _, err := fmt.Fprintf(w, "result: %s (%s)\n", v.Result, v.Duration.Round(time.Millisecond)); err != nil {
		return err
	}
	if !v.Violation.Violated() {
		return nil
	}
	return writeViolation(w, v.Violation)
}

func writeViolation(w io.Writer, report *models.InvariantReport) error {
	if _, err := fmt.Fprintf(w, "invariant violation: %s\n", report.String()); err != nil {
		return err
	}
	table := tablewriter.NewWriter(w)
	table.Header("Course", "Capacity", "Occupied", "Applied")
	for _, c := range report.Courses {
		if !c.OverCapacity() && !c.Drift() {
			continue
		}
		if err := table.Append([]string{
			c.CourseKey,
			strconv.Itoa(c.Capacity),
			strconv.Itoa(c.Occupied),
			strconv.Itoa(c.Applied),
		}); err != nil {
			return fmt.Errorf("render course %s: %w", c.CourseKey, err)
		}
	}
	return table.Render()
}
