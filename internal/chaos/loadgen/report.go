package loadgen

import (
	"sync"
	"time"

	"enrollment/internal/enrollment/models"
)

// Kind classifies an outcome.
type Kind string

const (
	KindAccepted Kind = "accepted"
	KindRejected Kind = "rejected"
	KindErrored  Kind = "errored"
)

// Outcome is the recorded result of one intent.
type Outcome struct {
	Intent  models.Intent       `json:"intent"`
	Kind    Kind                `json:"kind"`
	Reason  models.RejectReason `json:"reason,omitempty"`
	Latency time.Duration       `json:"latency"`
	Err     error               `json:"-"`
}

func fromDecision(d *models.Decision, latency time.Duration) Outcome {
	if d.IsAccepted() {
		return Outcome{Intent: d.Intent, Kind: KindAccepted, Latency: latency}
	}
	return Outcome{Intent: d.Intent, Kind: KindRejected, Reason: d.Reason, Latency: latency}
}

// Report aggregates a load phase.
type Report struct {
	Outcomes []Outcome      `json:"-"`
	Accepted int            `json:"accepted"`
	Rejected int            `json:"rejected"`
	Errored  int            `json:"errored"`
	Reasons  map[string]int `json:"reasons,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// Total is the number of recorded outcomes.
func (r *Report) Total() int {
	return r.Accepted + r.Rejected + r.Errored
}

// SuccessRatio is the share of outcomes that were decided, accepted or
// legitimately rejected.
func (r *Report) SuccessRatio() float64 {
	if r.Total() == 0 {
		return 0
	}
	return float64(r.Accepted+r.Rejected) / float64(r.Total())
}

// ErrorRatio is the share of outcomes lost to transport or server faults.
func (r *Report) ErrorRatio() float64 {
	if r.Total() == 0 {
		return 0
	}
	return float64(r.Errored) / float64(r.Total())
}

// FirstErrors returns up to n distinct error messages for diagnosis.
func (r *Report) FirstErrors(n int) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, o := range r.Outcomes {
		if o.Err == nil {
			continue
		}
		msg := o.Err.Error()
		if _, dup := seen[msg]; dup {
			continue
		}
		seen[msg] = struct{}{}
		out = append(out, msg)
		if len(out) == n {
			break
		}
	}
	return out
}

type recorder struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (r *recorder) add(o Outcome) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, o)
	r.mu.Unlock()
}

func (r *recorder) report(d time.Duration) *Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	rep := &Report{Outcomes: r.outcomes, Duration: d, Reasons: make(map[string]int)}
	for _, o := range r.outcomes {
		switch o.Kind {
		case KindAccepted:
			rep.Accepted++
		case KindRejected:
			rep.Rejected++
			rep.Reasons[string(o.Reason)]++
		default:
			rep.Errored++
		}
	}
	return rep
}
