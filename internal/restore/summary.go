package restore

import (
	"fmt"
	"strings"

	"github.com/rowjay/scenesnap/internal/remap"
	"github.com/rowjay/scenesnap/internal/snapshot"
)

// State of one category. There is no aborted state: every record is attempted.
type State string

const (
	StatePending         State = "pending"
	StateInProgress      State = "in_progress"
	StateDone            State = "done"
	StatePartiallyFailed State = "partially_failed"
	// StateFailed is used only when the category file itself could not be read.
	StateFailed State = "failed"
)

// CategoryResult tallies one category. Record counters are disjoint: every record ends
// in exactly one of Succeeded, Skipped, Warnings, Unsupported or Failed.
type CategoryResult struct {
	Category    snapshot.Category
	State       State
	Records     int
	Succeeded   int
	Skipped     int
	Warnings    int
	Unsupported int
	Failed      int
	Properties  remap.Transfer
	Messages    []string
}

func (r *CategoryResult) notef(format string, args ...any) {
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
}

func (r *CategoryResult) finish() {
	if r.State == StateFailed {
		return
	}
	if r.Failed > 0 {
		r.State = StatePartiallyFailed
		return
	}
	r.State = StateDone
}

type Summary struct {
	Source     string
	DryRun     bool
	Categories []*CategoryResult
}

// Result returns the result for c, or nil when c was not part of the restore.
func (s *Summary) Result(c snapshot.Category) *CategoryResult {
	for _, r := range s.Categories {
		if r.Category == c {
			return r
		}
	}
	return nil
}

// OK reports whether every category finished without failures.
func (s *Summary) OK() bool {
	for _, r := range s.Categories {
		if r.State != StateDone {
			return false
		}
	}
	return true
}

func (s *Summary) String() string {
	var b strings.Builder
	for _, r := range s.Categories {
		fmt.Fprintf(&b, "%-10s %-16s ok=%d skipped=%d warnings=%d unsupported=%d failed=%d properties=%d/%d\n",
			r.Category, r.State, r.Succeeded, r.Skipped, r.Warnings, r.Unsupported, r.Failed,
			r.Properties.Transferred, r.Properties.Transferred+r.Properties.Failed)
	}
	return b.String()
}
