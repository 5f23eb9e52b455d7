// Package model defines the data structures for mutation testing.
package model

import "time"

// TestStatus represents the outcome of running the attributed tests against
// one mutant.
type TestStatus int

const (
	// Killed indicates the mutation was detected by tests.
	Killed TestStatus = iota
	// Survived indicates the tests passed against the mutant.
	Survived
	// Inapplicable indicates no test could be run for the mutant.
	Inapplicable
	// Timeout indicates the test run exceeded the mutation timeout.
	Timeout
	// Error indicates the mutant could not be tested.
	Error
)

func (s TestStatus) String() string {
	switch s {
	case Killed:
		return "killed"
	case Survived:
		return "survived"
	case Inapplicable:
		return "inapplicable"
	case Timeout:
		return "timeout"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Detected reports whether the status counts as a kill. A hung mutant is
// detected: the tests did not pass against it.
func (s TestStatus) Detected() bool {
	return s == Killed || s == Timeout
}

// Scored reports whether the status takes part in the mutation score.
func (s TestStatus) Scored() bool {
	return s == Killed || s == Survived || s == Timeout
}

// MutantOutcome is the result of testing one mutant.
type MutantOutcome struct {
	Target         string
	Turtle         string
	Description    string
	Status         TestStatus
	OriginalOffset int
	Document       string
	Line           int
	Duration       time.Duration
	Output         string
	Diff           string
}

// Verdict is the judgement of one method/turtle combination.
type Verdict int

const (
	// VerdictPassed means the survivors matched the expected count.
	VerdictPassed Verdict = iota
	// VerdictFailed means unexpected mutants survived, or expected ones were killed.
	VerdictFailed
	// VerdictNoTests means no test is attributed to the method.
	VerdictNoTests
	// VerdictNoMutants means the turtle found nothing to mutate.
	VerdictNoMutants
	// VerdictError means no mutant was judged because every run errored.
	VerdictError
)

func (v Verdict) String() string {
	switch v {
	case VerdictPassed:
		return "passed"
	case VerdictFailed:
		return "failed"
	case VerdictNoTests:
		return "no valid tests found to run"
	case VerdictNoMutants:
		return "no valid mutations found"
	case VerdictError:
		return "no mutant could be tested"
	default:
		return "unknown"
	}
}

// Failed reports whether the verdict fails the run.
func (v Verdict) Failed() bool {
	return v == VerdictFailed || v == VerdictNoTests || v == VerdictError
}

// MethodResult aggregates the outcomes of one turtle over one method.
type MethodResult struct {
	Target       string
	Turtle       string
	Verdict      Verdict
	Tests        []string
	Mutants      int
	Killed       int
	Survived     int
	Timeouts     int
	Inapplicable int
	Errors       int
	Expected     int
	Duration     time.Duration
}

// Add counts one mutant outcome.
func (r *MethodResult) Add(status TestStatus) {
	r.Mutants++

	switch status {
	case Killed:
		r.Killed++
	case Survived:
		r.Survived++
	case Timeout:
		r.Timeouts++
	case Inapplicable:
		r.Inapplicable++
	case Error:
		r.Errors++
	}
}

// Judge sets the verdict from the counts. A combination where no mutant was
// killed, survived or timed out is never a pass.
func (r *MethodResult) Judge() Verdict {
	judged := r.Killed + r.Survived + r.Timeouts

	switch {
	case r.Mutants == 0:
		r.Verdict = VerdictNoMutants
	case len(r.Tests) == 0:
		r.Verdict = VerdictNoTests
	case judged == 0 && r.Inapplicable == r.Mutants:
		r.Verdict = VerdictNoTests
	case judged == 0:
		r.Verdict = VerdictError
	case r.Survived == r.Expected:
		r.Verdict = VerdictPassed
	default:
		r.Verdict = VerdictFailed
	}

	return r.Verdict
}

// Estimate is the planned work for one method/turtle combination.
type Estimate struct {
	Target  string
	Turtle  string
	Mutants int
	Tests   int
}

// RunInfo describes a run before it starts.
type RunInfo struct {
	ID           string
	TestAssembly string
	Methods      int
	Turtles      []string
	Parallel     int
}
