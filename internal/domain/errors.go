package domain

import (
	"errors"
	"fmt"
	"strings"

	m "gooze.dev/pkg/ninjaturtles/internal/model"
)

// Configuration faults. They are returned wrapped in a *ConfigurationError
// before any mutant is produced.
var (
	ErrTestAssemblyNotFound = errors.New("test assembly not found")
	ErrTypeNotFound         = errors.New("type not found")
	ErrMethodNotFound       = errors.New("method not found")
	ErrUnknownTurtle        = errors.New("unknown turtle")
)

// ErrNoMutationsRun is returned when no turtle ran against any method.
var ErrNoMutationsRun = errors.New("no mutations were run")

// ConfigurationError reports invalid run inputs.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Err.Error()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configErrorf(format string, args ...any) error {
	return &ConfigurationError{Err: fmt.Errorf(format, args...)}
}

// MutationTestFailure lists the method/turtle combinations that did not pass.
type MutationTestFailure struct {
	Results []m.MethodResult
}

func (e *MutationTestFailure) Error() string {
	parts := make([]string, 0, len(e.Results))

	for _, r := range e.Results {
		switch r.Verdict {
		case m.VerdictNoTests, m.VerdictError:
			parts = append(parts, fmt.Sprintf("%s [%s]: %s", r.Target, r.Turtle, r.Verdict))
		default:
			parts = append(parts, fmt.Sprintf("%s [%s]: %d of %d mutants survived, expected %d",
				r.Target, r.Turtle, r.Survived, r.Mutants, r.Expected))
		}
	}

	return fmt.Sprintf("mutation testing failed for %d combination(s): %s", len(e.Results), strings.Join(parts, "; "))
}
