package domain

import (
	m "gooze.dev/pkg/ninjaturtles/internal/model"
	pkg "gooze.dev/pkg/ninjaturtles/pkg"
)

// mutationScoreFromOutcomes returns the share of detected mutants in percent.
// Inapplicable and errored mutants are left out of the denominator.
func mutationScoreFromOutcomes(outcomes pkg.FileSpill[m.MutantOutcome]) (float64, error) {
	detected := 0
	total := 0

	err := outcomes.Range(func(_ uint64, outcome m.MutantOutcome) error {
		if !outcome.Status.Scored() {
			return nil
		}

		total++

		if outcome.Status.Detected() {
			detected++
		}

		return nil
	})
	if err != nil {
		return 0.0, err
	}

	if total == 0 {
		return 100.0, nil
	}

	return float64(detected) / float64(total) * 100, nil
}
