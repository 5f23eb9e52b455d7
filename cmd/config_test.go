package cmd

import (
	"log/slog"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gooze.dev/pkg/ninjaturtles/internal/adapter"
	"gooze.dev/pkg/ninjaturtles/internal/domain"
)

func TestConfigConstants(t *testing.T) {
	assert.Equal(t, "ninjaturtles", configBaseName)
	assert.Equal(t, "ninjaturtles.yaml", configFileName)
	assert.Equal(t, ".", configFolderPath)
	assert.Equal(t, "parallel", runParallelFlagName)
	assert.Equal(t, "run.parallel", runParallelConfigKey)
	assert.Equal(t, "mutants.xml", defaultReportFile)
	assert.Equal(t, 1, defaultRunParallel)
	assert.Equal(t, "NINJATURTLES", envPrefix)
}

func TestConfigVersionConstants(t *testing.T) {
	assert.Equal(t, "version", configVersionKey)
	assert.Equal(t, 1, currentConfigVersion)
}

func TestParseSlogLevel(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"", slog.LevelWarn},
		{"debug", slog.LevelDebug},
		{" INFO ", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"-4", slog.LevelDebug},
		{"loud", slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSlogLevel(tt.value, slog.LevelWarn))
		})
	}
}

func TestLoadExpectations(t *testing.T) {
	t.Cleanup(func() { viper.Set(expectationsKey, []map[string]any{}) })

	viper.Set(expectationsKey, []map[string]any{
		{"type": "Calc.Calculator", "method": "Max", "turtle": "boundary", "survivors": 1},
		{"type": "Calc.Calculator"},
	})

	expectations, err := loadExpectations()
	require.NoError(t, err)
	assert.Equal(t, []domain.Expectation{
		{Type: "Calc.Calculator", Method: "Max", Turtle: "boundary", Survivors: 1},
		{Type: "Calc.Calculator"},
	}, expectations)
}

func TestLoadExpectations_Invalid(t *testing.T) {
	t.Cleanup(func() { viper.Set(expectationsKey, []map[string]any{}) })

	viper.Set(expectationsKey, "not a list")

	_, err := loadExpectations()
	require.Error(t, err)
}

func TestRunnerConfig_Defaults(t *testing.T) {
	config := runnerConfig()

	assert.Equal(t, adapter.DefaultRunnerCommand, config.Command)
	assert.Empty(t, config.Runtime)
	assert.Equal(t, adapter.ExitNoTests, config.NoTestsExitCode)
}
