package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gooze.dev/pkg/ninjaturtles/internal/adapter"
	"gooze.dev/pkg/ninjaturtles/internal/domain"
	"gooze.dev/pkg/ninjaturtles/internal/domain/turtles"
)

func chdirTemp(t *testing.T) string {
	t.Helper()

	tempDir := t.TempDir()
	originalWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tempDir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(originalWD)) })

	return tempDir
}

func TestWriteConfigScaffold_RoundTrips(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, writeConfigScaffold(fs, "ninjaturtles.yaml", false))

	data, err := afero.ReadFile(fs, "ninjaturtles.yaml")
	require.NoError(t, err)

	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewReader(data)))

	assert.Equal(t, currentConfigVersion, v.GetInt(configVersionKey))
	assert.Equal(t, defaultMutationTimeout, v.GetDuration(mutationTimeoutKey))
	assert.Equal(t, domain.RunnerProcess, v.GetString(runnerConfigKey))
	assert.Equal(t, turtles.DefaultPermutationCap, v.GetInt(permutationCapKey))
	assert.Equal(t, adapter.DefaultRunnerCommand, v.GetStringSlice(runnerCommandKey))
	assert.Equal(t, adapter.ExitNoTests, v.GetInt(runnerNoTestsExitKey))
	assert.True(t, v.IsSet(expectationsKey))
	assert.True(t, v.IsSet(stepBudgetKey))
}

func TestWriteConfigScaffold_Existing(t *testing.T) {
	tests := []struct {
		name    string
		force   bool
		wantErr bool
	}{
		{"kept without force", false, true},
		{"replaced with force", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "ninjaturtles.yaml", []byte("version: 0\n"), 0o644))

			err := writeConfigScaffold(fs, "ninjaturtles.yaml", tt.force)

			data, readErr := afero.ReadFile(fs, "ninjaturtles.yaml")
			require.NoError(t, readErr)

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, "version: 0\n", string(data))

				return
			}

			require.NoError(t, err)
			assert.Contains(t, string(data), "permutation_cap")
		})
	}
}

func TestInitCmd_WritesConfigFile(t *testing.T) {
	tempDir := chdirTemp(t)

	cmd := newRootCmd()
	cmd.AddCommand(newInitCmd())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"init"})

	require.NoError(t, cmd.Execute())

	contents, err := os.ReadFile(filepath.Join(tempDir, configFileName))
	require.NoError(t, err)

	for _, section := range []string{"run:", "turtles:", "runner:", "vm:", "sandbox:", "expectations:"} {
		assert.Contains(t, string(contents), section)
	}
}

func TestInitCmd_ErrorsWhenFileExists(t *testing.T) {
	tempDir := chdirTemp(t)

	targetPath := filepath.Join(tempDir, configFileName)
	require.NoError(t, os.WriteFile(targetPath, []byte("version: 1\n"), 0o644))

	cmd := newRootCmd()
	cmd.AddCommand(newInitCmd())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"init"})

	require.Error(t, cmd.Execute())

	contents, err := os.ReadFile(targetPath)
	require.NoError(t, err)
	assert.Equal(t, "version: 1\n", string(contents))
}
