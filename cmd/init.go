package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var initForceFlag bool

// initCmd represents the init command.
var initCmd = newInitCmd()

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a ninjaturtles.yaml configuration file",
		Long: `Create a ninjaturtles.yaml in the current working directory holding the run
settings, the permutation cap of the turtles, the external test runner
command, the interpreter step budget, log rotation and an empty list of
per-method survivor expectations, e.g.

  expectations:
    - type: Calc.Calculator
      method: Max
      turtle: boundary
      survivors: 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			targetPath := filepath.Join(configFolderPath, configFileName)

			if err := writeConfigScaffold(osFs, targetPath, initForceFlag); err != nil {
				return err
			}

			cmd.Printf("wrote %s\n", targetPath)

			return nil
		},
	}

	cmd.Flags().BoolVar(&initForceFlag, "force", false, "overwrite an existing configuration file")

	return cmd
}

// configScaffold lays out the current settings section by section.
func configScaffold() map[string]any {
	return map[string]any{
		configVersionKey: currentConfigVersion,
		"run": map[string]any{
			"output":           viper.GetString(outputConfigKey),
			"parallel":         viper.GetInt(runParallelConfigKey),
			"mutation_timeout": viper.GetDuration(mutationTimeoutKey).String(),
			"invariants":       viper.GetInt(invariantsConfigKey),
			"runner":           viper.GetString(runnerConfigKey),
			"metrics_file":     viper.GetString(metricsFileConfigKey),
			"spill_dir":        viper.GetString(spillDirConfigKey),
		},
		"turtles": map[string]any{
			"permutation_cap": viper.GetInt(permutationCapKey),
		},
		"runner": map[string]any{
			"command":            viper.GetStringSlice(runnerCommandKey),
			"runtime":            viper.GetStringSlice(runnerRuntimeKey),
			"no_tests_exit_code": viper.GetInt(runnerNoTestsExitKey),
		},
		"vm": map[string]any{
			"step_budget": viper.GetInt(stepBudgetKey),
		},
		"sandbox": map[string]any{
			"dir": viper.GetString(sandboxDirKey),
		},
		"cache": map[string]any{
			"assemblies": viper.GetInt(assemblyCacheConfigKey),
		},
		"log": map[string]any{
			"filename":    viper.GetString(logFilenameKey),
			"level":       viper.GetString(logLevelKey),
			"max_size":    viper.GetInt(logMaxSizeKey),
			"max_backups": viper.GetInt(logMaxBackupsKey),
			"max_age":     viper.GetInt(logMaxAgeKey),
			"compress":    viper.GetBool(logCompressKey),
		},
		expectationsKey: []any{},
	}
}

func writeConfigScaffold(fs afero.Fs, path string, force bool) error {
	if !force {
		exists, err := afero.Exists(fs, path)
		if err != nil {
			return fmt.Errorf("failed to check %s: %w", path, err)
		}

		if exists {
			return fmt.Errorf("failed to write config file: %s already exists (use --force)", path)
		}
	}

	data, err := yaml.Marshal(configScaffold())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := afero.WriteFile(fs, path, data, os.FileMode(0o644)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func init() {
	rootCmd.AddCommand(initCmd)
}
