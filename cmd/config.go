package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"gooze.dev/pkg/ninjaturtles/internal/adapter"
	"gooze.dev/pkg/ninjaturtles/internal/domain"
	"gooze.dev/pkg/ninjaturtles/internal/domain/turtles"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "ninjaturtles"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	outputFlagName          = "output"
	classFlagName           = "class"
	methodFlagName          = "method"
	paramsFlagName          = "params"
	turtleFlagName          = "turtle"
	invariantsFlagName      = "invariants"
	runParallelFlagName     = "parallel"
	mutationTimeoutFlagName = "mutation-timeout"
	mergeFlagName           = "merge"
	inProcessFlagName       = "in-process"
	metricsFileFlagName     = "metrics-file"
	permutationCapFlagName  = "permutation-cap"
	verboseFlagName         = "verbose"
	logFileFlagName         = "log-file"

	outputConfigKey         = "run.output"
	runParallelConfigKey    = "run.parallel"
	mutationTimeoutKey      = "run.mutation_timeout"
	invariantsConfigKey     = "run.invariants"
	runnerConfigKey         = "run.runner"
	metricsFileConfigKey    = "run.metrics_file"
	spillDirConfigKey       = "run.spill_dir"
	permutationCapKey       = "turtles.permutation_cap"
	expectationsKey         = "expectations"
	runnerCommandKey        = "runner.command"
	runnerRuntimeKey        = "runner.runtime"
	runnerNoTestsExitKey    = "runner.no_tests_exit_code"
	stepBudgetKey           = "vm.step_budget"
	sandboxDirKey           = "sandbox.dir"
	assemblyCacheConfigKey  = "cache.assemblies"
	defaultMutationTimeout  = time.Minute * 2
	defaultReportFile       = "mutants.xml"
	defaultRunParallel      = 1
	defaultInvariants       = 0
	defaultAssemblyCacheLen = 64

	envPrefix = "NINJATURTLES"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".ninjaturtles.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}

		return
	}
}

func setDefaults() {
	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(outputConfigKey, defaultReportFile)
	viper.SetDefault(runParallelConfigKey, defaultRunParallel)
	viper.SetDefault(mutationTimeoutKey, defaultMutationTimeout)
	viper.SetDefault(invariantsConfigKey, defaultInvariants)
	viper.SetDefault(runnerConfigKey, domain.RunnerProcess)
	viper.SetDefault(metricsFileConfigKey, "")
	viper.SetDefault(spillDirConfigKey, "")
	viper.SetDefault(permutationCapKey, turtles.DefaultPermutationCap)
	viper.SetDefault(expectationsKey, []map[string]any{})
	viper.SetDefault(runnerCommandKey, adapter.DefaultRunnerCommand)
	viper.SetDefault(runnerRuntimeKey, []string{})
	viper.SetDefault(runnerNoTestsExitKey, adapter.ExitNoTests)
	viper.SetDefault(stepBudgetKey, 0)
	viper.SetDefault(sandboxDirKey, "")
	viper.SetDefault(assemblyCacheConfigKey, defaultAssemblyCacheLen)

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)
}

// loadExpectations decodes the per-method survivor expectations of the
// config file.
func loadExpectations() ([]domain.Expectation, error) {
	var expectations []domain.Expectation

	if err := viper.UnmarshalKey(expectationsKey, &expectations); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", expectationsKey, err)
	}

	return expectations, nil
}

func runnerConfig() adapter.ProcessRunnerConfig {
	return adapter.ProcessRunnerConfig{
		Command:         viper.GetStringSlice(runnerCommandKey),
		Runtime:         viper.GetStringSlice(runnerRuntimeKey),
		NoTestsExitCode: viper.GetInt(runnerNoTestsExitKey),
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Numeric slog levels, e.g. -4 for debug.
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose || viper.GetBool(logVerboseKey) {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
