package cmd

import (
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"moodlekit.dev/pkg/moodlekit/internal/domain"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "moodlekit"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	rootFlagName     = "root"
	typesFlagName    = "types"
	schemasFlagName  = "schemas"
	parallelFlagName = "parallel"
	lenientFlagName  = "lenient"
	skipFlagName     = "skip"
	checkFlagName    = "check"
	baseURLFlagName  = "base-url"
	tokenFlagName    = "token"
	debugFlagName    = "debug"
	timeoutFlagName  = "timeout"
	logFileFlagName  = "log-file"
	verboseFlagName  = "verbose"

	sourceRootKey     = "source.root"
	manifestKey       = "source.manifest"
	outputTypesKey    = "output.types"
	outputSchemasKey  = "output.schemas"
	extractParallel   = "extract.parallel"
	extractLenientKey = "extract.lenient"
	extractSkipKey    = "extract.skip"
	clientBaseURLKey  = "client.base_url"
	clientTokenKey    = "client.token"
	clientDebugKey    = "client.debug"
	clientTimeoutKey  = "client.timeout"

	defaultSourceRoot     = "."
	defaultManifest       = "manifest.txt"
	defaultTypesFile      = "types.json"
	defaultSchemasDir     = "schemas"
	defaultParallel       = 4
	defaultLenient        = false
	defaultClientDebug    = false
	defaultClientTimeout  = 30 * time.Second
	defaultClientBaseURL  = ""
	defaultClientToken    = ""

	envPrefix = "MOODLEKIT"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".moodlekit.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	// MOODLEKIT_CLIENT_TOKEN and friends may live in a .env file next to the config.
	_ = godotenv.Load()

	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(sourceRootKey, defaultSourceRoot)
	viper.SetDefault(manifestKey, defaultManifest)
	viper.SetDefault(outputTypesKey, defaultTypesFile)
	viper.SetDefault(outputSchemasKey, defaultSchemasDir)
	viper.SetDefault(extractParallel, defaultParallel)
	viper.SetDefault(extractLenientKey, defaultLenient)
	viper.SetDefault(extractSkipKey, domain.DefaultSkipList)
	viper.SetDefault(clientBaseURLKey, defaultClientBaseURL)
	viper.SetDefault(clientTokenKey, defaultClientToken)
	viper.SetDefault(clientDebugKey, defaultClientDebug)
	viper.SetDefault(clientTimeoutKey, defaultClientTimeout.String())

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return
		}

		slog.Warn("Failed to read config file", "path", configFileName, "error", err)
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

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// clientTimeout reads client.timeout as a duration string or a number of seconds.
func clientTimeout() time.Duration {
	raw := strings.TrimSpace(viper.GetString(clientTimeoutKey))

	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}

	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}

	return defaultClientTimeout
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
	if verbose {
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
