package fibscan

import (
	"fmt"
	"os"
	"strconv"

	"github.com/raykavin/fibscan/pkg/logger"
	"github.com/raykavin/fibscan/pkg/logger/logrus"
	"github.com/raykavin/fibscan/pkg/logger/zerolog"
)

const (
	// Default configuration values
	defaultLogLevel      = "info"
	defaultLogTimeFormat = "2006-01-02 15:04:05"
	defaultLogColored    = "true"
	defaultLogJSON       = "false"
	defaultLogDriver     = "zerolog"
)

// Environment variable names
const (
	envLogLevel      = "FIBSCAN_LOG_LEVEL"
	envLogTimeFormat = "FIBSCAN_LOG_TIME_FORMAT"
	envLogColor      = "FIBSCAN_LOG_COLOR"
	envLogJSON       = "FIBSCAN_LOG_JSON"
	envLogDriver     = "FIBSCAN_LOG_DRIVER"
)

func init() {
	log, err := initLogger()
	if err != nil {
		panic(err)
	}

	DefaultLog = log
}

// initLogger creates a new logger instance configured from environment variables
func initLogger() (logger.Logger, error) {
	logLevel := getEnvWithDefault(envLogLevel, defaultLogLevel)
	logTimeFormat := getEnvWithDefault(envLogTimeFormat, defaultLogTimeFormat)

	logColored, err := parseBoolEnv(envLogColor, defaultLogColored)
	if err != nil {
		return nil, err
	}

	logJSON, err := parseBoolEnv(envLogJSON, defaultLogJSON)
	if err != nil {
		return nil, err
	}

	switch driver := getEnvWithDefault(envLogDriver, defaultLogDriver); driver {
	case "zerolog":
		return zerolog.New(logLevel, logTimeFormat, logColored, logJSON)
	case "logrus":
		return logrus.New(os.Stdout, logLevel, logTimeFormat, logColored, logJSON)
	default:
		return nil, fmt.Errorf("%s: unknown log driver %q", envLogDriver, driver)
	}
}

// getEnvWithDefault returns the value of the environment variable or the default if not set
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// parseBoolEnv gets a boolean environment variable with a default value
func parseBoolEnv(key, defaultValue string) (bool, error) {
	value := getEnvWithDefault(key, defaultValue)
	return strconv.ParseBool(value)
}
