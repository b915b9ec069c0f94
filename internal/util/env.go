package util

import (
	"os"
	"strconv"
	"time"
)

// GetEnv returns the value of the environment variable key, or defaultVal if
// the variable is unset.
func GetEnv(key string, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}

	return defaultVal
}

// GetEnvAsInt returns the variable parsed as int, or defaultVal on absence
// or parse failure.
func GetEnvAsInt(key string, defaultVal int) int {
	strVal := GetEnv(key, "")

	if val, err := strconv.Atoi(strVal); err == nil {
		return val
	}

	return defaultVal
}

// GetEnvAsBool returns the variable parsed with strconv.ParseBool, or
// defaultVal on absence or parse failure.
func GetEnvAsBool(key string, defaultVal bool) bool {
	strVal := GetEnv(key, "")

	if val, err := strconv.ParseBool(strVal); err == nil {
		return val
	}

	return defaultVal
}

// GetEnvAsFloat64 returns the variable parsed as float64, or defaultVal on
// absence or parse failure.
func GetEnvAsFloat64(key string, defaultVal float64) float64 {
	strVal := GetEnv(key, "")

	if val, err := strconv.ParseFloat(strVal, 64); err == nil {
		return val
	}

	return defaultVal
}

// GetEnvAsDuration returns the variable parsed with time.ParseDuration, or
// defaultVal on absence or parse failure.
func GetEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	strVal := GetEnv(key, "")

	if val, err := time.ParseDuration(strVal); err == nil {
		return val
	}

	return defaultVal
}
