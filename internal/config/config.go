// Package config handles platform configuration
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr       string
	ClassifierAddr string // gRPC classifier inference service; empty disables the model path
	Tier           string // performance tier name: ultra_fast, fast, balanced, quality
	ScanRate       float64 // Hz

	// Decision thresholds
	CoverageThreshold float64 // coverage at or above this forces a full-screen blur
	RegionCountFull   int     // region count at or above this forces a full-screen blur
	RegionCountWarn   int     // region count for block-and-warn when confidence is high
	WarnConfidence    float64 // confidence floor for block-and-warn
	FlagThreshold     float64 // per-tile flagging threshold

	// Reflection / warning session
	ReflectionSeconds      int
	RepeatExtensionSeconds int
	RepeatWindowSeconds    int

	CacheTTL time.Duration
}

func Load() *Config {
	cfg := &Config{
		HTTPAddr:               getEnv("HTTP_ADDR", ":8000"),
		ClassifierAddr:         getEnv("CLASSIFIER_ADDR", "localhost:50051"),
		Tier:                   getEnv("PERFORMANCE_TIER", "balanced"),
		ScanRate:               getEnvFloat("SCAN_RATE", 2.0),
		CoverageThreshold:      getEnvFloat("COVERAGE_THRESHOLD", 0.4),
		RegionCountFull:        getEnvInt("REGION_COUNT_FULL", 10),
		RegionCountWarn:        getEnvInt("REGION_COUNT_WARN", 6),
		WarnConfidence:         getEnvFloat("WARN_CONFIDENCE", 0.6),
		FlagThreshold:          getEnvFloat("FLAG_THRESHOLD", 0.3),
		ReflectionSeconds:      getEnvInt("REFLECTION_SECONDS", 15),
		RepeatExtensionSeconds: getEnvInt("REPEAT_EXTENSION_SECONDS", 10),
		RepeatWindowSeconds:    getEnvInt("REPEAT_WINDOW_SECONDS", 60),
		CacheTTL:               getEnvDuration("CACHE_TTL", 5*time.Second),
	}
	cfg.clamp()
	return cfg
}

// clamp normalizes out-of-range values to safe defaults rather than failing.
func (c *Config) clamp() {
	if c.ScanRate <= 0 {
		c.ScanRate = 2.0
	}
	if c.CoverageThreshold <= 0 || c.CoverageThreshold > 1 {
		c.CoverageThreshold = 0.4
	}
	if c.RegionCountFull <= 0 {
		c.RegionCountFull = 10
	}
	if c.RegionCountWarn <= 0 || c.RegionCountWarn > c.RegionCountFull {
		c.RegionCountWarn = 6
	}
	if c.WarnConfidence <= 0 || c.WarnConfidence > 1 {
		c.WarnConfidence = 0.6
	}
	if c.FlagThreshold <= 0 || c.FlagThreshold > 1 {
		c.FlagThreshold = 0.3
	}
	if c.ReflectionSeconds <= 0 {
		c.ReflectionSeconds = 15
	}
	if c.RepeatExtensionSeconds < 0 {
		c.RepeatExtensionSeconds = 10
	}
	if c.RepeatWindowSeconds <= 0 {
		c.RepeatWindowSeconds = 60
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 5 * time.Second
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
