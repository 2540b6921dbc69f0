// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-bucketwatch.
//
// go-bucketwatch is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the runtime configuration for all bucketwatch commands.
type Config struct {
	// Storage
	Backend  string
	Bucket   string
	Region   string
	Endpoint string

	// Ledger
	Table string

	// Queues
	TrackerQueueURL   string
	ChangelogQueueURL string

	// Metrics
	MetricsEnabled  bool
	MetricNamespace string
	MetricName      string

	// Alarm
	AlarmThresholdBytes int64
	AlarmWindow         time.Duration
	AlarmInterval       time.Duration

	// Pipeline
	OnRecordError string

	// HTTP server
	ServerHost   string
	ServerPort   int
	PlotLookback time.Duration

	// Driver
	APIURL         string
	ProcessingWait time.Duration
	EvictionWait   time.Duration
}

// InitConfig initializes the configuration using Viper.
// Configuration priority: flags > env vars > config file > defaults.
func InitConfig(cfgFile string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("backend", "memory")
	v.SetDefault("region", "us-east-1")
	v.SetDefault("metrics-enabled", true)
	v.SetDefault("alarm-threshold-bytes", 20)
	v.SetDefault("alarm-window-seconds", 60)
	v.SetDefault("alarm-interval-seconds", 60)
	v.SetDefault("on-record-error", "fail")
	v.SetDefault("server-host", "localhost")
	v.SetDefault("server-port", 8080)
	v.SetDefault("plot-lookback-seconds", 10)
	v.SetDefault("processing-wait-seconds", 10)
	v.SetDefault("eviction-wait-seconds", 30)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".bucketwatch")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("BUCKETWATCH")
	// Dash-separated keys map to underscored env vars, e.g.
	// alarm-threshold-bytes to BUCKETWATCH_ALARM_THRESHOLD_BYTES.
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	return v, nil
}

// GetConfig extracts the configuration from Viper into a Config struct.
func GetConfig(v *viper.Viper) *Config {
	return &Config{
		Backend:             v.GetString("backend"),
		Bucket:              v.GetString("bucket"),
		Region:              v.GetString("region"),
		Endpoint:            v.GetString("endpoint"),
		Table:               v.GetString("table"),
		TrackerQueueURL:     v.GetString("tracker-queue-url"),
		ChangelogQueueURL:   v.GetString("changelog-queue-url"),
		MetricsEnabled:      v.GetBool("metrics-enabled"),
		MetricNamespace:     v.GetString("metric-namespace"),
		MetricName:          v.GetString("metric-name"),
		AlarmThresholdBytes: v.GetInt64("alarm-threshold-bytes"),
		AlarmWindow:         time.Duration(v.GetInt("alarm-window-seconds")) * time.Second,
		AlarmInterval:       time.Duration(v.GetInt("alarm-interval-seconds")) * time.Second,
		OnRecordError:       v.GetString("on-record-error"),
		ServerHost:          v.GetString("server-host"),
		ServerPort:          v.GetInt("server-port"),
		PlotLookback:        time.Duration(v.GetInt("plot-lookback-seconds")) * time.Second,
		APIURL:              v.GetString("api-url"),
		ProcessingWait:      time.Duration(v.GetInt("processing-wait-seconds")) * time.Second,
		EvictionWait:        time.Duration(v.GetInt("eviction-wait-seconds")) * time.Second,
	}
}

// StorageSettings converts Config to storage backend settings.
func (c *Config) StorageSettings() map[string]string {
	settings := map[string]string{"bucket": c.Bucket}
	if c.Region != "" {
		settings["region"] = c.Region
	}
	if c.Endpoint != "" {
		settings["endpoint"] = c.Endpoint
	}
	return settings
}

// Validate checks the configuration for the given command's needs.
func (c *Config) Validate(needs ...string) error {
	for _, need := range needs {
		switch need {
		case "bucket":
			if c.Bucket == "" {
				return ErrBucketRequired
			}
		case "table":
			if c.Backend != "memory" && c.Table == "" {
				return ErrTableRequired
			}
		case "tracker-queue":
			if c.Backend != "memory" && c.TrackerQueueURL == "" {
				return ErrQueueRequired
			}
		case "changelog-queue":
			if c.Backend != "memory" && c.ChangelogQueueURL == "" {
				return ErrQueueRequired
			}
		}
	}
	if c.OnRecordError != "continue" && c.OnRecordError != "fail" {
		return ErrInvalidErrorPolicy
	}
	return nil
}
