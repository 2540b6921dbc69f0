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

// Package cli wires the pipeline components into cobra commands: one
// command per handler, plus the HTTP server and the end-to-end driver.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-bucketwatch/pkg/adapters"
	"github.com/jeremyhahn/go-bucketwatch/pkg/alarm"
	"github.com/jeremyhahn/go-bucketwatch/pkg/changelog"
	"github.com/jeremyhahn/go-bucketwatch/pkg/common"
	"github.com/jeremyhahn/go-bucketwatch/pkg/driver"
	"github.com/jeremyhahn/go-bucketwatch/pkg/evictor"
	"github.com/jeremyhahn/go-bucketwatch/pkg/factory"
	"github.com/jeremyhahn/go-bucketwatch/pkg/ledger"
	"github.com/jeremyhahn/go-bucketwatch/pkg/metrics"
	"github.com/jeremyhahn/go-bucketwatch/pkg/observability"
	"github.com/jeremyhahn/go-bucketwatch/pkg/pipeline"
	"github.com/jeremyhahn/go-bucketwatch/pkg/queue"
	"github.com/jeremyhahn/go-bucketwatch/pkg/server/rest"
	"github.com/jeremyhahn/go-bucketwatch/pkg/tracker"
	"github.com/jeremyhahn/go-bucketwatch/pkg/version"
)

var cfgFile string

// NewRootCommand builds the bucketwatch command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "bucketwatch",
		Short:         "Bucket size tracking and eviction pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default .bucketwatch.yaml)")

	root.AddCommand(
		newTrackCommand(),
		newChangelogCommand(),
		newAlarmCommand(),
		newEvictCommand(),
		newServeCommand(),
		newDriveCommand(),
		newVersionCommand(),
	)
	return root
}

func loadConfig(needs ...string) (*Config, error) {
	v, err := InitConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg := GetConfig(v)
	if err := cfg.Validate(needs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func buildStorage(cfg *Config) (common.Storage, error) {
	return factory.NewStorage(cfg.Backend, cfg.StorageSettings())
}

func buildStore(cfg *Config) (ledger.Store, error) {
	if cfg.Backend == "memory" {
		return ledger.NewMemoryStore(), nil
	}
	return ledger.NewDynamoStore(cfg.Table, cfg.Region)
}

func buildConsumer(cfg *Config, queueURL string) (queue.Consumer, error) {
	if cfg.Backend == "memory" {
		return queue.NewMemoryQueue(), nil
	}
	return queue.NewSQSConsumer(queueURL, cfg.Region)
}

func buildMetricStream(cfg *Config) (metrics.Publisher, metrics.Source, error) {
	if cfg.Backend == "memory" {
		series := metrics.NewMemorySeries()
		return series, series, nil
	}
	cw, err := metrics.NewCloudWatch(cfg.Region, cfg.MetricNamespace, cfg.MetricName)
	if err != nil {
		return nil, nil, err
	}
	return cw, cw, nil
}

func errorPolicy(cfg *Config) pipeline.ErrorPolicy {
	if cfg.OnRecordError == "continue" {
		return pipeline.PolicyContinue
	}
	return pipeline.PolicyFail
}

func newTrackCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "track",
		Short: "Run the size aggregator against the tracker queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig("bucket", "table", "tracker-queue")
			if err != nil {
				return err
			}

			logger := adapters.NewDefaultLogger().WithFields(adapters.F("component", "tracker"))
			storage, err := buildStorage(cfg)
			if err != nil {
				return err
			}
			store, err := buildStore(cfg)
			if err != nil {
				return err
			}
			consumer, err := buildConsumer(cfg, cfg.TrackerQueueURL)
			if err != nil {
				return err
			}

			promMetrics := observability.NewPipelineMetrics(prometheus.DefaultRegisterer)
			handler := tracker.New(storage, store, cfg.Bucket, logger).WithMetrics(promMetrics)
			runner := pipeline.NewRunner("tracker", consumer, handler, logger,
				pipeline.WithErrorPolicy(errorPolicy(cfg)),
				pipeline.WithMetrics(promMetrics))

			ctx, cancel := signalContext()
			defer cancel()
			if err := runner.Run(ctx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}
}

func newChangelogCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "changelog",
		Short: "Run the change logger / metric emitter against the changelog queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig("bucket", "table", "changelog-queue")
			if err != nil {
				return err
			}

			logger := adapters.NewDefaultLogger().WithFields(adapters.F("component", "changelog"))
			store, err := buildStore(cfg)
			if err != nil {
				return err
			}
			consumer, err := buildConsumer(cfg, cfg.ChangelogQueueURL)
			if err != nil {
				return err
			}

			var publisher metrics.Publisher
			if cfg.MetricsEnabled {
				publisher, _, err = buildMetricStream(cfg)
				if err != nil {
					return err
				}
			}

			sink := changelog.NewWriterSink(os.Stdout)
			handler := changelog.New(store, sink, publisher, cfg.Bucket, logger)
			promMetrics := observability.NewPipelineMetrics(prometheus.DefaultRegisterer)
			runner := pipeline.NewRunner("changelog", consumer, handler, logger,
				pipeline.WithErrorPolicy(errorPolicy(cfg)),
				pipeline.WithMetrics(promMetrics))

			ctx, cancel := signalContext()
			defer cancel()
			if err := runner.Run(ctx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}
}

func newAlarmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "alarm",
		Short: "Run the threshold alarm loop, triggering the evictor on transition",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig("bucket")
			if err != nil {
				return err
			}

			logger := adapters.NewDefaultLogger().WithFields(adapters.F("component", "alarm"))
			storage, err := buildStorage(cfg)
			if err != nil {
				return err
			}
			_, source, err := buildMetricStream(cfg)
			if err != nil {
				return err
			}

			promMetrics := observability.NewPipelineMetrics(prometheus.DefaultRegisterer)
			ev := evictor.New(storage, cfg.Bucket, logger).WithMetrics(promMetrics)
			evaluator := alarm.New(source, cfg.AlarmThresholdBytes, cfg.AlarmWindow,
				func(ctx context.Context) {
					if _, err := ev.Evict(ctx); err != nil {
						logger.Error(ctx, "eviction failed", adapters.F("error", err.Error()))
					}
				}, logger)

			ctx, cancel := signalContext()
			defer cancel()
			if err := evaluator.Run(ctx, cfg.AlarmInterval); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}
}

func newEvictCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "evict",
		Short: "Delete the largest object in the bucket once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig("bucket")
			if err != nil {
				return err
			}

			logger := adapters.NewDefaultLogger().WithFields(adapters.F("component", "evictor"))
			storage, err := buildStorage(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			result, err := evictor.New(storage, cfg.Bucket, logger).Evict(ctx)
			if err != nil {
				return err
			}
			out, err := json.Marshal(result)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the plot endpoint and process metrics over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig("bucket", "table")
			if err != nil {
				return err
			}

			logger := adapters.NewDefaultLogger().WithFields(adapters.F("component", "server"))
			storage, err := buildStorage(cfg)
			if err != nil {
				return err
			}
			store, err := buildStore(cfg)
			if err != nil {
				return err
			}

			handler := rest.NewHandler(store, storage, cfg.Bucket, cfg.PlotLookback, rest.DefaultURLTTL, logger)
			serverConfig := rest.DefaultServerConfig()
			serverConfig.Host = cfg.ServerHost
			serverConfig.Port = cfg.ServerPort

			server := rest.NewServer(handler, serverConfig, prometheus.DefaultGatherer)

			ctx, cancel := signalContext()
			defer cancel()
			go func() {
				<-ctx.Done()
				_ = server.Shutdown(context.Background())
			}()

			logger.Info(ctx, "starting HTTP server",
				adapters.F("host", serverConfig.Host),
				adapters.F("port", serverConfig.Port))
			return server.Start()
		},
	}
}

func newDriveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "drive",
		Short: "Run the end-to-end probe sequence against the deployed pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig("bucket")
			if err != nil {
				return err
			}

			logger := adapters.NewDefaultLogger().WithFields(adapters.F("component", "driver"))
			storage, err := buildStorage(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()
			return driver.New(storage, cfg.APIURL, cfg.ProcessingWait, cfg.EvictionWait, logger).Run(ctx)
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Version)
		},
	}
}
