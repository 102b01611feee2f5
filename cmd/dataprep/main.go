package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/viniciushammett/go-dataset-prep/internal/api"
	"github.com/viniciushammett/go-dataset-prep/internal/config"
	"github.com/viniciushammett/go-dataset-prep/internal/export"
	"github.com/viniciushammett/go-dataset-prep/internal/loader"
	"github.com/viniciushammett/go-dataset-prep/internal/logger"
	"github.com/viniciushammett/go-dataset-prep/internal/metrics"
	"github.com/viniciushammett/go-dataset-prep/internal/notify"
	"github.com/viniciushammett/go-dataset-prep/internal/pipeline"
	"github.com/viniciushammett/go-dataset-prep/internal/scheduler"
	"github.com/viniciushammett/go-dataset-prep/internal/split"
	"github.com/viniciushammett/go-dataset-prep/internal/store"
	"github.com/viniciushammett/go-dataset-prep/internal/tracing"
	"github.com/viniciushammett/go-dataset-prep/internal/watch"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

// app holds what every subcommand needs once config is loaded.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	st    *store.Store
	svc   *pipeline.Service
	close func()
}

func main() {
	root := &cobra.Command{
		Use:           "dataprep",
		Short:         "Dataset preparation service (split, clean, preprocess)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var cfgPath, logLevel string
	root.PersistentFlags().StringVar(&cfgPath, "config", envOr("CONFIG_PATH", "configs/config.yaml"), "YAML config path")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "overrides logLevel from config")

	setup := func(ctx context.Context) (*app, error) {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		return newApp(ctx, cfg)
	}

	// --- serve ---
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withSignals()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			s := api.NewServer(api.Deps{Log: a.log, Service: a.svc, Store: a.st}, api.Config{
				Addr:         a.cfg.Server.Addr,
				CORSOrigins:  a.cfg.Server.CORSOrigins,
				MaxBodyBytes: a.cfg.Server.MaxBodyBytes,
			})
			return s.Run(ctx)
		},
	})

	// --- train-local ---
	var folder, out string
	trainCmd := &cobra.Command{
		Use:   "train-local",
		Short: "Fit the preprocessing pipeline on a local record folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withSignals()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			res, err := a.svc.TrainLocal(pipeline.WithTrigger(ctx, "cli"), folder)
			if err != nil {
				return err
			}
			fmt.Printf("Pipeline fitted using %d local files (skipped %d): samples=%d features=%d steps=%v\n",
				res.FilesLoaded, len(res.Skipped), res.TrainingSamples, res.Features, res.Steps)
			if out == "" {
				return nil
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := export.WriteCSV(f, res.Matrix); err != nil {
				f.Close()
				return fmt.Errorf("write %s: %w", out, err)
			}
			return f.Close()
		},
	}
	trainCmd.Flags().StringVar(&folder, "folder", "", "folder under data.baseDir (default data.folder)")
	trainCmd.Flags().StringVar(&out, "out", "", "write the transformed training matrix as CSV")
	root.AddCommand(trainCmd)

	// --- schedule ---
	root.AddCommand(&cobra.Command{
		Use:   "schedule",
		Short: "Run train-local on the cron jobs of the config",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withSignals()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			if len(a.cfg.Jobs) == 0 {
				return fmt.Errorf("no jobs configured in %s", cfgPath)
			}
			return scheduler.Run(ctx, a.log, a.cfg.Jobs, a.svc, notify.NewSlack(a.cfg.Slack.Enabled, a.cfg.Slack.Webhook))
		},
	})

	// --- watch ---
	root.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Refit the pipeline whenever the record folder changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withSignals()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			debounce, err := time.ParseDuration(a.cfg.Watch.Debounce)
			if err != nil {
				return fmt.Errorf("watch.debounce: %w", err)
			}
			return watch.Run(ctx, a.log, watch.Options{
				Dir:      filepath.Join(a.cfg.Data.BaseDir, a.cfg.Data.Folder),
				Folder:   a.cfg.Data.Folder,
				Ext:      a.cfg.Data.Extension,
				Debounce: debounce,
			}, a.svc, notify.NewSlack(a.cfg.Slack.Enabled, a.cfg.Slack.Webhook))
		},
	})

	// --- version ---
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dataprep %s (%s) %s\n", version, commit, date)
		},
	})

	if err := root.Execute(); err != nil {
		logger.New(os.Getenv("LOG_LEVEL")).Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := logger.New(cfg.LogLevel)
	metrics.MustRegister()

	shutdown, err := tracing.Init(ctx, tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  cfg.Tracing.ServiceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRatio:  cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	a := &app{cfg: cfg, log: log}
	deps := pipeline.Deps{Log: log, Loader: loader.New(log, cfg.Data.BaseDir, cfg.Data.Extension)}
	if cfg.Storage.Path != "" {
		st, err := store.Open(cfg.Storage.Path)
		if err != nil {
			_ = shutdown(context.Background())
			return nil, err
		}
		a.st = st
		deps.Recorder = st
	}
	a.svc = pipeline.New(deps, pipeline.Config{
		Split: split.Options{
			Seed:           cfg.Split.Seed,
			Train:          cfg.Split.Train,
			Validation:     cfg.Split.Validation,
			Test:           cfg.Split.Test,
			StratifyColumn: cfg.Split.StratifyColumn,
		},
		LabelColumn: cfg.LabelColumn,
		SampleRows:  cfg.Samples(),
		Folder:      cfg.Data.Folder,
	})
	a.close = func() {
		if a.st != nil {
			_ = a.st.Close()
		}
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(sctx)
	}
	return a, nil
}

func withSignals() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() { <-c; cancel() }()
	return ctx
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
