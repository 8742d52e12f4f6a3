package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/baxromumarov/rx"
	"github.com/baxromumarov/rx/metric"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ConfigPath  string
	MetricsAddr string
	Timeout     time.Duration

	// Clock overrides the clock of time-based operators (for testing).
	Clock rx.Option
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a pipeline",
		Long: `Run the pipeline described by a YAML config and print every value it
produces, one per line.

Example:
  rxpipe run --config ./pipeline.yaml
  seq 100 | rxpipe run -c ./primes.yaml --format json
  rxpipe run -c ./tcp.yaml --metrics-addr :9090`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to pipeline config (required)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "stop the pipeline after this long (0 = no limit)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

// outputLine is the JSON form of one produced value.
type outputLine struct {
	Run   string `json:"run"`
	Seq   int    `json:"seq"`
	Value string `json:"value"`
}

func runPipeline(cmd *cobra.Command, opts *RunOptions) error {
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	runID := uuid.NewString()
	log := logrus.WithFields(logrus.Fields{
		"run":      runID,
		"pipeline": cfg.Name,
	})

	reg := prometheus.NewRegistry()
	m := metric.NewMetrics("rxpipe")
	if err := m.Register(reg); err != nil {
		return WrapExitError(ExitCommandError, "failed to register metrics", err)
	}

	p := &Pipeline{
		Config:  cfg,
		Stdin:   cmd.InOrStdin(),
		Metrics: m,
		Logger:  log,
		Clock:   opts.Clock,
	}
	obs, err := p.Build()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build pipeline", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	if opts.MetricsAddr != "" {
		srv := serveMetrics(opts.MetricsAddr, reg, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Warn("metrics server shutdown")
			}
		}()
	}

	log.WithField("ops", len(cfg.Ops)).Info("pipeline started")
	start := time.Now()

	out := cmd.OutOrStdout()
	var seq int
	err = obs.ForEach(ctx, func(v string) error {
		seq++
		return writeValue(out, opts.Format, runID, seq, v)
	})

	fields := logrus.Fields{"values": seq, "elapsed": time.Since(start).String()}
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			log.WithFields(fields).Info("pipeline interrupted")
			return nil
		}
		log.WithFields(fields).WithField("stages", failedStages(err)).WithError(err).Error("pipeline failed")
		if stage, ok := rx.StageOf(err); ok {
			return WrapExitError(ExitFailure, fmt.Sprintf("pipeline failed at stage %q", stage), rx.CauseOf(err))
		}
		return WrapExitError(ExitFailure, "pipeline failed", err)
	}
	log.WithFields(fields).Info("pipeline completed")
	return nil
}

func writeValue(w io.Writer, format, runID string, seq int, v string) error {
	if format == "json" {
		data, err := json.Marshal(outputLine{Run: runID, Seq: seq, Value: v})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	_, err := fmt.Fprintln(w, v)
	return err
}

// failedStages names every stage a failure is attributed to, in the order
// they appear in err.
func failedStages(err error) []string {
	return lo.Map(rx.AllStreamErrors(err), func(se *rx.StreamError, _ int) string {
		return se.Stage
	})
}

func serveMetrics(addr string, reg *prometheus.Registry, log logrus.FieldLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.WithField("addr", addr).Info("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server failed")
		}
	}()
	return srv
}
