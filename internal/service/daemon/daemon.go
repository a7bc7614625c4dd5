package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"

	api "github.com/oshokin/alarm-clock/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-clock/internal/alerting"
	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/notify"
	"github.com/oshokin/alarm-clock/internal/observability/metrics"
	"github.com/oshokin/alarm-clock/internal/playback"
	"github.com/oshokin/alarm-clock/internal/repository/alarmrepo"
	"github.com/oshokin/alarm-clock/internal/service/process"
	"github.com/oshokin/alarm-clock/internal/version"
)

// Options controls the daemon process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress overrides the control address from the settings.
	ListenAddress string
	// Output overrides the playback output from the settings.
	Output string
	// OnListening, when set, receives the control address once requests are accepted.
	OnListening func(address string)
}

const (
	// shutdownTimeout bounds the metrics server shutdown.
	shutdownTimeout = 5 * time.Second
	// flushTimeout bounds delivery of pending Sentry events on exit.
	flushTimeout = 2 * time.Second
)

// Run starts the daemon and blocks until ctx is canceled or serving fails.
//
//nolint:funlen // Wiring reads best top to bottom.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "daemon")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if opts.ListenAddress != "" {
		cfg.Control.Address = opts.ListenAddress
	}

	if opts.Output != "" {
		cfg.Playback.Output = opts.Output
	}

	lock, err := process.Acquire(cfg.PIDFile())
	if err != nil {
		return err
	}

	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			logger.WarnKV(ctx, "Unable to release the process lock", "error", releaseErr)
		}
	}()

	repo, err := alarmrepo.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open alarm store: %w", err)
	}

	defer func() {
		_ = repo.Close()
	}()

	output, err := newOutput(cfg.Playback.Output, os.Stderr)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	d := deps{
		repo:      repo,
		output:    output,
		registry:  registry,
		listeners: []playback.Listener{playback.LogListener(ctx)},
	}

	var escalators alerting.Fanout

	if publisher := connectMQTT(ctx, cfg.MQTT); publisher != nil {
		defer publisher.Close()

		d.listeners = append(d.listeners, publisher.Listener(ctx))
		escalators = append(escalators, publisher)
	}

	if cfg.Sentry.DSN != "" {
		reporter, sentryErr := alerting.NewSentry(cfg.Sentry, version.Release(), nil)
		if sentryErr != nil {
			return fmt.Errorf("initialise sentry: %w", sentryErr)
		}

		defer reporter.Flush(flushTimeout)

		escalators = append(escalators, reporter)
	}

	if len(escalators) > 0 {
		d.escalator = escalators
	}

	core, err := newApp(ctx, cfg, d)
	if err != nil {
		return fmt.Errorf("initialise daemon: %w", err)
	}

	defer func() {
		if closeErr := core.close(ctx); closeErr != nil {
			logger.WarnKV(ctx, "Shutdown was not clean", "error", closeErr)
		}
	}()

	if err = core.start(ctx); err != nil {
		return err
	}

	if cfg.Metrics.Address != "" {
		stopMetrics := serveMetrics(ctx, cfg.Metrics.Address, registry)
		defer stopMetrics()
	}

	return serveControl(ctx, cfg.Control.Address, core, opts.OnListening)
}

// connectMQTT connects the observer publisher. The daemon keeps running
// without it when the broker is unreachable.
func connectMQTT(ctx context.Context, cfg config.MQTTConfig) *notify.Publisher {
	if cfg.Broker == "" {
		return nil
	}

	client, err := notify.Dial(ctx, cfg)
	if err != nil {
		logger.WarnKV(ctx, "MQTT broker unavailable, playback states will not be published", "error", err)

		return nil
	}

	logger.InfoKV(ctx, "Publishing playback states", "broker", cfg.Broker, "prefix", cfg.TopicPrefix)

	return notify.NewPublisher(client, cfg.TopicPrefix)
}

// serveMetrics serves /metrics in the background and returns its shutdown function.
func serveMetrics(ctx context.Context, address string, gatherer prometheus.Gatherer) func() {
	srv := metrics.NewServer(address, gatherer)

	go func() {
		logger.InfoKV(ctx, "Serving metrics", "address", address)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorKV(ctx, "Metrics server failed", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}
}

// serveControl serves the gRPC control service until ctx ends.
func serveControl(ctx context.Context, address string, svc api.Service, onListening func(string)) error {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}

	grpcServer := grpc.NewServer()
	api.RegisterControlServer(grpcServer, api.NewServer(svc))

	logger.InfoKV(ctx, "Alarm clock daemon listening", "address", lis.Addr().String(), "version", version.Short())

	if onListening != nil {
		onListening(lis.Addr().String())
	}

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()
		close(done)
	}()

	if err = grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "GRPC server stopped")

	return nil
}
