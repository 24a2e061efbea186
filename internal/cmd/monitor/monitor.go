package monitor

import (
	"context"
	"fmt"
	"github.com/clambin/aldes-monitor/internal/aldes"
	"github.com/clambin/aldes-monitor/internal/aldestools"
	"github.com/clambin/aldes-monitor/internal/bot"
	"github.com/clambin/aldes-monitor/internal/collector"
	"github.com/clambin/aldes-monitor/internal/health"
	"github.com/clambin/aldes-monitor/internal/poller"
	"github.com/clambin/aldes-monitor/internal/presets"
	"github.com/clambin/go-common/slackbot"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"log/slog"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
)

var Cmd = cobra.Command{
	Use:   "monitor",
	Short: "Monitor Aldes T.One® devices",
	RunE:  run,
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	logger := slog.Default()
	logger.Info("aldes-monitor starting", "version", cmd.Root().Version)
	defer logger.Info("aldes-monitor stopped")

	tasks, err := New(viper.GetViper(), cmd.Root().Version, prometheus.DefaultRegisterer, logger)
	if err != nil {
		return err
	}
	return runTasks(ctx, tasks)
}

// A Task is a long-running component of the monitor. All tasks run until their
// context is canceled.
type Task interface {
	Run(ctx context.Context) error
}

// New builds all tasks that make up the monitor: an instrumented AldesConnect™
// client, the poller, the Prometheus collector & server, the health endpoint
// and (if a Slack token is configured) the Slack bot.
func New(cfg *viper.Viper, version string, registry prometheus.Registerer, logger *slog.Logger) ([]Task, error) {
	callMetrics := aldestools.NewAldesCallMetrics("aldes", "monitor", prometheus.Labels{"application": "aldes"})
	if registry != nil {
		registry.MustRegister(callMetrics)
	}
	api := aldestools.GetInstrumentedAldesClient(
		cfg.GetString("aldes.username"),
		cfg.GetString("aldes.password"),
		cfg.GetString("aldes.apikey"),
		callMetrics,
	)
	api.Logger = logger.With("component", "aldes")

	// Do we have vacation presets?
	vacations, err := presets.MaybeLoad(filepath.Join(filepath.Dir(cfg.ConfigFileUsed()), "presets.yaml"))
	if err != nil {
		return nil, fmt.Errorf("presets: %w", err)
	}

	return makeTasks(cfg, api, vacations, version, registry, logger), nil
}

func makeTasks(cfg *viper.Viper, api *aldes.APIClient, vacations presets.Presets, version string, registry prometheus.Registerer, l *slog.Logger) []Task {
	var tasks []Task

	// Poller
	p := poller.New(api, cfg.GetDuration("poller.interval"), l.With("component", "poller"))
	tasks = append(tasks, p)

	// Collector
	coll := &collector.Collector{Poller: p, Logger: l.With("component", "collector")}
	if registry != nil {
		registry.MustRegister(coll)
	}
	tasks = append(tasks, coll)

	// Prometheus Server
	m := http.NewServeMux()
	m.Handle("/metrics", promhttp.Handler())
	tasks = append(tasks, newHTTPServer(cfg.GetString("exporter.addr"), m))

	// Health Endpoint
	h := health.New(p, l.With("component", "health"))
	tasks = append(tasks, h)
	r := http.NewServeMux()
	r.Handle("/health", h)
	tasks = append(tasks, newHTTPServer(cfg.GetString("health.addr"), r))

	// Slackbot
	if token := cfg.GetString("slack.token"); token != "" {
		b := slackbot.New(
			token,
			slackbot.WithName("aldesBot "+version),
			slackbot.WithLogger(l.With(slog.String("component", "slackbot"))),
		)
		tasks = append(tasks,
			b,
			bot.New(api, b, p, vacations, l.With(slog.String("component", "bot"))),
		)
	}

	return tasks
}

func runTasks(ctx context.Context, tasks []Task) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		g.Go(func() error { return task.Run(ctx) })
	}
	return g.Wait()
}
