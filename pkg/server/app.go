package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"PumpWatch/pkg/config"
	xhttp "PumpWatch/pkg/http"
	applogger "PumpWatch/pkg/logger"
)

// Job is a scheduled pipeline stage run by the daemon.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// App runs the dashboard API and the scheduled scan/track/report jobs until interrupted.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	httpServer *xhttp.Server
	cron       *cron.Cron
	jobs       []Job
	closers    []io.Closer
}

// New creates the daemon. Jobs with an empty spec are skipped.
func New(cfg *config.Config, l *applogger.Logger, handler xhttp.Handler, jobs []Job, closers ...io.Closer) (*App, error) {
	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("schedule timezone: %w", err)
	}
	cl := cronLogger{l: l}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	a := &App{cfg: cfg, l: l, cron: c, closers: closers}
	for _, j := range jobs {
		if j.Spec == "" {
			l.Info("job disabled", applogger.String("job", j.Name))
			continue
		}
		if _, err := c.AddFunc(j.Spec, a.wrap(j)); err != nil {
			return nil, fmt.Errorf("schedule %s: %w", j.Name, err)
		}
		a.jobs = append(a.jobs, j)
	}

	a.httpServer = xhttp.NewServer(handler,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithLogger(l),
	)
	return a, nil
}

// Jobs returns the scheduled jobs.
func (a *App) Jobs() []Job { return a.jobs }

func (a *App) wrap(j Job) func() {
	return func() {
		start := time.Now()
		a.l.Info("job started", applogger.String("job", j.Name))
		ctx := context.Background()
		if err := j.Run(ctx); err != nil {
			a.l.Error("job failed", applogger.String("job", j.Name), applogger.Duration("elapsed", time.Since(start)), applogger.Error(err))
			return
		}
		a.l.Info("job finished", applogger.String("job", j.Name), applogger.Duration("elapsed", time.Since(start)))
	}
}

// Run starts the application and blocks until ctx is done or a signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.cron.Start()
	for _, e := range a.cron.Entries() {
		a.l.Info("job scheduled", applogger.Any("next", e.Next))
	}
	a.l.Info("daemon started", applogger.Int("jobs", len(a.jobs)), applogger.String("workspace", a.cfg.Workspace.Dir))

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	// Wait for running jobs so the ledger is never left mid-write.
	<-a.cron.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.l.Warn("close error", applogger.Error(err))
		}
	}
	a.l.Info("shutdown complete")
	return nil
}

// cronLogger adapts the app logger to cron.Logger.
type cronLogger struct {
	l *applogger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, kv(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(kv(keysAndValues), applogger.Error(err))...)
}

func kv(pairs []interface{}) []applogger.Field {
	out := make([]applogger.Field, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, applogger.Any(fmt.Sprint(pairs[i]), pairs[i+1]))
	}
	return out
}
