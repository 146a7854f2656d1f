package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"ovdeclare/internal/amqp"
	"ovdeclare/internal/cli"
	"ovdeclare/internal/config"
	"ovdeclare/internal/core"
	"ovdeclare/internal/history"
	"ovdeclare/internal/log"
	"ovdeclare/internal/metrics"
	"ovdeclare/internal/services"
	"ovdeclare/internal/storage"
)

func main() {
	once := flag.Bool("once", false, "run the configured month range once even when SCHEDULE is set")
	status := flag.Bool("status", false, "print the recorded month runs of DECLARE_YEAR and exit")
	force := flag.Bool("force", false, "reprocess months that were already declared")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.SlogLevel())

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	if *status {
		if err := printStatus(context.Background(), repo, cfg.Year); err != nil {
			logger.Error("Failed to list month runs", log.FieldError, err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := cli.ShutdownContext(logger, 30*time.Second)
	defer cancel()

	stations := cli.LoadStations(logger, cfg.StationsFile)

	source, stopSource, err := cli.NewRowSource(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize history source", log.FieldError, err, log.FieldBackend, cfg.HistoryBackend)
		os.Exit(1)
	}
	defer stopSource()

	// SQLite first so a failing publish still leaves the selection on disk
	sinks := []history.SelectionSink{repo}
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPSelectionQueue, cfg.AMQPDeclarationQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		sinks = append(sinks, amqpClient)
		logger.Info("Publishing selections over AMQP", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPSelectionQueue)
	} else {
		logger.Info("AMQP disabled - selections are only stored in SQLite")
	}

	// Counters still fill in one-shot mode; only the daemon serves them.
	var m *metrics.Metrics
	if cfg.MetricsAddr != "" {
		m = metrics.New()
	}
	driver := services.NewMonthDriver(source, repo, stations, sinks...).WithLogger(logger).WithMetrics(m)
	driver.Force = cfg.Force || *force

	if cfg.Schedule == "" || *once {
		if err := runRange(ctx, driver, cfg); err != nil {
			logger.Error("Driver run finished with failures", log.FieldError, err)
			os.Exit(1)
		}
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runScheduled(gctx, logger, driver, cfg)
	})
	if m != nil {
		g.Go(func() error {
			logger.Info("Serving metrics", "addr", cfg.MetricsAddr)
			return m.Serve(gctx, cfg.MetricsAddr)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Driver daemon stopped with error", log.FieldError, err)
		os.Exit(1)
	}
}

// runRange processes the configured months of the configured year.
func runRange(ctx context.Context, driver *services.MonthDriver, cfg *config.Config) error {
	months, err := core.MonthRange(cfg.Year, cfg.FirstMonth, cfg.LastMonth)
	if err != nil {
		return err
	}
	_, err = driver.Run(ctx, months[0], months[len(months)-1])
	return err
}

// runScheduled runs the month range on every tick of cfg.Schedule until ctx
// is cancelled, then waits for a running job to finish.
func runScheduled(ctx context.Context, logger *log.Logger, driver *services.MonthDriver, cfg *config.Config) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(cfg.Schedule, func() {
		if err := runRange(ctx, driver, cfg); err != nil {
			logger.Error("Scheduled run finished with failures", log.FieldError, err)
		}
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", cfg.Schedule, err)
	}

	c.Start()
	logger.Info("Driver scheduled", "schedule", cfg.Schedule)

	<-ctx.Done()
	logger.Info("Waiting for running job to finish")
	<-c.Stop().Done()
	logger.Info("Scheduler stopped")
	return nil
}

func printStatus(ctx context.Context, repo *storage.SQLiteRepository, year int) error {
	runs, err := repo.ListRuns(ctx, year)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MONTH\tSTATUS\tEVENTS\tSELECTED\tFARES\tDECLARED\tUPDATED\tERROR")
	for _, r := range runs {
		fmt.Fprintf(w, "%04d-%02d\t%s\t%d\t%d\t%s\t%s\t%s\t%s\n",
			r.Year, r.Month, r.Status, r.EventCount, r.SelectedCount,
			r.FareTotal.StringFixed(2), r.DeclaredAmount,
			r.UpdatedAt.Local().Format(time.DateTime), r.Error)
	}
	return w.Flush()
}
