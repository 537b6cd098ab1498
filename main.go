package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/urfave/cli/v2"

	"github.com/relaykit/mailrelay/config"
	"github.com/relaykit/mailrelay/internal/database"
	"github.com/relaykit/mailrelay/internal/logger"
	"github.com/relaykit/mailrelay/internal/repository"
	"github.com/relaykit/mailrelay/internal/tracing"
	"github.com/relaykit/mailrelay/server"
	"github.com/relaykit/mailrelay/services"
)

func main() {
	app := &cli.App{
		Name:  "mailrelay",
		Usage: "relay new mail items from monitored accounts to a chat sink",
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Run database migrations",
				Action: runMigrate,
			},
			{
				Name:   "server",
				Usage:  "Start the application server",
				Action: runServer,
			},
			{
				Name:  "cycle",
				Usage: "Run relay cycles from the command line",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "account",
						Usage: "email address of a single account to poll (default: all active accounts)",
					},
					&cli.IntFlag{
						Name:  "interval",
						Usage: "repeat every N seconds instead of running once",
					},
				},
				Action: runCycle,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setup() (*config.Config, *repository.Repositories, error) {
	cfg, err := config.InitConfig()
	if err != nil {
		return nil, nil, err
	}

	db, err := database.NewConnection(&cfg.DatabaseConfig)
	if err != nil {
		return nil, nil, err
	}

	return cfg, repository.InitRepositories(db), nil
}

func runMigrate(c *cli.Context) error {
	cfg, err := config.InitConfig()
	if err != nil {
		return err
	}

	db, err := database.NewConnection(&cfg.DatabaseConfig)
	if err != nil {
		return err
	}

	if err := repository.MigrateDB(&cfg.DatabaseConfig, db); err != nil {
		return err
	}

	log.Println("Database migration completed successfully")
	return nil
}

func runServer(c *cli.Context) error {
	cfg, err := config.InitConfig()
	if err != nil {
		return err
	}

	db, err := database.NewConnection(&cfg.DatabaseConfig)
	if err != nil {
		return err
	}

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("MailRelay starting up...")

	srv, err := server.NewServer(cfg, db)
	if err != nil {
		return err
	}

	if err := srv.Run(); err != nil {
		return err
	}

	log.Println("Shutdown complete")
	return nil
}

func runCycle(c *cli.Context) error {
	cfg, repos, err := setup()
	if err != nil {
		return err
	}

	appLogger := logger.NewAppLogger(&cfg.Logger)
	appLogger.InitLogger()
	defer appLogger.Sync()

	tracer, closer, err := tracing.NewJaegerTracer(&cfg.Jaeger, appLogger)
	if err != nil {
		return err
	}
	defer closer.Close()
	opentracing.SetGlobalTracer(tracer)

	svcs := services.InitServices(cfg, appLogger, repos)

	if err := svcs.NotificationSink.Validate(context.Background()); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		appLogger.Info("Interrupt received, finishing current item before exit")
		cancel()
	}()

	account := c.String("account")
	interval := c.Int("interval")

	for {
		if err := runOnce(ctx, svcs, account); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			appLogger.Errorf("Cycle failed: %v", err)
		}

		if interval <= 0 {
			return nil
		}

		select {
		case <-time.After(time.Duration(interval) * time.Second):
		case <-ctx.Done():
			return nil
		}
	}
}

func runOnce(ctx context.Context, svcs *services.Services, account string) error {
	if account != "" {
		stats, err := svcs.RelayService.RunCycle(ctx, account)
		if err != nil {
			return err
		}
		log.Printf("Cycle for %s: %d delivered, %d skipped, %d failed", account, stats.Delivered, stats.Skipped, stats.Failed)
		return nil
	}

	results, err := svcs.RelayService.RunAllCycles(ctx)
	if err != nil {
		return err
	}
	for _, stats := range results {
		log.Printf("Cycle for %s: %d delivered, %d skipped, %d failed", stats.AccountEmail, stats.Delivered, stats.Skipped, stats.Failed)
	}
	return nil
}
