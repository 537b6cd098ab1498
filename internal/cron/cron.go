package cron

import (
	"context"
	"os"
	"sync"

	"github.com/caarlos0/env/v6"
	cronv3 "github.com/robfig/cron/v3"

	"github.com/relaykit/mailrelay/config"
	"github.com/relaykit/mailrelay/interfaces"
	cron_config "github.com/relaykit/mailrelay/internal/cron/config"
	"github.com/relaykit/mailrelay/internal/logger"
	"github.com/relaykit/mailrelay/internal/tracing"
)

const (
	// GroupRelay is the group for relay cycle jobs
	GroupRelay = "relay"
)

// LOCK MANAGEMENT
var jobLocks = struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}{
	locks: map[string]*sync.Mutex{
		GroupRelay: new(sync.Mutex),
	},
}

type CronManager struct {
	cfg    *config.Config
	log    logger.Logger
	cron   *cronv3.Cron
	stopCh chan struct{}
	jobIDs map[string]cronv3.EntryID
	relay  interfaces.RelayService
}

func NewCronManager(cfg *config.Config, log logger.Logger, relay interfaces.RelayService) *CronManager {
	return &CronManager{
		cfg:    cfg,
		log:    log,
		stopCh: make(chan struct{}),
		jobIDs: make(map[string]cronv3.EntryID),
		relay:  relay,
	}
}

// Stop gracefully stops the cron manager
func (cm *CronManager) Stop() {
	if cm.cron != nil {
		cm.log.Info("Stopping cron manager")
		ctx := cm.cron.Stop()
		// Wait for jobs to finish
		<-ctx.Done()
	}
	close(cm.stopCh)
}

// registerJobs adds all cron jobs to the scheduler
func (cm *CronManager) registerJobs(c *cronv3.Cron) {
	// Load cron config from environment variables
	var cronConfig cron_config.Config
	if err := env.Parse(&cronConfig); err != nil {
		cm.log.Fatalf("Failed to parse cron config from environment: %v", err)
	}

	// Register heartbeat job
	if cronConfig.CronScheduleHeartbeat != "" {
		hostname, _ := os.Hostname()
		id, err := c.AddFunc(cronConfig.CronScheduleHeartbeat, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.log.Infof("Cron heartbeat from host: %s", hostname)
		})
		if err != nil {
			cm.log.Fatalf("Could not add heartbeat cron job: %v", err)
		}
		cm.jobIDs["heartbeat"] = id
		cm.log.Infof("Registered heartbeat job with schedule: %s", cronConfig.CronScheduleHeartbeat)
	}

	// Register relay cycle job
	if cronConfig.CronScheduleRelayCycle != "" {
		id, err := c.AddFunc(cronConfig.CronScheduleRelayCycle, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			jobLocks.locks[GroupRelay].Lock()
			defer jobLocks.locks[GroupRelay].Unlock()
			cm.runRelayCycles()
		})
		if err != nil {
			cm.log.Fatalf("Could not add relay cycle cron job: %v", err)
		}
		cm.jobIDs["relay_cycle"] = id
		cm.log.Infof("Registered relay cycle job with schedule: %s", cronConfig.CronScheduleRelayCycle)
	}
}

// StartCron initializes and starts the cron scheduler
func (cm *CronManager) StartCron() {
	cm.log.Info("Starting cron manager")
	// Create a new cron with seconds field enabled and panic recovery
	cronOptions := []cronv3.Option{
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger), // Skip if still running
			cronv3.Recover(cronv3.DefaultLogger),            // Default recovery as backup
		),
	}
	c := cronv3.New(cronOptions...)
	cm.registerJobs(c)
	c.Start()
	cm.cron = c
}

func (cm *CronManager) runRelayCycles() {
	cm.log.Info("Running relay cycles for active accounts")

	ctx := context.Background()

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.runRelayCycles")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	results, err := cm.relay.RunAllCycles(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("Relay cycles failed: %v", err)
		return
	}

	delivered := 0
	for _, stats := range results {
		delivered += stats.Delivered
	}
	cm.log.Infof("Relay cycles completed: %d accounts, %d items delivered", len(results), delivered)
}
