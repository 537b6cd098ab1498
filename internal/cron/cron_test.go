package cron

import (
	"context"
	"testing"

	cronv3 "github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"

	"github.com/relaykit/mailrelay/config"
	"github.com/relaykit/mailrelay/interfaces"
	"github.com/relaykit/mailrelay/internal/logger"
)

type stubRelayService struct {
	cycles int
}

func (s *stubRelayService) RunCycle(ctx context.Context, accountEmail string) (*interfaces.CycleStats, error) {
	s.cycles++
	return &interfaces.CycleStats{AccountEmail: accountEmail}, nil
}

func (s *stubRelayService) RunAllCycles(ctx context.Context) ([]*interfaces.CycleStats, error) {
	s.cycles++
	return nil, nil
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func TestNewCronManager(t *testing.T) {
	// Arrange
	cfg := &config.Config{}
	log := getLogger()
	relay := &stubRelayService{}

	// Act
	cm := NewCronManager(cfg, log, relay)

	// Assert
	assert.NotNil(t, cm)
	assert.Equal(t, cfg, cm.cfg)
	assert.Equal(t, log, cm.log)
	assert.NotNil(t, cm.jobIDs)
}

func TestCronManager_RegisterJobs(t *testing.T) {
	t.Setenv("CRON_SCHEDULE_HEARTBEAT", "0 * * * * *")
	t.Setenv("CRON_SCHEDULE_RELAY_CYCLE", "0 */5 * * * *")

	// Arrange
	cm := NewCronManager(&config.Config{}, getLogger(), &stubRelayService{})
	c := cronv3.New(cronv3.WithSeconds())

	// Act
	cm.registerJobs(c)

	// Assert
	assert.Equal(t, 2, len(cm.jobIDs))
	assert.Contains(t, cm.jobIDs, "heartbeat")
	assert.Contains(t, cm.jobIDs, "relay_cycle")
}

func TestCronManager_Stop(t *testing.T) {
	// Arrange
	cm := NewCronManager(&config.Config{}, getLogger(), &stubRelayService{})

	mockCron := cronv3.New()
	mockCron.Start()
	cm.cron = mockCron

	// Act
	cm.Stop()

	// Assert
	select {
	case <-cm.stopCh:
		// Channel is closed as expected
	default:
		t.Error("Stop channel was not closed")
	}
}

func TestCronManager_RunRelayCycles(t *testing.T) {
	relay := &stubRelayService{}
	cm := NewCronManager(&config.Config{}, getLogger(), relay)

	cm.runRelayCycles()

	assert.Equal(t, 1, relay.cycles)
}
