package relay

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"

	"github.com/relaykit/mailrelay/config"
	"github.com/relaykit/mailrelay/interfaces"
	"github.com/relaykit/mailrelay/internal/enum"
	er "github.com/relaykit/mailrelay/internal/errors"
	"github.com/relaykit/mailrelay/internal/logger"
	"github.com/relaykit/mailrelay/internal/repository"
	"github.com/relaykit/mailrelay/internal/tracing"
	"github.com/relaykit/mailrelay/services/source"
)

type relayService struct {
	repositories *repository.Repositories
	registry     *source.Registry
	sink         interfaces.NotificationSink
	cfg          *config.RelayConfig
	scanner      *scanner
	pipeline     *pipeline
	log          logger.Logger
}

func NewRelayService(repos *repository.Repositories, registry *source.Registry, sink interfaces.NotificationSink, cfg *config.RelayConfig, log logger.Logger) interfaces.RelayService {
	return &relayService{
		repositories: repos,
		registry:     registry,
		sink:         sink,
		cfg:          cfg,
		scanner:      newScanner(repos.CheckpointRepository, repos.ProcessedItemRepository, cfg.WindowLimit, log),
		pipeline:     newPipeline(sink, repos.CheckpointRepository, repos.ProcessedItemRepository, cfg, log),
		log:          log,
	}
}

// RunCycle polls one account and relays every unseen item in
// chronological order. Safe to call repeatedly: already-committed
// items are never redelivered.
func (s *relayService) RunCycle(ctx context.Context, accountEmail string) (*interfaces.CycleStats, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RelayService.RunCycle")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagAccount(span, accountEmail)

	cycleID := uuid.New().String()
	span.SetTag("cycle-id", cycleID)

	account, err := s.repositories.AccountRepository.GetByEmail(ctx, accountEmail)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, er.ErrAccountNotFound
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	if !account.IsActive {
		return nil, er.ErrAccountInactive
	}

	session, err := s.registry.NewSession(account.AccountType)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if err := session.Login(ctx, account); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	defer session.Logout(ctx)

	stats := &interfaces.CycleStats{AccountEmail: accountEmail}

	for _, folder := range account.MonitorFolders() {
		items, err := s.scanner.Scan(ctx, account, session, folder)
		if err != nil {
			tracing.TraceErr(span, err)
			return stats, err
		}

		for i, item := range items {
			// Cancellation takes effect between items, never mid-item
			if err := ctx.Err(); err != nil {
				return stats, err
			}

			stats.Scanned++
			outcome, err := s.pipeline.Process(ctx, account, session, item)
			if err != nil {
				return stats, err
			}

			switch outcome {
			case enum.OutcomeDelivered:
				stats.Delivered++
			case enum.OutcomePartialFailure:
				stats.Failed++
			default:
				stats.Skipped++
			}

			if i < len(items)-1 && s.cfg.ItemDelaySeconds > 0 {
				select {
				case <-time.After(time.Duration(s.cfg.ItemDelaySeconds) * time.Second):
				case <-ctx.Done():
					return stats, ctx.Err()
				}
			}
		}
	}

	span.LogFields(
		tracingLog.Int("scanned", stats.Scanned),
		tracingLog.Int("delivered", stats.Delivered),
		tracingLog.Int("skipped", stats.Skipped),
		tracingLog.Int("failed", stats.Failed),
	)

	s.log.Infof("cycle %s finished for %s: %d scanned, %d delivered, %d skipped, %d failed",
		cycleID, accountEmail, stats.Scanned, stats.Delivered, stats.Skipped, stats.Failed)

	return stats, nil
}

// RunAllCycles runs one cycle per active account. A failing account
// does not stop the others.
func (s *relayService) RunAllCycles(ctx context.Context) ([]*interfaces.CycleStats, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RelayService.RunAllCycles")
	defer span.Finish()
	tracing.TagComponentService(span)

	accounts, err := s.repositories.AccountRepository.GetAllActive(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	var results []*interfaces.CycleStats
	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		stats, err := s.RunCycle(ctx, account.EmailAddress)
		if err != nil {
			s.log.Errorf("cycle failed for %s: %v", account.EmailAddress, err)
			tracing.TraceErr(span, err)
		}
		if stats != nil {
			results = append(results, stats)
		}
	}

	return results, nil
}
