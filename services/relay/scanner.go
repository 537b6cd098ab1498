package relay

import (
	"context"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"

	"github.com/relaykit/mailrelay/interfaces"
	"github.com/relaykit/mailrelay/internal/logger"
	"github.com/relaykit/mailrelay/internal/models"
	"github.com/relaykit/mailrelay/internal/tracing"
)

// scanner decides which items in the recent window are new for an
// account. It owns the first-run seeding policy and the steady-state
// walk down to the checkpoint.
type scanner struct {
	checkpoints interfaces.CheckpointRepository
	ledger      interfaces.ProcessedItemRepository
	windowLimit int
	log         logger.Logger
}

func newScanner(checkpoints interfaces.CheckpointRepository, ledger interfaces.ProcessedItemRepository, windowLimit int, log logger.Logger) *scanner {
	return &scanner{
		checkpoints: checkpoints,
		ledger:      ledger,
		windowLimit: windowLimit,
		log:         log,
	}
}

// Scan returns the unseen items of one folder, oldest first. On the
// first scan of an account the checkpoint is seeded to the newest
// visible item and nothing is returned.
func (s *scanner) Scan(ctx context.Context, account *models.Account, session interfaces.EmailSource, folder string) ([]*models.MailItem, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "scanner.Scan")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagAccount(span, account.EmailAddress)
	span.SetTag(tracing.SpanTagFolder, folder)

	window, err := session.ListRecent(ctx, folder, s.windowLimit)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	span.LogFields(tracingLog.Int("windowSize", len(window)))

	checkpoint, err := s.checkpoints.Get(ctx, account.EmailAddress)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if checkpoint == nil {
		return nil, s.seed(ctx, span, account, window)
	}

	var unseen []*models.MailItem
	for _, item := range window {
		if item.ID != "" && item.ID == checkpoint.LastItemID {
			break
		}
		if item.ID != "" {
			processed, err := s.ledger.IsProcessed(ctx, account.EmailAddress, item.ID)
			if err != nil {
				tracing.TraceErr(span, err)
				return nil, err
			}
			if processed {
				// Checkpoint is stale relative to the ledger
				continue
			}
		}
		unseen = append(unseen, item)
	}

	// Deliver in chronological order
	for i, j := 0, len(unseen)-1; i < j; i, j = i+1, j-1 {
		unseen[i], unseen[j] = unseen[j], unseen[i]
	}

	span.LogFields(tracingLog.Int("unseen", len(unseen)))
	return unseen, nil
}

// seed establishes the checkpoint at the newest visible item without
// delivering anything, so activating an account does not flood the
// sink with history. An empty window leaves the checkpoint unset and a
// later cycle retries.
func (s *scanner) seed(ctx context.Context, span opentracing.Span, account *models.Account, window []*models.MailItem) error {
	if len(window) == 0 {
		s.log.Infof("no checkpoint and no visible items for %s, seeding deferred", account.EmailAddress)
		return nil
	}

	newest := window[0]
	if newest.ID == "" {
		s.log.Warnf("newest item for %s has no id, seeding deferred", account.EmailAddress)
		return nil
	}

	if err := s.checkpoints.Save(ctx, account.EmailAddress, newest.ID, newest.Timestamp); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	s.log.Infof("seeded checkpoint for %s at item %s, nothing delivered", account.EmailAddress, newest.ID)
	return nil
}
