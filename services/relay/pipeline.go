package relay

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"

	"github.com/relaykit/mailrelay/config"
	"github.com/relaykit/mailrelay/interfaces"
	"github.com/relaykit/mailrelay/internal/enum"
	er "github.com/relaykit/mailrelay/internal/errors"
	"github.com/relaykit/mailrelay/internal/logger"
	"github.com/relaykit/mailrelay/internal/models"
	"github.com/relaykit/mailrelay/internal/tracing"
	"github.com/relaykit/mailrelay/internal/utils"
)

// pipeline pushes one item through sanitize, format, deliver and
// commit. Whatever happens during delivery, an item with a valid id
// ends up in the ledger exactly once: the unit of retry is the whole
// item, once attempted.
type pipeline struct {
	sink        interfaces.NotificationSink
	checkpoints interfaces.CheckpointRepository
	ledger      interfaces.ProcessedItemRepository
	cfg         *config.RelayConfig
	log         logger.Logger
}

func newPipeline(sink interfaces.NotificationSink, checkpoints interfaces.CheckpointRepository, ledger interfaces.ProcessedItemRepository, cfg *config.RelayConfig, log logger.Logger) *pipeline {
	return &pipeline{
		sink:        sink,
		checkpoints: checkpoints,
		ledger:      ledger,
		cfg:         cfg,
		log:         log,
	}
}

// Process delivers one item and commits it. Only a missing id or
// timestamp leaves the item uncommitted; every other path records the
// item so it is never examined again.
func (p *pipeline) Process(ctx context.Context, account *models.Account, session interfaces.EmailSource, item *models.MailItem) (enum.DeliveryOutcome, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "pipeline.Process")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagAccount(span, account.EmailAddress)
	tracing.TagItem(span, item.ID)

	if item.ID == "" || item.Timestamp.IsZero() {
		p.log.Warnf("skipping malformed item for %s (subject %q): missing id or timestamp", account.EmailAddress, item.Subject)
		tracing.TraceErr(span, er.ErrItemMalformed)
		return enum.OutcomeSkippedNoID, nil
	}

	processed, err := p.ledger.IsProcessed(ctx, account.EmailAddress, item.ID)
	if err != nil {
		tracing.TraceErr(span, err)
		return enum.OutcomeSkippedDuplicate, errors.Wrap(er.ErrStorageFailure, err.Error())
	}
	if processed {
		p.log.Debugf("item %s for %s already in ledger, not redelivering", item.ID, account.EmailAddress)
		return enum.OutcomeSkippedDuplicate, nil
	}

	if item.Kind != enum.ItemKindMail {
		p.log.Infof("skipping %s item %s for %s", item.Kind, item.ID, account.EmailAddress)
		if err := p.commit(ctx, span, account, item); err != nil {
			return enum.OutcomeSkippedKind, err
		}
		return enum.OutcomeSkippedKind, nil
	}

	failed := false

	message := p.formatMessage(item)
	if err := p.sink.SendText(ctx, message); err != nil {
		p.log.Errorf("text delivery failed for %s item %s (subject %q): %v", account.EmailAddress, item.ID, item.Subject, err)
		tracing.TraceErr(span, err)
		failed = true
	}

	if len(item.Attachments) > 0 {
		if !p.deliverAttachments(ctx, span, account, session, item) {
			failed = true
		}
	}

	if err := p.commit(ctx, span, account, item); err != nil {
		return enum.OutcomePartialFailure, err
	}

	if failed {
		return enum.OutcomePartialFailure, nil
	}
	return enum.OutcomeDelivered, nil
}

// deliverAttachments sends each attachment in source order, skipping
// configured extensions. Individual failures do not abort the rest.
// Returns false when any fetch or send failed.
func (p *pipeline) deliverAttachments(ctx context.Context, span opentracing.Span, account *models.Account, session interfaces.EmailSource, item *models.MailItem) bool {
	attachments, err := session.FetchAttachments(ctx, item)
	if err != nil {
		p.log.Errorf("attachment fetch failed for %s item %s: %v", account.EmailAddress, item.ID, err)
		tracing.TraceErr(span, err)
		return false
	}

	skipSet := p.skipExtensions(account)
	ok := true

	for _, attachment := range attachments {
		if attachment.Filename == "" {
			attachment.Filename = utils.FallbackAttachmentName
		}

		if utils.IsStringInSlice(utils.ExtensionOf(attachment.Filename), skipSet) {
			p.log.Debugf("skipping attachment %s on item %s by extension", attachment.Filename, item.ID)
			p.releaseStaged(attachment)
			continue
		}

		if err := p.sink.SendDocument(ctx, attachment); err != nil {
			p.log.Errorf("attachment delivery failed for %s item %s file %s: %v", account.EmailAddress, item.ID, attachment.Filename, err)
			tracing.TraceErr(span, err)
			ok = false
		} else if p.cfg.AttachmentDelaySeconds > 0 {
			time.Sleep(time.Duration(p.cfg.AttachmentDelaySeconds) * time.Second)
		}

		p.releaseStaged(attachment)
	}

	return ok
}

// commit records the item in the ledger and advances the checkpoint.
// A ledger write failure is surfaced loudly: it is the linchpin of the
// at-most-once guarantee.
func (p *pipeline) commit(ctx context.Context, span opentracing.Span, account *models.Account, item *models.MailItem) error {
	if err := p.ledger.MarkProcessed(ctx, account.EmailAddress, item.ID); err != nil {
		err = errors.Wrap(er.ErrStorageFailure, err.Error())
		p.log.Errorf("ledger commit failed for %s item %s: %v", account.EmailAddress, item.ID, err)
		tracing.TraceErr(span, err)
		return err
	}

	if err := p.checkpoints.Save(ctx, account.EmailAddress, item.ID, item.Timestamp); err != nil {
		err = errors.Wrap(er.ErrStorageFailure, err.Error())
		p.log.Errorf("checkpoint advance failed for %s item %s: %v", account.EmailAddress, item.ID, err)
		tracing.TraceErr(span, err)
		return err
	}

	latest, err := p.ledger.LatestProcessed(ctx, account.EmailAddress)
	if err == nil && latest != nil {
		span.LogFields(tracingLog.String("latestProcessedItem", latest.ItemID))
	}

	return nil
}

func (p *pipeline) formatMessage(item *models.MailItem) string {
	sender := utils.SanitizeForSink(item.Sender)
	subject := utils.SanitizeForSink(item.Subject)
	body := utils.SanitizeForSink(strings.TrimSpace(item.Body))

	timestamp := ""
	if !item.Timestamp.IsZero() {
		timestamp = item.Timestamp.Format("2006-01-02 15:04")
	}

	message := fmt.Sprintf("<b>From:</b> %s\n<b>Subject:</b> %s\n<b>Date:</b> %s\n\n%s", sender, subject, timestamp, body)

	return utils.TruncateMessage(message, p.cfg.MessageCharLimit, p.cfg.TruncationMarker)
}

func (p *pipeline) skipExtensions(account *models.Account) []string {
	if len(account.SkipExtensions) > 0 {
		return account.SkipExtensions
	}
	return p.cfg.SkipExtensions
}

// releaseStaged removes an attachment's temporary file, if any
func (p *pipeline) releaseStaged(attachment *models.AttachmentData) {
	if attachment.Filepath == "" {
		return
	}
	if err := os.Remove(attachment.Filepath); err != nil && !os.IsNotExist(err) {
		p.log.Warnf("failed to remove staged attachment file %s: %v", attachment.Filepath, err)
	}
	attachment.Filepath = ""
}
