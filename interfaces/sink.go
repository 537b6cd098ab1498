package interfaces

import (
	"context"

	"github.com/relaykit/mailrelay/internal/models"
)

type NotificationSink interface {
	// Validate checks the sink credentials without sending anything.
	Validate(ctx context.Context) error
	SendText(ctx context.Context, text string) error
	SendDocument(ctx context.Context, attachment *models.AttachmentData) error
}
