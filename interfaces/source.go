package interfaces

import (
	"context"

	"github.com/relaykit/mailrelay/internal/models"
)

// EmailSource is a session-oriented connection to one mail account.
// Login must succeed before any other call; Logout is always safe to
// call and releases the session.
type EmailSource interface {
	Login(ctx context.Context, account *models.Account) error
	// ListRecent returns up to limit items from the folder, newest first.
	ListRecent(ctx context.Context, folder string, limit int) ([]*models.MailItem, error)
	// FetchAttachments materializes the attachment payloads for an item.
	FetchAttachments(ctx context.Context, item *models.MailItem) ([]*models.AttachmentData, error)
	Logout(ctx context.Context) error
}

// SourceFactory builds a fresh source session for an account type.
type SourceFactory func() EmailSource
