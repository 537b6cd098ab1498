package models

import (
	"time"

	"github.com/relaykit/mailrelay/internal/enum"
)

// MailItem is a read-only view of one message as observed from a source
// adapter. The relay never mutates the source; items are value objects.
type MailItem struct {
	ID          string
	Timestamp   time.Time
	Sender      string
	Subject     string
	Body        string
	Kind        enum.ItemKind
	Attachments []AttachmentRef
}

// AttachmentRef identifies an attachment on an item without carrying its
// content. Bytes are fetched lazily, one attachment at a time.
type AttachmentRef struct {
	ID       string
	Filename string
	MimeHint string
	Size     int
}

// AttachmentData carries fetched attachment content. Either ContentBytes or
// Filepath is set; a non-empty Filepath points at a staged temporary file
// owned by whoever fetched it and released before the item concludes.
type AttachmentData struct {
	Filename     string
	ContentBytes []byte
	Filepath     string
	MimeHint     string
}
