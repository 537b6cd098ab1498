package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/relaykit/mailrelay/config"
	"github.com/relaykit/mailrelay/internal/logger"
	"github.com/relaykit/mailrelay/internal/models"
)

func testLogger() logger.Logger {
	l := logger.NewAppLogger(&logger.Config{DevMode: true, LogLevel: "error"})
	l.InitLogger()
	return l
}

func testRelayConfig() *config.RelayConfig {
	return &config.RelayConfig{
		WindowLimit:      25,
		MessageCharLimit: 4000,
		TruncationMarker: "... [message truncated]",
		SkipExtensions:   []string{".jpg", ".png"},
	}
}

// memCheckpoints is an in-memory CheckpointRepository
type memCheckpoints struct {
	byAccount map[string]*models.Checkpoint
}

func newMemCheckpoints() *memCheckpoints {
	return &memCheckpoints{byAccount: make(map[string]*models.Checkpoint)}
}

func (c *memCheckpoints) Get(ctx context.Context, accountEmail string) (*models.Checkpoint, error) {
	return c.byAccount[accountEmail], nil
}

func (c *memCheckpoints) Save(ctx context.Context, accountEmail, itemID string, itemTimestamp time.Time) error {
	c.byAccount[accountEmail] = &models.Checkpoint{
		AccountEmail:      accountEmail,
		LastItemID:        itemID,
		LastItemTimestamp: itemTimestamp,
	}
	return nil
}

func (c *memCheckpoints) Delete(ctx context.Context, accountEmail string) error {
	delete(c.byAccount, accountEmail)
	return nil
}

// memLedger is an in-memory ProcessedItemRepository
type memLedger struct {
	rows []*models.ProcessedItem
}

func newMemLedger() *memLedger {
	return &memLedger{}
}

func (l *memLedger) MarkProcessed(ctx context.Context, accountEmail, itemID string) error {
	for _, row := range l.rows {
		if row.AccountEmail == accountEmail && row.ItemID == itemID {
			return nil
		}
	}
	l.rows = append(l.rows, &models.ProcessedItem{
		ID:           fmt.Sprintf("ldgr_%d", len(l.rows)),
		AccountEmail: accountEmail,
		ItemID:       itemID,
		ProcessedAt:  time.Now().UTC(),
	})
	return nil
}

func (l *memLedger) IsProcessed(ctx context.Context, accountEmail, itemID string) (bool, error) {
	for _, row := range l.rows {
		if row.AccountEmail == accountEmail && row.ItemID == itemID {
			return true, nil
		}
	}
	return false, nil
}

func (l *memLedger) LatestProcessed(ctx context.Context, accountEmail string) (*models.ProcessedItem, error) {
	var latest *models.ProcessedItem
	for _, row := range l.rows {
		if row.AccountEmail != accountEmail {
			continue
		}
		if latest == nil || row.ProcessedAt.After(latest.ProcessedAt) {
			latest = row
		}
	}
	return latest, nil
}

func (l *memLedger) CountForAccount(ctx context.Context, accountEmail string) (int64, error) {
	var count int64
	for _, row := range l.rows {
		if row.AccountEmail == accountEmail {
			count++
		}
	}
	return count, nil
}

func (l *memLedger) DeleteForAccount(ctx context.Context, accountEmail string) error {
	var kept []*models.ProcessedItem
	for _, row := range l.rows {
		if row.AccountEmail != accountEmail {
			kept = append(kept, row)
		}
	}
	l.rows = kept
	return nil
}

// fakeSource serves a fixed window per folder
type fakeSource struct {
	windows       map[string][]*models.MailItem
	attachments   map[string][]*models.AttachmentData
	attachmentErr error
	loginErr      error
	loggedIn      bool
	loggedOut     bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		windows:     make(map[string][]*models.MailItem),
		attachments: make(map[string][]*models.AttachmentData),
	}
}

func (s *fakeSource) Login(ctx context.Context, account *models.Account) error {
	if s.loginErr != nil {
		return s.loginErr
	}
	s.loggedIn = true
	return nil
}

func (s *fakeSource) ListRecent(ctx context.Context, folder string, limit int) ([]*models.MailItem, error) {
	window := s.windows[folder]
	if len(window) > limit {
		window = window[:limit]
	}
	return window, nil
}

func (s *fakeSource) FetchAttachments(ctx context.Context, item *models.MailItem) ([]*models.AttachmentData, error) {
	if s.attachmentErr != nil {
		return nil, s.attachmentErr
	}
	return s.attachments[item.ID], nil
}

func (s *fakeSource) Logout(ctx context.Context) error {
	s.loggedOut = true
	return nil
}

// fakeSink records deliveries and can fail selectively
type fakeSink struct {
	texts        []string
	documents    []string
	failText     bool
	failDocument map[string]bool
}

func newFakeSink() *fakeSink {
	return &fakeSink{failDocument: make(map[string]bool)}
}

func (s *fakeSink) Validate(ctx context.Context) error {
	return nil
}

func (s *fakeSink) SendText(ctx context.Context, text string) error {
	if s.failText {
		return fmt.Errorf("text delivery refused")
	}
	s.texts = append(s.texts, text)
	return nil
}

func (s *fakeSink) SendDocument(ctx context.Context, attachment *models.AttachmentData) error {
	if s.failDocument[attachment.Filename] {
		return fmt.Errorf("document delivery refused")
	}
	s.documents = append(s.documents, attachment.Filename)
	return nil
}
