package relay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaykit/mailrelay/internal/enum"
	"github.com/relaykit/mailrelay/internal/models"
)

func testAccount() *models.Account {
	return &models.Account{
		EmailAddress: "watcher@example.com",
		AccountType:  enum.AccountTypeIMAP,
		IsActive:     true,
	}
}

func itemAt(id string, minutesAgo int) *models.MailItem {
	return &models.MailItem{
		ID:        id,
		Timestamp: time.Now().UTC().Add(-time.Duration(minutesAgo) * time.Minute),
		Sender:    "sender@example.com",
		Subject:   "subject " + id,
		Body:      "body " + id,
		Kind:      enum.ItemKindMail,
	}
}

func TestScan_FirstRunSeedsCheckpoint(t *testing.T) {
	checkpoints := newMemCheckpoints()
	ledger := newMemLedger()
	account := testAccount()

	src := newFakeSource()
	src.windows["INBOX"] = []*models.MailItem{itemAt("c", 1), itemAt("b", 2), itemAt("a", 3)}

	s := newScanner(checkpoints, ledger, 25, testLogger())
	items, err := s.Scan(context.Background(), account, src, "INBOX")

	require.NoError(t, err)
	assert.Empty(t, items)

	checkpoint, _ := checkpoints.Get(context.Background(), account.EmailAddress)
	require.NotNil(t, checkpoint)
	assert.Equal(t, "c", checkpoint.LastItemID)

	count, _ := ledger.CountForAccount(context.Background(), account.EmailAddress)
	assert.Zero(t, count)
}

func TestScan_NoCheckpointNoItems(t *testing.T) {
	checkpoints := newMemCheckpoints()
	account := testAccount()

	s := newScanner(checkpoints, newMemLedger(), 25, testLogger())
	items, err := s.Scan(context.Background(), account, newFakeSource(), "INBOX")

	require.NoError(t, err)
	assert.Empty(t, items)

	checkpoint, _ := checkpoints.Get(context.Background(), account.EmailAddress)
	assert.Nil(t, checkpoint)
}

func TestScan_SteadyStateDeliveryOrder(t *testing.T) {
	checkpoints := newMemCheckpoints()
	account := testAccount()
	ctx := context.Background()

	c := itemAt("c", 3)
	require.NoError(t, checkpoints.Save(ctx, account.EmailAddress, c.ID, c.Timestamp))

	src := newFakeSource()
	src.windows["INBOX"] = []*models.MailItem{
		itemAt("e", 1), itemAt("d", 2), c, itemAt("b", 4), itemAt("a", 5),
	}

	s := newScanner(checkpoints, newMemLedger(), 25, testLogger())
	items, err := s.Scan(ctx, account, src, "INBOX")

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "d", items[0].ID)
	assert.Equal(t, "e", items[1].ID)
}

func TestScan_LedgerBackstopDropsStaleCandidates(t *testing.T) {
	checkpoints := newMemCheckpoints()
	ledger := newMemLedger()
	account := testAccount()
	ctx := context.Background()

	// Checkpoint lags behind the ledger: c was processed but the
	// checkpoint still points at a.
	a := itemAt("a", 5)
	require.NoError(t, checkpoints.Save(ctx, account.EmailAddress, a.ID, a.Timestamp))
	require.NoError(t, ledger.MarkProcessed(ctx, account.EmailAddress, "c"))

	src := newFakeSource()
	src.windows["INBOX"] = []*models.MailItem{
		itemAt("e", 1), itemAt("d", 2), itemAt("c", 3), itemAt("b", 4), a,
	}

	s := newScanner(checkpoints, ledger, 25, testLogger())
	items, err := s.Scan(ctx, account, src, "INBOX")

	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "b", items[0].ID)
	assert.Equal(t, "d", items[1].ID)
	assert.Equal(t, "e", items[2].ID)
}

func TestScan_EmptyWindowWithCheckpointLeavesItUntouched(t *testing.T) {
	checkpoints := newMemCheckpoints()
	account := testAccount()
	ctx := context.Background()

	c := itemAt("c", 3)
	require.NoError(t, checkpoints.Save(ctx, account.EmailAddress, c.ID, c.Timestamp))

	s := newScanner(checkpoints, newMemLedger(), 25, testLogger())
	items, err := s.Scan(ctx, account, newFakeSource(), "INBOX")

	require.NoError(t, err)
	assert.Empty(t, items)

	checkpoint, _ := checkpoints.Get(ctx, account.EmailAddress)
	require.NotNil(t, checkpoint)
	assert.Equal(t, "c", checkpoint.LastItemID)
}

func TestScan_WindowLimitBoundsTheFetch(t *testing.T) {
	checkpoints := newMemCheckpoints()
	account := testAccount()
	ctx := context.Background()

	old := itemAt("old", 60)
	require.NoError(t, checkpoints.Save(ctx, account.EmailAddress, old.ID, old.Timestamp))

	src := newFakeSource()
	src.windows["INBOX"] = []*models.MailItem{
		itemAt("e", 1), itemAt("d", 2), itemAt("c", 3), itemAt("b", 4), itemAt("a", 5),
	}

	s := newScanner(checkpoints, newMemLedger(), 2, testLogger())
	items, err := s.Scan(ctx, account, src, "INBOX")

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "d", items[0].ID)
	assert.Equal(t, "e", items[1].ID)
}
