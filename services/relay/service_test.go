package relay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaykit/mailrelay/interfaces"
	"github.com/relaykit/mailrelay/internal/enum"
	er "github.com/relaykit/mailrelay/internal/errors"
	"github.com/relaykit/mailrelay/internal/models"
	"github.com/relaykit/mailrelay/internal/repository"
	"github.com/relaykit/mailrelay/services/source"
)

type memAccounts struct {
	byEmail map[string]*models.Account
}

func newMemAccounts(accounts ...*models.Account) *memAccounts {
	m := &memAccounts{byEmail: make(map[string]*models.Account)}
	for _, a := range accounts {
		m.byEmail[a.EmailAddress] = a
	}
	return m
}

func (m *memAccounts) Create(ctx context.Context, account *models.Account) error {
	m.byEmail[account.EmailAddress] = account
	return nil
}

func (m *memAccounts) Update(ctx context.Context, account *models.Account) error {
	m.byEmail[account.EmailAddress] = account
	return nil
}

func (m *memAccounts) GetByEmail(ctx context.Context, emailAddress string) (*models.Account, error) {
	account, ok := m.byEmail[emailAddress]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return account, nil
}

func (m *memAccounts) GetAllActive(ctx context.Context) ([]*models.Account, error) {
	var result []*models.Account
	for _, a := range m.byEmail {
		if a.IsActive {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *memAccounts) GetAll(ctx context.Context) ([]*models.Account, error) {
	var result []*models.Account
	for _, a := range m.byEmail {
		result = append(result, a)
	}
	return result, nil
}

func (m *memAccounts) Delete(ctx context.Context, emailAddress string) error {
	delete(m.byEmail, emailAddress)
	return nil
}

func (m *memAccounts) SetActive(ctx context.Context, emailAddress string, active bool) error {
	if a, ok := m.byEmail[emailAddress]; ok {
		a.IsActive = active
	}
	return nil
}

func newTestService(accounts *memAccounts, src *fakeSource, sink *fakeSink) (interfaces.RelayService, *memCheckpoints, *memLedger) {
	checkpoints := newMemCheckpoints()
	ledger := newMemLedger()

	repos := &repository.Repositories{
		AccountRepository:       accounts,
		CheckpointRepository:    checkpoints,
		ProcessedItemRepository: ledger,
	}

	registry := source.NewRegistry()
	registry.Register(enum.AccountTypeIMAP, func() interfaces.EmailSource { return src })

	return NewRelayService(repos, registry, sink, testRelayConfig(), testLogger()), checkpoints, ledger
}

func TestRunCycle_FirstRunDeliversNothing(t *testing.T) {
	account := testAccount()
	src := newFakeSource()
	src.windows["INBOX"] = []*models.MailItem{itemAt("b", 1), itemAt("a", 2)}
	sink := newFakeSink()

	svc, checkpoints, _ := newTestService(newMemAccounts(account), src, sink)

	stats, err := svc.RunCycle(context.Background(), account.EmailAddress)

	require.NoError(t, err)
	assert.Zero(t, stats.Delivered)
	assert.Empty(t, sink.texts)
	assert.True(t, src.loggedOut)

	checkpoint, _ := checkpoints.Get(context.Background(), account.EmailAddress)
	require.NotNil(t, checkpoint)
	assert.Equal(t, "b", checkpoint.LastItemID)
}

func TestRunCycle_DeliversNewItemsInOrder(t *testing.T) {
	account := testAccount()
	src := newFakeSource()
	sink := newFakeSink()

	svc, checkpoints, ledger := newTestService(newMemAccounts(account), src, sink)
	ctx := context.Background()

	b := itemAt("b", 10)
	require.NoError(t, checkpoints.Save(ctx, account.EmailAddress, b.ID, b.Timestamp))

	src.windows["INBOX"] = []*models.MailItem{itemAt("d", 1), itemAt("c", 2), b}

	stats, err := svc.RunCycle(ctx, account.EmailAddress)

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Delivered)
	require.Len(t, sink.texts, 2)
	assert.Contains(t, sink.texts[0], "subject c")
	assert.Contains(t, sink.texts[1], "subject d")

	count, _ := ledger.CountForAccount(ctx, account.EmailAddress)
	assert.Equal(t, int64(2), count)

	checkpoint, _ := checkpoints.Get(ctx, account.EmailAddress)
	assert.Equal(t, "d", checkpoint.LastItemID)
}

func TestRunCycle_SecondCycleIsIdempotent(t *testing.T) {
	account := testAccount()
	src := newFakeSource()
	sink := newFakeSink()

	svc, checkpoints, _ := newTestService(newMemAccounts(account), src, sink)
	ctx := context.Background()

	b := itemAt("b", 10)
	require.NoError(t, checkpoints.Save(ctx, account.EmailAddress, b.ID, b.Timestamp))
	src.windows["INBOX"] = []*models.MailItem{itemAt("c", 2), b}

	_, err := svc.RunCycle(ctx, account.EmailAddress)
	require.NoError(t, err)

	stats, err := svc.RunCycle(ctx, account.EmailAddress)
	require.NoError(t, err)

	assert.Zero(t, stats.Delivered)
	assert.Len(t, sink.texts, 1)
}

func TestRunCycle_InactiveAccount(t *testing.T) {
	account := testAccount()
	account.IsActive = false

	svc, _, _ := newTestService(newMemAccounts(account), newFakeSource(), newFakeSink())

	_, err := svc.RunCycle(context.Background(), account.EmailAddress)
	assert.ErrorIs(t, err, er.ErrAccountInactive)
}

func TestRunCycle_UnknownAccount(t *testing.T) {
	svc, _, _ := newTestService(newMemAccounts(), newFakeSource(), newFakeSink())

	_, err := svc.RunCycle(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, er.ErrAccountNotFound)
}

func TestRunCycle_LoginFailureMutatesNothing(t *testing.T) {
	account := testAccount()
	src := newFakeSource()
	src.loginErr = er.ErrSourceUnavailable
	src.windows["INBOX"] = []*models.MailItem{itemAt("a", 1)}

	svc, checkpoints, ledger := newTestService(newMemAccounts(account), src, newFakeSink())
	ctx := context.Background()

	_, err := svc.RunCycle(ctx, account.EmailAddress)
	assert.ErrorIs(t, err, er.ErrSourceUnavailable)

	checkpoint, _ := checkpoints.Get(ctx, account.EmailAddress)
	assert.Nil(t, checkpoint)
	count, _ := ledger.CountForAccount(ctx, account.EmailAddress)
	assert.Zero(t, count)
}
