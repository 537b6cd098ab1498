package source

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relaykit/mailrelay/internal/enum"
	er "github.com/relaykit/mailrelay/internal/errors"
)

func TestRegistry_KnownTypes(t *testing.T) {
	registry := NewRegistry()

	imapSession, err := registry.NewSession(enum.AccountTypeIMAP)
	assert.NoError(t, err)
	assert.NotNil(t, imapSession)

	graphSession, err := registry.NewSession(enum.AccountTypeGraph)
	assert.NoError(t, err)
	assert.NotNil(t, graphSession)
}

func TestRegistry_UnknownType(t *testing.T) {
	registry := NewRegistry()

	session, err := registry.NewSession(enum.AccountType("pop3"))
	assert.Nil(t, session)
	assert.ErrorIs(t, err, er.ErrUnknownAccountType)
}

func TestRegistry_SessionsAreIndependent(t *testing.T) {
	registry := NewRegistry()

	first, err := registry.NewSession(enum.AccountTypeIMAP)
	assert.NoError(t, err)
	second, err := registry.NewSession(enum.AccountTypeIMAP)
	assert.NoError(t, err)

	assert.NotSame(t, first, second)
}
