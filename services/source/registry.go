package source

import (
	"github.com/relaykit/mailrelay/interfaces"
	"github.com/relaykit/mailrelay/internal/enum"
	er "github.com/relaykit/mailrelay/internal/errors"
	"github.com/relaykit/mailrelay/services/source/graphsource"
	"github.com/relaykit/mailrelay/services/source/imapsource"
)

// Registry maps account types to source session factories
type Registry struct {
	factories map[enum.AccountType]interfaces.SourceFactory
}

func NewRegistry() *Registry {
	return &Registry{
		factories: map[enum.AccountType]interfaces.SourceFactory{
			enum.AccountTypeIMAP:  imapsource.NewIMAPSource,
			enum.AccountTypeGraph: graphsource.NewGraphSource,
		},
	}
}

// NewSession builds a fresh, not yet logged in source for the account type
func (r *Registry) NewSession(accountType enum.AccountType) (interfaces.EmailSource, error) {
	factory, ok := r.factories[accountType]
	if !ok {
		return nil, er.ErrUnknownAccountType
	}
	return factory(), nil
}

// Register installs or replaces a factory for an account type
func (r *Registry) Register(accountType enum.AccountType, factory interfaces.SourceFactory) {
	r.factories[accountType] = factory
}
