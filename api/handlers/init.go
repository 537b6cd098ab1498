package handlers

import (
	"github.com/relaykit/mailrelay/interfaces"
	"github.com/relaykit/mailrelay/internal/repository"
)

type APIHandlers struct {
	Accounts *AccountsHandler
	Cycles   *CyclesHandler
}

func InitHandlers(r *repository.Repositories, relayService interfaces.RelayService) *APIHandlers {
	return &APIHandlers{
		Accounts: NewAccountsHandler(r),
		Cycles:   NewCyclesHandler(relayService),
	}
}
