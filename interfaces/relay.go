package interfaces

import "context"

type CycleStats struct {
	AccountEmail string `json:"accountEmail"`
	Scanned      int    `json:"scanned"`
	Delivered    int    `json:"delivered"`
	Skipped      int    `json:"skipped"`
	Failed       int    `json:"failed"`
}

type RelayService interface {
	// RunCycle polls one account and relays every unseen item, oldest
	// first. The checkpoint and ledger advance even when delivery of an
	// individual item fails.
	RunCycle(ctx context.Context, accountEmail string) (*CycleStats, error)
	// RunAllCycles runs a cycle for every active account.
	RunAllCycles(ctx context.Context) ([]*CycleStats, error)
}
