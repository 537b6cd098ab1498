package interfaces

import (
	"context"

	"github.com/relaykit/mailrelay/internal/models"
)

type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	Update(ctx context.Context, account *models.Account) error
	GetByEmail(ctx context.Context, emailAddress string) (*models.Account, error)
	GetAllActive(ctx context.Context) ([]*models.Account, error)
	GetAll(ctx context.Context) ([]*models.Account, error)
	Delete(ctx context.Context, emailAddress string) error
	SetActive(ctx context.Context, emailAddress string, active bool) error
}
