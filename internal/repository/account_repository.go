package repository

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/relaykit/mailrelay/interfaces"
	"github.com/relaykit/mailrelay/internal/models"
	"github.com/relaykit/mailrelay/internal/tracing"
)

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) interfaces.AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagAccount(span, account.EmailAddress)

	if account.EmailAddress == "" {
		return ErrInvalidInput
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("email_address = ?", account.EmailAddress).
		Count(&count).Error; err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to check account existence: %w", err)
	}
	if count > 0 {
		return ErrAccountAlreadyExists
	}

	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

func (r *accountRepository) Update(ctx context.Context, account *models.Account) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountRepository.Update")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagAccount(span, account.EmailAddress)

	result := r.db.WithContext(ctx).Save(account)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to update account: %w", result.Error)
	}

	return nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, emailAddress string) (*models.Account, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountRepository.GetByEmail")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagAccount(span, emailAddress)

	var account models.Account
	result := r.db.WithContext(ctx).
		Where("email_address = ?", emailAddress).
		First(&account)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, ErrAccountNotFound
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get account: %w", result.Error)
	}

	return &account, nil
}

func (r *accountRepository) GetAllActive(ctx context.Context) ([]*models.Account, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountRepository.GetAllActive")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var accounts []*models.Account
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("email_address ASC").
		Find(&accounts).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to list active accounts: %w", err)
	}

	return accounts, nil
}

func (r *accountRepository) GetAll(ctx context.Context) ([]*models.Account, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountRepository.GetAll")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var accounts []*models.Account
	if err := r.db.WithContext(ctx).
		Order("email_address ASC").
		Find(&accounts).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	return accounts, nil
}

func (r *accountRepository) Delete(ctx context.Context, emailAddress string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountRepository.Delete")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagAccount(span, emailAddress)

	result := r.db.WithContext(ctx).
		Where("email_address = ?", emailAddress).
		Delete(&models.Account{})

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to delete account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}

	return nil
}

func (r *accountRepository) SetActive(ctx context.Context, emailAddress string, active bool) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountRepository.SetActive")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagAccount(span, emailAddress)

	result := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("email_address = ?", emailAddress).
		Update("is_active", active)

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to update account state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}

	return nil
}
