package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/relaykit/mailrelay/config"
	"github.com/relaykit/mailrelay/interfaces"
	"github.com/relaykit/mailrelay/internal/models"
)

type Repositories struct {
	AccountRepository       interfaces.AccountRepository
	CheckpointRepository    interfaces.CheckpointRepository
	ProcessedItemRepository interfaces.ProcessedItemRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		AccountRepository:       NewAccountRepository(db),
		CheckpointRepository:    NewCheckpointRepository(db),
		ProcessedItemRepository: NewProcessedItemRepository(db),
	}
}

func MigrateDB(dbConfig *config.DatabaseConfig, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxOpenConns(5)

	err = db.AutoMigrate(
		&models.Account{},
		&models.Checkpoint{},
		&models.ProcessedItem{},
	)

	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConn)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConn)
	sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Second)

	return err
}
