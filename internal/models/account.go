package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/relaykit/mailrelay/internal/enum"
	"github.com/relaykit/mailrelay/internal/utils"
)

// Account represents a monitored mail account.
type Account struct {
	ID           string           `gorm:"column:id;type:varchar(50);uniqueIndex" json:"id"`
	EmailAddress string           `gorm:"column:email_address;type:varchar(255);primaryKey" json:"emailAddress"`
	AccountType  enum.AccountType `gorm:"column:account_type;type:varchar(50);index;not null" json:"accountType"`
	IsActive     bool             `gorm:"column:is_active;not null;default:true" json:"isActive"`
	Folders      pq.StringArray   `gorm:"column:folders;type:text[]" json:"folders"`

	// IMAP configuration
	ImapServer   string                  `gorm:"column:imap_server;type:varchar(255)" json:"imapServer,omitempty"`
	ImapPort     int                     `gorm:"column:imap_port" json:"imapPort,omitempty"`
	ImapUsername string                  `gorm:"column:imap_username;type:varchar(255)" json:"imapUsername,omitempty"`
	ImapPassword string                  `gorm:"column:imap_password;type:varchar(255)" json:"-"`
	ImapSecurity enum.ConnectionSecurity `gorm:"column:imap_security;type:varchar(20);default:'tls'" json:"imapSecurity,omitempty"`

	// Microsoft Graph configuration
	GraphTenantID     string `gorm:"column:graph_tenant_id;type:varchar(100)" json:"graphTenantId,omitempty"`
	GraphClientID     string `gorm:"column:graph_client_id;type:varchar(100)" json:"graphClientId,omitempty"`
	GraphClientSecret string `gorm:"column:graph_client_secret;type:varchar(255)" json:"-"`

	// Per-account override of the attachment extensions that are not relayed.
	// Empty means the configured default set applies.
	SkipExtensions pq.StringArray `gorm:"column:skip_extensions;type:text[]" json:"skipExtensions,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (Account) TableName() string {
	return "accounts"
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = utils.GenerateNanoIDWithPrefix("acct", 12)
	}
	a.CreatedAt = utils.Now()
	return nil
}

// MonitorFolders returns the folders to scan, defaulting to the inbox.
func (a *Account) MonitorFolders() []string {
	if len(a.Folders) == 0 {
		return []string{"INBOX"}
	}
	return a.Folders
}
