package services

import (
	"github.com/relaykit/mailrelay/config"
	"github.com/relaykit/mailrelay/interfaces"
	"github.com/relaykit/mailrelay/internal/logger"
	"github.com/relaykit/mailrelay/internal/repository"
	"github.com/relaykit/mailrelay/services/relay"
	"github.com/relaykit/mailrelay/services/source"
	"github.com/relaykit/mailrelay/services/telegram"
)

type Services struct {
	SourceRegistry   *source.Registry
	NotificationSink interfaces.NotificationSink
	RelayService     interfaces.RelayService
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) *Services {
	registry := source.NewRegistry()
	sink := telegram.NewTelegramService(&cfg.TelegramConfig)

	return &Services{
		SourceRegistry:   registry,
		NotificationSink: sink,
		RelayService:     relay.NewRelayService(repos, registry, sink, &cfg.RelayConfig, log),
	}
}
