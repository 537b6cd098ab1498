package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Relay cycle over all active accounts, every five minutes
	CronScheduleRelayCycle string `env:"CRON_SCHEDULE_RELAY_CYCLE" envDefault:"0 */5 * * * *"`
}
