package config

import (
	"github.com/spf13/viper"

	"github.com/mrlokans/marginalia/internal/ocr"
	"github.com/mrlokans/marginalia/internal/parsers"
)

type (
	Config struct {
		HTTP
		Storage
		Export
		ExportSync
		Inbox
		Parsers
		OCR
		Backup
		Global
	}

	HTTP struct {
		Port int32
		Host string
	}
	Storage struct {
		Dir string // Directory for persisted bundle JSON files
	}
	Export struct {
		Dir string // Directory for rendered export files
	}
	ExportSync struct {
		Enabled  bool
		Schedule string // Cron format: "0 * * * *" = hourly
		Renderer string
	}
	Inbox struct {
		Enabled bool
		Dir     string // Watched directory; dropped files get imported
	}
	Parsers struct {
		WeReadMinBareLineLen  int
		IReaderMinBareLineLen int
	}
	OCR struct {
		MinConfidence float64
	}
	Backup struct {
		DatabasePath string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("storage_dir", "./bundles")
	v.SetDefault("export_dir", "./exports")
	v.SetDefault("export_sync_enabled", false)
	v.SetDefault("export_sync_schedule", "0 * * * *") // Hourly at :00
	v.SetDefault("export_sync_renderer", "markdown")
	v.SetDefault("inbox_enabled", false)
	v.SetDefault("inbox_dir", "./inbox")
	v.SetDefault("weread_min_bare_line_len", parsers.DefaultWeReadMinBareLine)
	v.SetDefault("ireader_min_bare_line_len", parsers.DefaultIReaderMinBareLine)
	v.SetDefault("ocr_min_confidence", ocr.DefaultMinConfidence)
	v.SetDefault("backup_database_path", "./backup.db")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Storage: Storage{
			Dir: v.GetString("STORAGE_DIR"),
		},
		Export: Export{
			Dir: v.GetString("EXPORT_DIR"),
		},
		ExportSync: ExportSync{
			Enabled:  v.GetBool("EXPORT_SYNC_ENABLED"),
			Schedule: v.GetString("EXPORT_SYNC_SCHEDULE"),
			Renderer: v.GetString("EXPORT_SYNC_RENDERER"),
		},
		Inbox: Inbox{
			Enabled: v.GetBool("INBOX_ENABLED"),
			Dir:     v.GetString("INBOX_DIR"),
		},
		Parsers: Parsers{
			WeReadMinBareLineLen:  v.GetInt("WEREAD_MIN_BARE_LINE_LEN"),
			IReaderMinBareLineLen: v.GetInt("IREADER_MIN_BARE_LINE_LEN"),
		},
		OCR: OCR{
			MinConfidence: v.GetFloat64("OCR_MIN_CONFIDENCE"),
		},
		Backup: Backup{
			DatabasePath: v.GetString("BACKUP_DATABASE_PATH"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
	}
}
