package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	PGDSN           string
	MongoURI        string
	RedisAddr       string
	RabbitURL       string
	GatewayBaseURL  string
	IdentityBaseURL string
	BankAccount     string
	BankHolder      string
	HoldTTL         time.Duration
	LedgerTTL       time.Duration
	ListenAddr      string
	OTLPEndpoint    string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	holdTTL, _ := time.ParseDuration(os.Getenv("HOLD_TTL"))
	if holdTTL == 0 {
		holdTTL = 5 * time.Minute
	}

	// Unpaid bank transfers cancel after 24h; the ledger record must outlive
	// any round trip to the gateway but not a stale transaction.
	ledgerTTL, _ := time.ParseDuration(os.Getenv("LEDGER_TTL"))
	if ledgerTTL == 0 {
		ledgerTTL = 24 * time.Hour
	}

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	return &Config{
		PGDSN:           os.Getenv("PG_DSN"),
		MongoURI:        os.Getenv("MONGO_URI"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RabbitURL:       os.Getenv("RABBIT_URL"),
		GatewayBaseURL:  os.Getenv("GATEWAY_BASE_URL"),
		IdentityBaseURL: os.Getenv("IDENTITY_BASE_URL"),
		BankAccount:     os.Getenv("BANK_ACCOUNT"),
		BankHolder:      os.Getenv("BANK_HOLDER"),
		HoldTTL:         holdTTL,
		LedgerTTL:       ledgerTTL,
		ListenAddr:      listenAddr,
		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}
