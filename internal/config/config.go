package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const defaultConnectionString = "Host=localhost;Port=5432;Database=escrow_engine_db;Username=postgres;Password=postgres;Timeout=30;CommandTimeout=30"
const defaultHTTPAddr = ":8080"
const defaultMigrationsDir = "migrations"
const defaultWalletCurrency = "HTG"

type Config struct {
	DatabaseDSN    string
	MigrationsDir  string
	HTTPAddr       string
	WalletCurrency string
	ChannelID      string
	ChannelKey     string
	ChannelKeyHash string
	KafkaBrokers   []string
}

func Load() (Config, error) {
	// Best effort: a missing .env just means plain environment variables.
	_ = godotenv.Load()

	conn := strings.TrimSpace(os.Getenv("DATABASE_DSN"))
	if conn == "" {
		conn = defaultConnectionString
	}

	httpAddr := strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if httpAddr == "" {
		httpAddr = defaultHTTPAddr
	}

	migrationsDir := strings.TrimSpace(os.Getenv("MIGRATIONS_DIR"))
	if migrationsDir == "" {
		migrationsDir = defaultMigrationsDir
	}

	currency := strings.ToUpper(strings.TrimSpace(os.Getenv("WALLET_CURRENCY")))
	if currency == "" {
		currency = defaultWalletCurrency
	}

	var brokers []string
	for _, broker := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		broker = strings.TrimSpace(broker)
		if broker != "" {
			brokers = append(brokers, broker)
		}
	}

	return Config{
		DatabaseDSN:    normalizeConnectionString(conn),
		MigrationsDir:  migrationsDir,
		HTTPAddr:       httpAddr,
		WalletCurrency: currency,
		ChannelID:      strings.TrimSpace(os.Getenv("CHANNEL_ID")),
		ChannelKey:     strings.TrimSpace(os.Getenv("CHANNEL_KEY")),
		ChannelKeyHash: strings.TrimSpace(os.Getenv("CHANNEL_KEY_HASH")),
		KafkaBrokers:   brokers,
	}, nil
}

// normalizeConnectionString accepts either a Key=Value;Key=Value connection
// string or a ready libpq DSN and normalizes it to libpq form.
func normalizeConnectionString(raw string) string {
	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "host":
			out = append(out, "host="+val)
		case "port":
			out = append(out, "port="+val)
		case "database":
			out = append(out, "dbname="+val)
		case "username":
			out = append(out, "user="+val)
		case "password":
			out = append(out, "password="+val)
		case "timeout", "connect timeout":
			out = append(out, "connect_timeout="+val)
		case "commandtimeout", "command timeout":
			out = append(out, "statement_timeout="+val+"s")
		case "sslmode":
			hasSSLMode = true
			out = append(out, "sslmode="+val)
		default:
			out = append(out, key+"="+val)
		}
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}
