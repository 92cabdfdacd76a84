package params

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Storage holds the host's persistence settings: where the pebble-backed
// action log and state snapshots live on disk.
type Storage struct {
	DataDir string
}

// API holds the indexer/demo-host HTTP surface settings.
type API struct {
	ListenAddr string
	TxLogFile  string
}

// Seed lists the demo tokens and pairs a host advertises: hostd logs them
// at startup and the API reports them under /status. Nothing is registered
// from it; the engine accepts any token or pair an action names.
type Seed struct {
	Tokens []string
	Pairs  []string // "BASE/QUOTE" entries
}

type Config struct {
	Storage Storage
	API     API
	Seed    Seed
}

func Default() Config {
	return Config{
		Storage: Storage{DataDir: "data/spotbook"},
		API:     API{ListenAddr: ":8080", TxLogFile: "data/actions.log"},
		Seed: Seed{
			Tokens: []string{"ORANJ", "USDC"},
			Pairs:  []string{"ORANJ/USDC"},
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg.Storage.DataDir = getEnv("SPOTBOOK_DATA_DIR", cfg.Storage.DataDir)
	cfg.API.ListenAddr = getEnv("SPOTBOOK_LISTEN_ADDR", cfg.API.ListenAddr)
	cfg.API.TxLogFile = getEnv("TX_LOG_FILE", cfg.API.TxLogFile)

	if tokens := os.Getenv("SPOTBOOK_SEED_TOKENS"); tokens != "" {
		cfg.Seed.Tokens = splitCSV(tokens)
	}
	if pairs := os.Getenv("SPOTBOOK_SEED_PAIRS"); pairs != "" {
		cfg.Seed.Pairs = splitCSV(pairs)
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
