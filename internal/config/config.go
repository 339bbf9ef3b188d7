package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/liamashdown/whalewatch/internal/secrets"
)

// Market is one exchange order book to watch
type Market struct {
	Exchange string
	Symbol   string
}

// Config holds all application configuration
type Config struct {
	// Environment
	Environment string
	LogLevel    string

	// Database (optional, persists threshold overrides)
	DatabaseDSN         string
	DatabaseMaxConns    int
	DatabaseMaxIdleTime time.Duration

	// Detection
	BTCThresholdUSD     decimal.Decimal
	ETHThresholdUSD     decimal.Decimal
	EntityDirectoryFile string
	MempoolScanLimit    int
	ETHBlockLookback    int
	OrderBookMarkets    []Market
	FallbackBTCPrice    decimal.Decimal
	FallbackETHPrice    decimal.Decimal

	// Upstream APIs
	BlockchainBaseURL string
	EtherscanBaseURL  string
	EtherscanAPIKey   string
	CoinbaseBaseURL   string
	KrakenBaseURL     string
	GeminiBaseURL     string
	BinanceBaseURL    string
	CoinGeckoBaseURL  string
	HTTPTimeout       time.Duration

	// Rate limits (requests per second)
	BlockchainRPS float64
	EtherscanRPS  float64
	CoinbaseRPS   float64
	KrakenRPS     float64
	GeminiRPS     float64
	BinanceRPS    float64
	CoinGeckoRPS  float64

	// Polling
	PollIntervalSec   int
	MaxAlertsPerCycle int

	// Alerts
	AlertMode          string // comma-separated: log, discord, smtp
	DiscordWebhookURLs []string
	SMTPHost           string
	SMTPPort           int
	SMTPUser           string
	SMTPPassword       string
	SMTPFrom           string
	SMTPTo             []string

	// HTTP
	HealthPort int
	AdminToken string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:         getEnv("ENVIRONMENT", "production"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		DatabaseDSN:         getEnv("DATABASE_DSN", ""),
		DatabaseMaxConns:    getEnvInt("DATABASE_MAX_CONNS", 5),
		DatabaseMaxIdleTime: time.Duration(getEnvInt("DATABASE_MAX_IDLE_TIME_MINS", 5)) * time.Minute,
		BTCThresholdUSD:     getEnvDecimal("BTC_THRESHOLD_USD", decimal.NewFromInt(1_000_000)),
		ETHThresholdUSD:     getEnvDecimal("ETH_THRESHOLD_USD", decimal.NewFromInt(500_000)),
		EntityDirectoryFile: getEnv("ENTITY_DIRECTORY_FILE", ""),
		MempoolScanLimit:    getEnvInt("MEMPOOL_SCAN_LIMIT", 50),
		ETHBlockLookback:    getEnvInt("ETH_BLOCK_LOOKBACK", 5),
		FallbackBTCPrice:    getEnvDecimal("FALLBACK_BTC_PRICE", decimal.NewFromInt(45_000)),
		FallbackETHPrice:    getEnvDecimal("FALLBACK_ETH_PRICE", decimal.NewFromInt(2_500)),
		BlockchainBaseURL:   getEnv("BLOCKCHAIN_API_BASE_URL", "https://blockchain.info"),
		EtherscanBaseURL:    getEnv("ETHERSCAN_API_BASE_URL", "https://api.etherscan.io/api"),
		EtherscanAPIKey:     secrets.GetOptionalSecret("ETHERSCAN_API_KEY", ""),
		CoinbaseBaseURL:     getEnv("COINBASE_API_BASE_URL", "https://api.exchange.coinbase.com"),
		KrakenBaseURL:       getEnv("KRAKEN_API_BASE_URL", "https://api.kraken.com"),
		GeminiBaseURL:       getEnv("GEMINI_API_BASE_URL", "https://api.gemini.com"),
		BinanceBaseURL:      getEnv("BINANCE_API_BASE_URL", "https://api.binance.com"),
		CoinGeckoBaseURL:    getEnv("COINGECKO_API_BASE_URL", "https://api.coingecko.com/api/v3"),
		HTTPTimeout:         time.Duration(getEnvInt("HTTP_TIMEOUT_SEC", 10)) * time.Second,
		BlockchainRPS:       getEnvFloat("BLOCKCHAIN_RPS", 10.0),
		EtherscanRPS:        getEnvFloat("ETHERSCAN_RPS", 5.0),
		CoinbaseRPS:         getEnvFloat("COINBASE_RPS", 10.0),
		KrakenRPS:           getEnvFloat("KRAKEN_RPS", 5.0),
		GeminiRPS:           getEnvFloat("GEMINI_RPS", 10.0),
		BinanceRPS:          getEnvFloat("BINANCE_RPS", 10.0),
		CoinGeckoRPS:        getEnvFloat("COINGECKO_RPS", 1.0),
		PollIntervalSec:     getEnvInt("POLL_INTERVAL_SEC", 300),
		MaxAlertsPerCycle:   getEnvInt("MAX_ALERTS_PER_CYCLE", 3),
		AlertMode:           getEnv("ALERT_MODE", "log"),
		SMTPHost:            getEnv("SMTP_HOST", ""),
		SMTPPort:            getEnvInt("SMTP_PORT", 587),
		SMTPUser:            getEnv("SMTP_USER", ""),
		SMTPPassword:        secrets.GetOptionalSecret("SMTP_PASSWORD", ""),
		SMTPFrom:            getEnv("SMTP_FROM", "whalewatch@example.com"),
		HealthPort:          getEnvInt("HEALTH_PORT", 8080),
		AdminToken:          secrets.GetOptionalSecret("ADMIN_TOKEN", ""),
	}

	cfg.DiscordWebhookURLs = parseCSV(secrets.GetOptionalSecret("DISCORD_WEBHOOK_URLS", ""))
	cfg.SMTPTo = parseCSV(getEnv("SMTP_TO", ""))

	markets, err := ParseMarkets(getEnv("ORDERBOOK_MARKETS", "coinbase:BTC-USD,coinbase:ETH-USD,kraken:XBTUSD,kraken:ETHUSD,gemini:btcusd,gemini:ethusd"))
	if err != nil {
		return nil, err
	}
	cfg.OrderBookMarkets = markets

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.BTCThresholdUSD.IsNegative() {
		return fmt.Errorf("BTC_THRESHOLD_USD must not be negative")
	}
	if c.ETHThresholdUSD.IsNegative() {
		return fmt.Errorf("ETH_THRESHOLD_USD must not be negative")
	}
	if !c.FallbackBTCPrice.IsPositive() || !c.FallbackETHPrice.IsPositive() {
		return fmt.Errorf("FALLBACK_BTC_PRICE and FALLBACK_ETH_PRICE must be positive")
	}
	if c.PollIntervalSec <= 0 {
		return fmt.Errorf("POLL_INTERVAL_SEC must be positive, got %d", c.PollIntervalSec)
	}
	if c.MaxAlertsPerCycle <= 0 {
		return fmt.Errorf("MAX_ALERTS_PER_CYCLE must be positive, got %d", c.MaxAlertsPerCycle)
	}
	if c.MempoolScanLimit < 0 || c.ETHBlockLookback < 0 {
		return fmt.Errorf("MEMPOOL_SCAN_LIMIT and ETH_BLOCK_LOOKBACK must not be negative")
	}

	for _, m := range c.OrderBookMarkets {
		switch m.Exchange {
		case "coinbase", "kraken", "gemini", "binance":
		default:
			return fmt.Errorf("invalid ORDERBOOK_MARKETS exchange: %s (valid values: coinbase, kraken, gemini, binance)", m.Exchange)
		}
	}

	// Validate alert mode (comma-separated list)
	hasDiscord := false
	hasSMTP := false
	for _, mode := range strings.Split(c.AlertMode, ",") {
		switch strings.TrimSpace(mode) {
		case "log":
		case "discord":
			hasDiscord = true
		case "smtp":
			hasSMTP = true
		default:
			return fmt.Errorf("invalid ALERT_MODE value: %s (valid values: log, discord, smtp)", mode)
		}
	}

	if hasDiscord && len(c.DiscordWebhookURLs) == 0 {
		return fmt.Errorf("DISCORD_WEBHOOK_URLS is required when discord is in ALERT_MODE")
	}

	if hasSMTP && (c.SMTPHost == "" || len(c.SMTPTo) == 0) {
		return fmt.Errorf("SMTP_HOST and SMTP_TO are required when smtp is in ALERT_MODE")
	}

	return nil
}

// PollInterval returns the polling interval as a duration
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

// ParseMarkets parses "exchange:SYMBOL" pairs separated by commas
func ParseMarkets(s string) ([]Market, error) {
	var markets []Market
	for _, item := range parseCSV(s) {
		exchange, symbol, ok := strings.Cut(item, ":")
		exchange = strings.ToLower(strings.TrimSpace(exchange))
		symbol = strings.TrimSpace(symbol)
		if !ok || exchange == "" || symbol == "" {
			return nil, fmt.Errorf("invalid ORDERBOOK_MARKETS entry %q (expected exchange:SYMBOL)", item)
		}
		markets = append(markets, Market{Exchange: exchange, Symbol: symbol})
	}
	return markets, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(strings.ReplaceAll(value, ",", "")); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseCSV(s string) []string {
	var result []string
	for _, item := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
