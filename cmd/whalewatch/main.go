package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/liamashdown/whalewatch/internal/alerts"
	"github.com/liamashdown/whalewatch/internal/blockchain"
	"github.com/liamashdown/whalewatch/internal/coingecko"
	"github.com/liamashdown/whalewatch/internal/config"
	"github.com/liamashdown/whalewatch/internal/etherscan"
	"github.com/liamashdown/whalewatch/internal/monitor"
	"github.com/liamashdown/whalewatch/internal/orderbook"
	"github.com/liamashdown/whalewatch/internal/ratelimit"
	"github.com/liamashdown/whalewatch/internal/server"
	"github.com/liamashdown/whalewatch/internal/storage"
	"github.com/liamashdown/whalewatch/internal/whale"
)

func main() {
	// Initialize logger
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)

	log.Info("Starting whalewatch service...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.WithField("log_level", cfg.LogLevel).Warn("Unknown log level, using info")
	}

	log.WithFields(logrus.Fields{
		"environment":       cfg.Environment,
		"btc_threshold_usd": cfg.BTCThresholdUSD.String(),
		"eth_threshold_usd": cfg.ETHThresholdUSD.String(),
		"markets":           len(cfg.OrderBookMarkets),
		"poll_interval_sec": cfg.PollIntervalSec,
		"alert_mode":        cfg.AlertMode,
	}).Info("Configuration loaded")

	// Entity directory
	directory := whale.DefaultDirectory()
	if cfg.EntityDirectoryFile != "" {
		directory, err = whale.LoadDirectoryFile(cfg.EntityDirectoryFile)
		if err != nil {
			log.WithError(err).Fatal("Failed to load entity directory")
		}
	}
	exchanges, mixers := directory.Size()
	log.WithFields(logrus.Fields{
		"exchanges": exchanges,
		"mixers":    mixers,
	}).Info("Entity directory loaded")

	thresholds, err := whale.NewThresholds(map[whale.Asset]decimal.Decimal{
		whale.AssetBTC: cfg.BTCThresholdUSD,
		whale.AssetETH: cfg.ETHThresholdUSD,
	})
	if err != nil {
		log.WithError(err).Fatal("Invalid thresholds")
	}

	// Initialize database (optional)
	var db *storage.DB
	if cfg.DatabaseDSN != "" {
		db, err = storage.New(cfg, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to database")
		}
		defer db.Close()

		if err := db.AutoMigrate(); err != nil {
			log.WithError(err).Fatal("Failed to run database migrations")
		}
		log.Info("Database connected, threshold overrides will be persisted")
	} else {
		log.Info("No DATABASE_DSN set, threshold overrides are kept in memory only")
	}

	// Initialize API clients and sources
	sources := createSources(cfg, log)

	log.WithFields(logrus.Fields{
		"transaction_sources": len(sources.Transactions),
		"orderbook_sources":   len(sources.OrderBooks),
	}).Info("Sources initialized")

	// Initialize alert sender
	alertSender := createAlertSender(cfg, log)

	log.WithField("alert_mode", cfg.AlertMode).Info("Alert sender initialized")

	var store monitor.ThresholdStore
	var pinger server.Pinger
	if db != nil {
		store = db
		pinger = db
	}

	mon := monitor.New(monitor.Options{
		Environment:       cfg.Environment,
		MaxAlertsPerCycle: cfg.MaxAlertsPerCycle,
		FetchTimeout:      cfg.PollInterval(),
		FallbackPrices: map[whale.Asset]decimal.Decimal{
			whale.AssetBTC: cfg.FallbackBTCPrice,
			whale.AssetETH: cfg.FallbackETHPrice,
		},
	}, sources, thresholds, whale.NewClassifier(directory), alertSender, store, log)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := mon.RestoreThresholds(ctx); err != nil {
		log.WithError(err).Error("Failed to restore persisted thresholds, using configured values")
	}

	// Start HTTP server (health + metrics + whale endpoints)
	srv := server.New(mon, pinger, cfg.AdminToken, log)
	go func() {
		if err := srv.ListenAndServe(ctx, cfg.HealthPort); err != nil {
			log.WithError(err).Error("HTTP server failed")
		}
	}()

	log.WithField("interval", cfg.PollInterval()).Info("Starting whale monitoring loop")
	mon.Run(ctx, cfg.PollInterval())

	log.Info("Graceful shutdown complete")
}

func createSources(cfg *config.Config, log *logrus.Logger) monitor.Sources {
	limits := ratelimit.NewRegistry(map[string]float64{
		"blockchain": cfg.BlockchainRPS,
		"etherscan":  cfg.EtherscanRPS,
		"coinbase":   cfg.CoinbaseRPS,
		"kraken":     cfg.KrakenRPS,
		"gemini":     cfg.GeminiRPS,
		"binance":    cfg.BinanceRPS,
		"coingecko":  cfg.CoinGeckoRPS,
	}, 1)

	btc := blockchain.NewClient(cfg.BlockchainBaseURL, cfg.HTTPTimeout, limits.Get("blockchain"))
	sources := monitor.Sources{
		Transactions: []monitor.TransactionSource{
			blockchain.NewBlockSource(btc),
			blockchain.NewMempoolSource(btc, cfg.MempoolScanLimit),
		},
		Prices: coingecko.NewClient(cfg.CoinGeckoBaseURL, cfg.HTTPTimeout, limits.Get("coingecko")),
	}

	if cfg.EtherscanAPIKey != "" {
		eth := etherscan.NewClient(cfg.EtherscanBaseURL, cfg.EtherscanAPIKey, cfg.HTTPTimeout, limits.Get("etherscan"))
		sources.Transactions = append(sources.Transactions, etherscan.NewBlockScanSource(eth, cfg.ETHBlockLookback))
	} else {
		log.Warn("ETHERSCAN_API_KEY not set, Ethereum block scanning disabled")
	}

	baseURLs := map[string]string{
		orderbook.Coinbase: cfg.CoinbaseBaseURL,
		orderbook.Kraken:   cfg.KrakenBaseURL,
		orderbook.Gemini:   cfg.GeminiBaseURL,
		orderbook.Binance:  cfg.BinanceBaseURL,
	}
	clients := make(map[string]*orderbook.Client)
	for _, m := range cfg.OrderBookMarkets {
		client, ok := clients[m.Exchange]
		if !ok {
			var err error
			client, err = orderbook.NewClient(m.Exchange, baseURLs[m.Exchange], cfg.HTTPTimeout, limits.Get(m.Exchange))
			if err != nil {
				log.WithError(err).WithField("exchange", m.Exchange).Warn("Skipping market")
				continue
			}
			clients[m.Exchange] = client
		}
		sources.OrderBooks = append(sources.OrderBooks, orderbook.NewSource(client, m.Symbol))
	}

	return sources
}

func createAlertSender(cfg *config.Config, log *logrus.Logger) alerts.Sender {
	senders := []alerts.Sender{}

	for _, mode := range strings.Split(cfg.AlertMode, ",") {
		switch strings.TrimSpace(mode) {
		case "log":
			senders = append(senders, alerts.NewLogSender(log))
		case "discord":
			if len(cfg.DiscordWebhookURLs) == 0 {
				log.Warn("Discord mode specified but DISCORD_WEBHOOK_URLS not set")
				continue
			}
			for _, url := range cfg.DiscordWebhookURLs {
				senders = append(senders, alerts.NewDiscordSender(url))
			}
		case "smtp":
			if cfg.SMTPHost == "" {
				log.Warn("SMTP mode specified but SMTP_HOST not set")
				continue
			}
			senders = append(senders, alerts.NewSMTPSender(
				cfg.SMTPHost,
				cfg.SMTPPort,
				cfg.SMTPUser,
				cfg.SMTPPassword,
				cfg.SMTPFrom,
				cfg.SMTPTo,
			))
		default:
			log.WithField("mode", mode).Warn("Unknown alert mode, skipping")
		}
	}

	switch len(senders) {
	case 0:
		log.Warn("No valid alert senders configured, using log")
		return alerts.NewLogSender(log)
	case 1:
		return senders[0]
	default:
		return alerts.NewMultiSender(senders...)
	}
}
