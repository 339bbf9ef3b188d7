package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/liamashdown/whalewatch/internal/config"
	"github.com/liamashdown/whalewatch/internal/whale"
)

const thresholdKeyPrefix = "threshold."

// DB wraps the GORM database connection
type DB struct {
	conn *gorm.DB
	log  *logrus.Logger
}

// New creates a new database connection with GORM
func New(cfg *config.Config, log *logrus.Logger) (*DB, error) {
	gormLogger := logger.New(
		&gormLogAdapter{log: log},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	conn, err := gorm.Open(mysql.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.DatabaseMaxConns)
	sqlDB.SetMaxIdleConns(max(cfg.DatabaseMaxConns/2, 1))
	sqlDB.SetConnMaxIdleTime(cfg.DatabaseMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("Database connection established")

	return &DB{conn: conn, log: log}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the connection is alive
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// AutoMigrate creates the app_state table when missing
func (db *DB) AutoMigrate() error {
	return db.conn.AutoMigrate(&AppState{})
}

// SetState upserts a state value
func (db *DB) SetState(ctx context.Context, key, value string) error {
	state := AppState{
		StateKey:   key,
		StateValue: value,
		UpdatedTS:  time.Now().Unix(),
	}
	return db.conn.WithContext(ctx).Save(&state).Error
}

// LoadThresholds returns every persisted threshold override
func (db *DB) LoadThresholds(ctx context.Context) (map[whale.Asset]decimal.Decimal, error) {
	var states []AppState
	result := db.conn.WithContext(ctx).
		Where("state_key LIKE ?", thresholdKeyPrefix+"%").
		Find(&states)
	if result.Error != nil {
		return nil, fmt.Errorf("load thresholds: %w", result.Error)
	}

	out := make(map[whale.Asset]decimal.Decimal, len(states))
	for _, s := range states {
		asset, usd, err := parseThresholdState(s)
		if err != nil {
			db.log.WithError(err).WithField("key", s.StateKey).Warn("Ignoring invalid persisted threshold")
			continue
		}
		out[asset] = usd
	}
	return out, nil
}

// SaveThreshold persists a threshold override
func (db *DB) SaveThreshold(ctx context.Context, asset whale.Asset, usd decimal.Decimal) error {
	if err := db.SetState(ctx, thresholdKey(asset), usd.String()); err != nil {
		return fmt.Errorf("save %s threshold: %w", asset, err)
	}
	return nil
}

func thresholdKey(asset whale.Asset) string {
	return thresholdKeyPrefix + strings.ToLower(string(asset))
}

func parseThresholdState(s AppState) (whale.Asset, decimal.Decimal, error) {
	asset, ok := whale.ParseAsset(strings.TrimPrefix(s.StateKey, thresholdKeyPrefix))
	if !ok {
		return "", decimal.Zero, fmt.Errorf("unknown asset in key %q", s.StateKey)
	}
	usd, err := decimal.NewFromString(s.StateValue)
	if err != nil {
		return "", decimal.Zero, fmt.Errorf("parse threshold %q: %w", s.StateValue, err)
	}
	if usd.IsNegative() {
		return "", decimal.Zero, fmt.Errorf("%s: %w", asset, whale.ErrNegativeThreshold)
	}
	return asset, usd, nil
}

// gormLogAdapter adapts logrus to GORM's logger interface
type gormLogAdapter struct {
	log *logrus.Logger
}

func (l *gormLogAdapter) Printf(format string, args ...interface{}) {
	l.log.Debugf(format, args...)
}
