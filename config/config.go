package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rishabhdev/roomio/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string
}

func LoadConfig() (*Config, error) {
	return &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
	}, nil
}

type GatewayConfig struct {
	BaseURL         string
	ClientID        string
	SecretKey       string
	Currency        string
	OrderTTL        time.Duration
	SignatureSecret string
}

func LoadGatewayConfig() (*GatewayConfig, error) {
	return &GatewayConfig{
		BaseURL:         os.Getenv("GATEWAY_BASE_URL"),
		ClientID:        os.Getenv("GATEWAY_CLIENT_ID"),
		SecretKey:       os.Getenv("GATEWAY_SECRET_KEY"),
		Currency:        envString("GATEWAY_CURRENCY", "INR"),
		OrderTTL:        envDuration("GATEWAY_ORDER_TTL", 15*time.Minute),
		SignatureSecret: os.Getenv("GATEWAY_WEBHOOK_SECRET"),
	}, nil
}

// Settings holds the platform's static fee/tax numbers, sourced from
// the environment (the configuration service fronting them is outside
// this service).
type Settings struct {
	TaxPercent             float64
	PlatformFee            float64
	CancellationFeePercent float64
	NoShowFeePercent       float64
	NoShowBuffer           time.Duration
	SweepInterval          time.Duration
}

func LoadSettings() (*Settings, error) {
	return &Settings{
		TaxPercent:             envFloat("TAX_PERCENT", 10),
		PlatformFee:            envFloat("PLATFORM_FEE", 50),
		CancellationFeePercent: envFloat("CANCELLATION_FEE_PERCENT", 10),
		NoShowFeePercent:       envFloat("NO_SHOW_FEE_PERCENT", 50),
		NoShowBuffer:           envDuration("NO_SHOW_BUFFER", 6*time.Hour),
		SweepInterval:          envDuration("NO_SHOW_SWEEP_INTERVAL", 30*time.Minute),
	}, nil
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func LoadKafkaConfig() (*KafkaConfig, error) {
	brokers := envString("KAFKA_BROKERS", "localhost:9092")
	return &KafkaConfig{
		Brokers: strings.Split(brokers, ","),
		Topic:   envString("KAFKA_NOTIFICATIONS_TOPIC", "notifications.events"),
	}, nil
}

func enableUUIDExtension(db *gorm.DB) error {
	return db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error
}

func InitDatabase(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := enableUUIDExtension(db); err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Hotel{},
		&models.Room{},
		&models.HourlyStay{},
		&models.Addon{},
		&models.Booking{},
		&models.BookingAddon{},
		&models.Payment{},
		&models.PaymentOrder{},
		&models.Coupon{},
		&models.CouponUsage{},
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.Refund{},
		&models.Notification{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
