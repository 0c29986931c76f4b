// Package config загружает конфигурацию сервиса из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- HTTP ---
	HTTPAddr            string        `envconfig:"HTTP_ADDR" default:":8080"`
	HTTPReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	HTTPWriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"30s"`
	HTTPShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	CORSAllowedOrigins  []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"https://likenovel.app"`

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"likenovel"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"likenovel"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	// Часовой пояс сервера. От него считаются недельные квоты акций
	// и 7-дневный срок получения подарков. Хранение — всегда UTC.
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Asia/Seoul"`

	// --- Платёжный шлюз ---
	PayguardBaseURL string        `envconfig:"PAYGUARD_BASE_URL" required:"true"`
	PayguardAPIKey  string        `envconfig:"PAYGUARD_API_KEY" required:"true"`
	PayguardTimeout time.Duration `envconfig:"PAYGUARD_TIMEOUT" default:"10s"`

	// --- Identity provider ---
	IdentityBaseURL string        `envconfig:"IDENTITY_BASE_URL" required:"true"`
	IdentityTimeout time.Duration `envconfig:"IDENTITY_TIMEOUT" default:"5s"`

	// --- Push ---
	PushBaseURL   string        `envconfig:"PUSH_BASE_URL" default:""`
	PushServerKey string        `envconfig:"PUSH_SERVER_KEY" default:""`
	PushTimeout   time.Duration `envconfig:"PUSH_TIMEOUT" default:"5s"`

	// --- Object storage ---
	StorageBaseURL       string        `envconfig:"STORAGE_BASE_URL" default:""`
	StorageBucket        string        `envconfig:"STORAGE_BUCKET" default:"likenovel-assets"`
	StoragePresignSecret string        `envconfig:"STORAGE_PRESIGN_SECRET" default:""`
	StoragePresignTTL    time.Duration `envconfig:"STORAGE_PRESIGN_TTL" default:"15m"`

	// --- Admin ---
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH" required:"true"`

	// --- Монетизация ---
	// Цена одного эпизода в минимальных денежных единицах.
	EpisodePurchasePrice int64 `envconfig:"EPISODE_PURCHASE_PRICE" default:"100"`
	// Бонус при пополнении: зачисляется total * (100 + бонус%) / 100.
	TopUpBonusPercent int64 `envconfig:"TOPUP_BONUS_PERCENT" default:"10"`
	// Срок аренды после потребления (часы).
	RentalHours int `envconfig:"RENTAL_HOURS" default:"72"`
	// Срок получения подарка (дни).
	GiftValidityDays int `envconfig:"GIFT_VALIDITY_DAYS" default:"7"`

	// --- Расчёты ---
	// Налог по умолчанию (проценты, допускаются доли). Оператор может переопределить.
	SettlementTaxPercent float64 `envconfig:"SETTLEMENT_TAX_PERCENT" default:"3.3"`
	// Комиссия платформы со спонсорства (проценты).
	SponsorshipFeePercent float64 `envconfig:"SPONSORSHIP_FEE_PERCENT" default:"10"`
	// Доля автора по платным каналам (проценты).
	SettlementDefaultRate int64 `envconfig:"SETTLEMENT_DEFAULT_RATE" default:"70"`
	// Доля автора по comped-полосе (проценты).
	SettlementCompedRate int64 `envconfig:"SETTLEMENT_COMPED_RATE" default:"70"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"30"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// Location возвращает серверный часовой пояс. При ошибке — UTC:
// лучше считать квоты в UTC, чем не стартовать вовсе.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) Validate() error {
	if c.EpisodePurchasePrice <= 0 {
		return fmt.Errorf("EPISODE_PURCHASE_PRICE должен быть > 0")
	}
	if c.TopUpBonusPercent < 0 {
		return fmt.Errorf("TOPUP_BONUS_PERCENT не может быть отрицательным")
	}
	if c.RentalHours <= 0 || c.GiftValidityDays <= 0 {
		return fmt.Errorf("некорректные RENTAL_HOURS/GIFT_VALIDITY_DAYS")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if _, err := time.LoadLocation(c.AppTimezone); err != nil {
		return fmt.Errorf("некорректный APP_TIMEZONE %q: %w", c.AppTimezone, err)
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
