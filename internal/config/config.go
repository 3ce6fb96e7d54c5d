// Package config предоставялет структуры и функции для парсинга и загрузки конфига шлюза.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Возможные значения Config.UsageBackend.
const (
	UsageBackendPostgres = "postgres"
	UsageBackendRedis    = "redis"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string        `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string        `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string        `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	UsageBackend            string        `yaml:"usage_backend" env:"USAGE_BACKEND" env-default:"postgres"`
	UsageTimeout            time.Duration `yaml:"usage_timeout" env:"USAGE_TIMEOUT" env-default:"5s"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	HTTPServer              `yaml:"http_server"`
	Identity                `yaml:"identity"`
	Stripe                  `yaml:"stripe"`
	Providers               `yaml:"providers"`
	RateLimit               `yaml:"rate_limit"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env:"HTTP_TIMEOUT" env-default:"30s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS" env-default:"localhost:6379"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user" env:"REDIS_USER"`
	DB           int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	MaxRetries   int           `yaml:"max_retries" env:"REDIS_MAX_RETRIES" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env:"REDIS_TIMEOUT" env-default:"3s"`
}

// RabbitMQ структура для настройки публикации доменных событий.
// Пустой URL отключает публикацию.
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	Exchange   string        `yaml:"exchange" env:"RABBITMQ_EXCHANGE" env-default:"aihub.events"`
	Retries    int           `yaml:"retries" env:"RABBITMQ_RETRIES" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env:"RABBITMQ_RETRY_DELAY" env-default:"2s"`
}

// Identity структура с настройками провайдера идентификации:
// секрет сессионных JWT и секрет подписи вебхуков.
type Identity struct {
	JWTSecretKey  string        `yaml:"jwt_secret_key" env:"IDENTITY_JWT_SECRET"`
	Issuer        string        `yaml:"issuer" env:"IDENTITY_ISSUER"`
	TokenTTL      time.Duration `yaml:"token_ttl" env:"IDENTITY_TOKEN_TTL" env-default:"24h"`
	WebhookSecret string        `yaml:"webhook_secret" env:"IDENTITY_WEBHOOK_SECRET"`
}

// Stripe структура с настройками биллинга.
type Stripe struct {
	SecretKey     string        `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
	WebhookSecret string        `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
	AppURL        string        `yaml:"app_url" env:"APP_URL" env-default:"http://localhost:3000"`
	Currency      string        `yaml:"currency" env:"STRIPE_CURRENCY" env-default:"jpy"`
	UnitAmount    int64         `yaml:"unit_amount" env:"STRIPE_UNIT_AMOUNT" env-default:"2000"`
	ProductName   string        `yaml:"product_name" env:"STRIPE_PRODUCT_NAME" env-default:"AI Hub Pro"`
	EventTTL      time.Duration `yaml:"event_ttl" env:"STRIPE_EVENT_TTL" env-default:"72h"`
}

// Providers структура с ключами и моделями внешних генеративных сервисов.
type Providers struct {
	OpenAIAPIKey       string        `yaml:"openai_api_key" env:"OPENAI_API_KEY"`
	OpenAIBaseURL      string        `yaml:"openai_base_url" env:"OPENAI_BASE_URL"`
	ChatModel          string        `yaml:"chat_model" env:"OPENAI_CHAT_MODEL" env-default:"gpt-3.5-turbo"`
	ReplicateAPIToken  string        `yaml:"replicate_api_token" env:"REPLICATE_API_TOKEN"`
	MusicModel         string        `yaml:"music_model" env:"REPLICATE_MUSIC_MODEL" env-default:"riffusion/riffusion:8cf61ea6c56afd61d8f5b9ffd14d7c216c0a93844ce2d82ac1c9ecc9c7f24e05"`
	VideoModel         string        `yaml:"video_model" env:"REPLICATE_VIDEO_MODEL" env-default:"lucataco/animate-diff:beecf59c4aee8d81bf04f0381033dfa10dc16e845b4ae00d281e2fa377e48a9f"`
	RequestTimeout     time.Duration `yaml:"request_timeout" env:"PROVIDER_REQUEST_TIMEOUT" env-default:"60s"`
	LongRequestTimeout time.Duration `yaml:"long_request_timeout" env:"PROVIDER_LONG_REQUEST_TIMEOUT" env-default:"5m"`
	BreakerFailures    uint32        `yaml:"breaker_failures" env:"PROVIDER_BREAKER_FAILURES" env-default:"5"`
	BreakerOpenTimeout time.Duration `yaml:"breaker_open_timeout" env:"PROVIDER_BREAKER_OPEN_TIMEOUT" env-default:"30s"`
}

// RateLimit структура для настройки ограничителя запросов к инструментам.
// Лимит действует на каждого пользователя (для анонимных запросов на адрес клиента).
type RateLimit struct {
	RPS     float64       `yaml:"rps" env:"RATE_LIMIT_RPS" env-default:"10"`
	Burst   int           `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"20"`
	IdleTTL time.Duration `yaml:"idle_ttl" env:"RATE_LIMIT_IDLE_TTL" env-default:"10m"`
}

// Load читает конфиг из файла path (с переопределением через окружение),
// либо только из окружения, если path пустой.
func Load(path string) (*Config, error) {
	const op = "config.Load"
	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: file %s does not exist", op, path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad функция для загрузки конфига по пути из CONFIG_PATH, завершает процесс при ошибке.
func MustLoad() *Config {
	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Validate проверяет согласованность настроек, которые нельзя выразить через теги.
func (c *Config) Validate() error {
	switch c.UsageBackend {
	case UsageBackendPostgres, UsageBackendRedis:
	default:
		return fmt.Errorf("unknown usage_backend %q", c.UsageBackend)
	}
	if c.Identity.JWTSecretKey == "" {
		return errors.New("identity.jwt_secret_key is required")
	}
	if c.LongRequestTimeout < c.RequestTimeout {
		return errors.New("providers.long_request_timeout must not be shorter than providers.request_timeout")
	}
	return nil
}

// WriteTimeout возвращает таймаут записи HTTP-сервера: он должен покрывать
// самые долгие генерации (музыка, видео), иначе ответ оборвётся раньше провайдера.
func (c *Config) WriteTimeout() time.Duration {
	return c.LongRequestTimeout + c.TimeoutHTTP
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"UsageBackend: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Providers:\n"+
			"  OpenAI configured: %t\n"+
			"  Replicate configured: %t\n"+
			"  RequestTimeout: %s\n"+
			"  LongRequestTimeout: %s\n",
		c.Env,
		c.UsageBackend,
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.OpenAIAPIKey != "",
		c.ReplicateAPIToken != "",
		c.RequestTimeout,
		c.LongRequestTimeout,
	)
}
