// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// NullAddress адрес получателя по умолчанию; означает, что проверка ETH-платежей отключена.
const NullAddress = "0x0000000000000000000000000000000000000000"

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	HTTPServer              `yaml:"http_server"`
	GRPCServer              `yaml:"grpc_server"`
	RedisConnection         `yaml:"redis_connection"`
	JWTToken                `yaml:"jwttoken"`
	Wallet                  `yaml:"wallet"`
	PriceOracle             `yaml:"price_oracle"`
	Payment                 `yaml:"payment"`
	RabbitMQ                `yaml:"rabbitmq"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// GRPCServer структура для настройки gRPC-сервера проверки состояния
type GRPCServer struct {
	AddressGRPC string `yaml:"addressgrpc" env-default:":9090"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// Wallet структура настроек входа через кошелёк и приёма ETH-платежей
type Wallet struct {
	// ReceivingAddress адрес, на который принимаются платежи в ETH.
	ReceivingAddress string `yaml:"receiving_address" env:"ETH_RECEIVING_ADDRESS" env-default:"0x0000000000000000000000000000000000000000"`
	// NonceBackend хранилище nonce: memory или redis.
	NonceBackend  string        `yaml:"nonce_backend" env-default:"memory"`
	NonceTTL      time.Duration `yaml:"nonce_ttl" env-default:"300s"`
	SweepInterval time.Duration `yaml:"sweep_interval" env-default:"1m"`
	// NonceRateLimit число запросов nonce в секунду и размер всплеска.
	NonceRateLimit float64 `yaml:"nonce_rate_limit" env-default:"5"`
	NonceRateBurst int     `yaml:"nonce_rate_burst" env-default:"10"`
}

// PriceOracle структура настроек внешнего источника курса ETH
type PriceOracle struct {
	URL      string        `yaml:"url" env:"PRICE_ORACLE_URL" env-default:"https://api.coingecko.com/api/v3/simple/price?ids=ethereum&vs_currencies=usd"`
	Timeout  time.Duration `yaml:"timeout" env-default:"5s"`
	CacheTTL time.Duration `yaml:"cache_ttl" env-default:"60s"`
}

// Payment структура настроек агрегатора платёжных сигналов
type Payment struct {
	// EthAmountMode: raw трактует сумму в ETH как доллары, spot пересчитывает по курсу.
	EthAmountMode string `yaml:"eth_amount_mode" env-default:"raw"`
	LookbackDays  int    `yaml:"lookback_days" env-default:"30"`
}

// RabbitMQ структура настроек публикации событий доступа
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// MustLoad функция для загрузки конфига из файла, путь к которому задан в CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// Load читает конфиг по указанному пути.
func Load(configPath string) (*Config, error) {
	const op = "config.Load"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: file: %s - does not exist", op, configPath)
	}
	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: cannot read config: %w", op, err)
	}
	if cfg.ReceivingAddress == "" {
		cfg.ReceivingAddress = NullAddress
	}
	return &cfg, nil
}

// PaymentVerificationEnabled сообщает, задан ли реальный адрес получателя ETH-платежей.
func (c *Config) PaymentVerificationEnabled() bool {
	return c.ReceivingAddress != "" && c.ReceivingAddress != NullAddress
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"GRPCServer:\n"+
			"  Address: %s\n"+
			"Wallet:\n"+
			"  ReceivingAddress: %s\n"+
			"  NonceBackend: %s\n"+
			"  NonceTTL: %s\n"+
			"PriceOracle:\n"+
			"  URL: %s\n"+
			"  Timeout: %s\n"+
			"Payment:\n"+
			"  EthAmountMode: %s\n",
		c.Env,
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.AddressGRPC,
		c.ReceivingAddress,
		c.NonceBackend,
		c.NonceTTL,
		c.URL,
		c.Timeout,
		c.EthAmountMode,
	)
}
