package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every environment-sourced setting. AMQPURL empty means no
// broker: events are dropped and the service runs standalone.
type Config struct {
	HTTPAddr          string        `envconfig:"HTTP_ADDR" default:":8080"`
	MySQLDSN          string        `envconfig:"MYSQL_DSN" default:"root:root@tcp(localhost:3306)/stockroom?parseTime=true"`
	MySQLMaxOpenConns int           `envconfig:"MYSQL_MAX_OPEN_CONNS" default:"50"`
	MySQLMaxIdleConns int           `envconfig:"MYSQL_MAX_IDLE_CONNS" default:"25"`
	MySQLConnLifetime time.Duration `envconfig:"MYSQL_CONN_LIFETIME" default:"5m"`
	RedisAddr         string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"100"`
	CacheTTL          time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	AMQPURL           string        `envconfig:"AMQP_URL" default:""`
	AMQPExchange      string        `envconfig:"AMQP_EXCHANGE" default:"stockroom.events"`
	ShutdownTimeout   time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("stockroom", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
