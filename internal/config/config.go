package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"spotbooker/internal/lib/retry"
)

type Config struct {
	Env        string         `yaml:"env" env:"ENV" env-default:"local"`
	Database   Database       `yaml:"database"`
	HTTPServer HTTPServer     `yaml:"http_server"`
	Broker     Broker         `yaml:"broker"`
	Retry      retry.Strategy `yaml:"retry"`
	Sweeper    Sweeper        `yaml:"sweeper"`
}

type Database struct {
	Host        string        `yaml:"host" env-default:"localhost"`
	Port        int           `yaml:"port" env-default:"5432"`
	User        string        `yaml:"user" env-default:"postgres"`
	Password    string        `yaml:"password" env:"DB_PASSWORD"`
	DBName      string        `yaml:"dbname" env-default:"spotbooker"`
	SSLMode     string        `yaml:"sslmode" env-default:"disable"`
	LockTimeout time.Duration `yaml:"lock_timeout" env-default:"3s"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env-default:"localhost:8082"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// Broker configures the outgoing notification queue. An empty URL
// disables publishing entirely.
type Broker struct {
	URL string `yaml:"url" env:"BROKER_URL"`
}

type Sweeper struct {
	Interval time.Duration `yaml:"interval" env-default:"1m"`
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}

	return &cfg
}
