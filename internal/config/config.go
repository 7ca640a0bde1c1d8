package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env    string `yaml:"env" env:"ENV" env-default:"local"`
	HTTP   HTTP   `yaml:"http"`
	Pg     PG     `yaml:"postgres"`
	Redis  Redis  `yaml:"redis"`
	Kafka  Kafka  `yaml:"kafka"`
	Bus    Bus    `yaml:"bus"`
	Orders Orders `yaml:"orders"`
	Queues Queues `yaml:"queues"`
	SMTP   SMTP   `yaml:"smtp"`
}

type HTTP struct {
	Port        string        `yaml:"port" env:"HTTP_PORT" env-default:":3000"`
	MetricsPort string        `yaml:"metrics_port" env:"METRICS_PORT" env-default:":9091"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
}

type PG struct {
	// SecretPath points at a JSON secret {username,password,host?,port?}
	// materialized by the platform. Database credentials never live in
	// this config directly.
	SecretPath string        `yaml:"secret_path" env:"DB_SECRET_PATH"`
	Host       string        `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port       int           `yaml:"port" env:"DB_PORT" env-default:"5432"`
	Database   string        `yaml:"database" env:"DB_NAME" env-default:"nexus_orders"`
	TxTimeout  time.Duration `yaml:"tx_timeout" env:"DB_TX_TIMEOUT" env-default:"5s"`
}

type Redis struct {
	Addr string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
}

type Kafka struct {
	Brokers      []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	IngressTopic string   `yaml:"ingress_topic" env:"KAFKA_INGRESS_TOPIC" env-default:"nexus_events"`
}

type Bus struct {
	Name string `yaml:"name" env:"EVENT_BUS_NAME" env-default:"NexusMarineBus"`
}

type Orders struct {
	// Outbox switches the Order.Created publish from post-commit
	// best-effort to a transactional outbox with a relay worker.
	Outbox bool `yaml:"outbox" env:"ORDERS_OUTBOX" env-default:"false"`
}

type Queues struct {
	Alerts        string        `yaml:"alerts" env:"ALERTS_QUEUE" env-default:"queue:critical-alerts"`
	CRMSync       string        `yaml:"crm_sync" env:"CRM_SYNC_QUEUE" env-default:"queue:crm-sync"`
	Group         string        `yaml:"group" env:"QUEUE_GROUP" env-default:"nexus-consumers"`
	Visibility    time.Duration `yaml:"visibility" env:"QUEUE_VISIBILITY" env-default:"30s"`
	MaxDeliveries int64         `yaml:"max_deliveries" env:"QUEUE_MAX_DELIVERIES" env-default:"5"`
	BatchSize     int64         `yaml:"batch_size" env:"QUEUE_BATCH_SIZE" env-default:"10"`
}

type SMTP struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	User     string `yaml:"user" env:"SMTP_USER"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	AlertsTo string `yaml:"alerts_to" env:"ALERTS_EMAIL"`
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/local.yaml"
	}

	var cfg Config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// No file is fine in containerized deployments, env vars carry
		// the whole config there.
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			log.Fatalf("error reading config from env: %v", err)
		}
		return &cfg
	}

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("error reading config: %v", err)
	}

	return &cfg
}
