package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string         `yaml:"env" env:"APP_ENV" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	JWT      JWTConfig      `yaml:"jwt"`
	Provider ProviderConfig `yaml:"provider"`
	Request  RequestConfig  `yaml:"request"`
}

type HTTPConfig struct {
	Address string `yaml:"address" env:"HTTP_ADDR" env-default:":8080"`
}

type MySQLConfig struct {
	DSN string `yaml:"dsn" env:"MYSQL_DSN" env-default:"user:password@tcp(127.0.0.1:3306)/meet?charset=utf8mb4&parseTime=True"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"127.0.0.1:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"127.0.0.1:9092"`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"room-events"`
}

type SMTPConfig struct {
	Host     string `yaml:"host" env:"SMTP_HOST" env-default:""`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USERNAME" env-default:""`
	Password string `yaml:"password" env:"SMTP_PASSWORD" env-default:""`
	From     string `yaml:"from" env:"SMTP_FROM" env-default:"NoReply <no-reply@example.com>"`
}

type JWTConfig struct {
	AccessSecret  string `yaml:"access_secret" env:"JWT_ACCESS_SECRET" env-default:"secret-key"`
	RefreshSecret string `yaml:"refresh_secret" env:"JWT_REFRESH_SECRET" env-default:"refresh-key"`
}

type ProviderConfig struct {
	// BaseURL 为空时走本地静态 joinUrl（开发用）
	BaseURL string        `yaml:"base_url" env:"PROVIDER_BASE_URL" env-default:""`
	Timeout time.Duration `yaml:"timeout" env:"PROVIDER_TIMEOUT" env-default:"5s"`
	// InviteLinkBase 拼邀请链接用的前端地址
	InviteLinkBase string `yaml:"invite_link_base" env:"INVITE_LINK_BASE" env-default:"http://localhost:3000/join"`
}

type RequestConfig struct {
	// ApprovalWindow 申请提交后多久未处理视为过期
	ApprovalWindow time.Duration `yaml:"approval_window" env:"REQUEST_APPROVAL_WINDOW" env-default:"72h"`
	ExpireSweep    time.Duration `yaml:"expire_sweep" env:"REQUEST_EXPIRE_SWEEP" env-default:"1m"`
}

func MustLoad() *Config {
	configPath := fetchConfigPath()

	var cfg Config
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			panic("config file does not exist: " + configPath)
		}
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			panic("cannot read config: " + err.Error())
		}
		return &cfg
	}

	// 没有配置文件就纯环境变量
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		panic("cannot read env config: " + err.Error())
	}
	return &cfg
}

func fetchConfigPath() string {
	var res string
	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()
	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}
	return res
}
