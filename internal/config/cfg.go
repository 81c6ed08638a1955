package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Server struct {
	Host        string `envconfig:"SERVER_HOST" default:"localhost"`
	Port        string `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout int    `envconfig:"SERVER_TIMEOUT" default:"10"`
}

type Db struct {
	Dialect        string `envconfig:"DB_DIALECT" default:"sqlite"`
	Source         string `envconfig:"DB_NAME" default:"newsletter.db"`
	MigrationsPath string `envconfig:"DB_MIGRATIONS_DIR" default:"./migrations"`
}

type Email struct {
	Host        string `envconfig:"EMAIL_HOST" default:"localhost"`
	Port        string `envconfig:"EMAIL_PORT" default:"1025"`
	User        string `envconfig:"EMAIL_USER"`
	Password    string `envconfig:"EMAIL_PASSWORD"`
	From        string `envconfig:"EMAIL_FROM" default:"noreply@newsletter.com"`
	SendTimeout int    `envconfig:"EMAIL_SEND_TIMEOUT" default:"30"`
}

type Admin struct {
	Email    string `envconfig:"ADMIN_EMAIL"`
	Password string `envconfig:"ADMIN_PASSWORD"`
}

type Auth struct {
	JWTSecret  string `envconfig:"JWT_SECRET" required:"true"`
	SessionTTL int    `envconfig:"SESSION_TTL_MINUTES" default:"60"`
}

type Broadcast struct {
	BatchSize int `envconfig:"BROADCAST_BATCH_SIZE" default:"10"`
}

type Scheduler struct {
	DispatchSpec string `envconfig:"SCHEDULER_DISPATCH_SPEC" default:"0 * * * * *"`
	CleanupSpec  string `envconfig:"SCHEDULER_CLEANUP_SPEC" default:"0 0 3 * * *"`
}

type Redis struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	CacheTTL int    `envconfig:"REDIS_CACHE_TTL" default:"60"`
}

type Config struct {
	AppBaseURL   string `envconfig:"APP_BASE_URL" default:"http://localhost:8080"`
	TemplatesDir string `envconfig:"TEMPLATES_DIR" default:"./templates"`
	LogsPath     string `envconfig:"LOGS_PATH" default:"./logs/newsletter.log"`
	MailLogPath  string `envconfig:"MAIL_LOG_PATH" default:"./logs/outbound_mail.log"`

	Server    Server
	DB        Db
	Email     Email
	Admin     Admin
	Auth      Auth
	Broadcast Broadcast
	Scheduler Scheduler
	Redis     Redis
}

func NewConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) ServerAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

func (e Email) Address() string {
	return e.Host + ":" + e.Port
}
