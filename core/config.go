package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Database engines
const (
	EngineMongo    = "mongo"
	EnginePostgres = "postgres"
	EngineMemory   = "memory"
)

type (
	ServerConfig struct {
		Host               string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		URI           string // mongo only
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	EmailConfig struct {
		SendgridAPIKey   string
		DefaultFromEmail mail.Address
	}

	WhapiConfig struct {
		Token          string
		APIURL         string
		DefaultNumber  string
		GroupRecipient string // management group receiving staff reminders
	}

	SchedulerConfig struct {
		Enabled bool
	}

	Config struct {
		Debug        bool
		TestMode     bool
		Env          string
		Build        string
		AppName      string
		SecretKey    string
		RollbarToken string

		Server    ServerConfig
		Database  DatabaseConfig
		Email     EmailConfig
		Whapi     WhapiConfig
		Scheduler SchedulerConfig
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// NewConfig loads the configuration from `config/.env.<env>` (if present) and the environment.
// Environment variables are prefixed with the upper-cased env name, e.g. PROD_DATABASE_ENGINE.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "MentorBro")
	v.SetDefault("secretKey", "x9#k2-mb!r0)q7w$z3@l5+v8(e1&n4^t6*y0j")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)

	v.SetDefault("database.engine", EngineMongo)
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "mentorbro")
	v.SetDefault("database.user", "mentorbro")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("email.sendgridApiKey", "")
	v.SetDefault("email.defaultFromEmail", "MentorBro <noreply@yourmentorbro.com>")

	v.SetDefault("whapi.token", "")
	v.SetDefault("whapi.apiUrl", "https://gate.whapi.cloud")
	v.SetDefault("whapi.defaultNumber", "")
	v.SetDefault("whapi.groupRecipient", "120363417698652224@g.us")

	v.SetDefault("scheduler.enabled", true)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	confDir := os.Getenv("CONFIG_DIR")
	if confDir == "" {
		confDir = "config"
	}
	dotEnvPath := filepath.Join(confDir, ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	fromEmail, err := mail.ParseAddress(v.GetString("email.defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.ParseAddress(email.defaultFromEmail): %v", err)
	}

	return &Config{
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		Env:          env,
		Build:        v.GetString("build"),
		AppName:      v.GetString("appName"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:               v.GetString("server.host"),
			DebugHost:          v.GetString("server.debugHost"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        strings.ToLower(v.GetString("database.engine")),
			URI:           v.GetString("database.uri"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Email: EmailConfig{
			SendgridAPIKey:   v.GetString("email.sendgridApiKey"),
			DefaultFromEmail: *fromEmail,
		},
		Whapi: WhapiConfig{
			Token:          v.GetString("whapi.token"),
			APIURL:         strings.TrimRight(v.GetString("whapi.apiUrl"), "/"),
			DefaultNumber:  v.GetString("whapi.defaultNumber"),
			GroupRecipient: v.GetString("whapi.groupRecipient"),
		},
		Scheduler: SchedulerConfig{
			Enabled: v.GetBool("scheduler.enabled"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests: no dotenv, no network credentials, in-memory storage.
func NewTestConfig() *Config {
	return &Config{
		Debug:     true,
		TestMode:  true,
		Env:       "TEST",
		Build:     "test",
		AppName:   "MentorBro",
		SecretKey: "secret",
		Server: ServerConfig{
			Host:               ":0",
			ShutdownTimeout:    time.Second,
			JWTExpirationDelta: 10 * time.Minute,
		},
		Database: DatabaseConfig{Engine: EngineMemory},
		Email: EmailConfig{
			DefaultFromEmail: mail.Address{Name: "MentorBro", Address: "noreply@yourmentorbro.com"},
		},
		Whapi: WhapiConfig{
			APIURL:         "https://gate.whapi.cloud",
			GroupRecipient: "120363417698652224@g.us",
		},
		Scheduler: SchedulerConfig{Enabled: false},
	}
}
