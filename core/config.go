package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppName string
	Env     string // DEV (local; default), TEST, QA, PROD
	Debug   bool
	Build   string

	// answer validation: trim leading/trailing whitespace on both sides
	// before string comparison
	TrimAnswerWhitespace bool

	// per-test resit bound fallback; -1 = unlimited
	DefaultMaxAttempts int

	// schedule presentation
	DateFormat string
	TimeFormat string

	RollbarToken string

	Server struct {
		Host string
	}

	Database struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		DisableTLS    bool
	}
}

func (conf *Config) TestMode() bool { return conf.Env == "TEST" }

// NewConfig loads the app configuration from the environment with sane
// defaults. A config/.env.<env> file is loaded first if it exists.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("appName", "Mafunzo")
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("trimAnswerWhitespace", true)
	v.SetDefault("defaultMaxAttempts", -1)
	v.SetDefault("dateFormat", "Jan 2, 2006")
	v.SetDefault("timeFormat", "15:04")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.name", "mafunzo")
	v.SetDefault("database.user", "mafunzo")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.disableTLS", true)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	v.SetDefault("env", env)
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		log.Fatalf("config.Unmarshal: %v", err)
	}
	return conf
}
