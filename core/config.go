package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName  string
		Env      string // DEV (default) | TEST | QA | PROD
		Debug    bool
		TestMode bool
		Build    string

		SecretKey        string
		DefaultFromEmail mail.Address
		FrontendBaseURL  string
		WorkDir          string

		SendgridApiKey string
		RollbarToken   string

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Campus   CampusConfig
		Virtual  VirtualConfig
	}

	ServerConfig struct {
		Host                      string
		APIAddr                   string
		DebugAddr                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
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

	RedisConfig struct {
		Addr            string // empty disables rate limiting
		RateLimit       int
		RateLimitWindow time.Duration
	}

	// CampusConfig is the geofence anchor and radius.
	CampusConfig struct {
		Latitude     float64
		Longitude    float64
		RadiusMeters float64
	}

	// VirtualConfig holds the virtual-session verification policy:
	// how early/late a session may be started relative to its schedule,
	// and what fraction of the scheduled slot must actually be held.
	VirtualConfig struct {
		GraceBefore time.Duration
		GraceAfter  time.Duration
		MinOverlap  float64
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Mahadhurio")
	conf.SetDefault("build", "dev")
	conf.SetDefault("secretKey", "w3m2-yoh)akb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")

	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.apiAddr", ":8000")
	conf.SetDefault("server.debugAddr", ":8001")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.name", "mahadhurio")
	conf.SetDefault("database.user", "mahadhurio")
	conf.SetDefault("database.password", "")
	conf.SetDefault("database.adminUser", "")
	conf.SetDefault("database.adminPassword", "")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.disableTLS", true)

	conf.SetDefault("redis.addr", "")
	conf.SetDefault("redis.rate_limit", 30)
	conf.SetDefault("redis.rate_limit_window", time.Minute)

	// campus anchor: University of Ghana, Legon
	conf.SetDefault("campus.latitude", 5.6037)
	conf.SetDefault("campus.longitude", -0.1870)
	conf.SetDefault("campus.radius_meters", 300.0)

	conf.SetDefault("virtual.grace_before", 15*time.Minute)
	conf.SetDefault("virtual.grace_after", 15*time.Minute)
	conf.SetDefault("virtual.min_overlap", 0.7)

	env := os.Getenv("ENV")
	if env == "" {
		env = "DEV"
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	// CAMPUS_LATITUDE -> campus.latitude, etc.
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	conf.AutomaticEnv()

	return &Config{
		AppName:          conf.GetString("appName"),
		Env:              strings.ToUpper(env),
		Debug:            conf.GetBool("debug"),
		TestMode:         strings.EqualFold(env, "TEST"),
		Build:            conf.GetString("build"),
		SecretKey:        conf.GetString("secretKey"),
		DefaultFromEmail: mail.Address{Name: conf.GetString("appName"), Address: conf.GetString("defaultFromEmail")},
		FrontendBaseURL:  conf.GetString("frontendBaseURL"),
		WorkDir:          Getwd(),
		SendgridApiKey:   conf.GetString("sendgridApiKey"),
		RollbarToken:     conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      conf.GetString("server.host"),
			APIAddr:                   conf.GetString("server.apiAddr"),
			DebugAddr:                 conf.GetString("server.debugAddr"),
			ShutdownTimeout:           conf.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetString("database.port"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			Addr:            conf.GetString("redis.addr"),
			RateLimit:       conf.GetInt("redis.rate_limit"),
			RateLimitWindow: conf.GetDuration("redis.rate_limit_window"),
		},
		Campus: CampusConfig{
			Latitude:     conf.GetFloat64("campus.latitude"),
			Longitude:    conf.GetFloat64("campus.longitude"),
			RadiusMeters: conf.GetFloat64("campus.radius_meters"),
		},
		Virtual: VirtualConfig{
			GraceBefore: conf.GetDuration("virtual.grace_before"),
			GraceAfter:  conf.GetDuration("virtual.grace_after"),
			MinOverlap:  conf.GetFloat64("virtual.min_overlap"),
		},
	}
}
