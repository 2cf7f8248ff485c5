package config

import (
	"os"
	"strconv"
	"time"
)

// Credentials holds the Instapaper API credentials for the bookmark tools.
// Empty fields mean "not provided via environment"; the CLIs prompt for
// them interactively unless --no-prompt is set.
type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	Username       string
	Password       string
}

// LoadCredentials reads Instapaper credentials from the environment.
func LoadCredentials() Credentials {
	return Credentials{
		ConsumerKey:    os.Getenv("INSTAPAPER_API_KEY"),
		ConsumerSecret: os.Getenv("INSTAPAPER_API_SECRET"),
		Username:       os.Getenv("INSTAPAPER_USERNAME"),
		Password:       os.Getenv("INSTAPAPER_PASSWORD"),
	}
}

// Missing returns human-readable names of the credential fields that are unset.
func (c Credentials) Missing() []string {
	var missing []string
	if c.ConsumerKey == "" {
		missing = append(missing, "API key")
	}
	if c.ConsumerSecret == "" {
		missing = append(missing, "API secret")
	}
	if c.Username == "" {
		missing = append(missing, "username")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	return missing
}

// Monitor is the appliancemon daemon configuration.
type Monitor struct {
	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	ConfigFile    string        // optional appliances.yaml (empty = build appliances from env)
	CheckInterval time.Duration // poll interval between device reads

	ListenPort      string        // optional status HTTP server port (ex: "8086", empty = disabled)
	ShutdownTimeout time.Duration // graceful shutdown deadline for the status server

	// Redis cycle history (optional, empty addr = disabled)
	RedisAddr           string
	RedisUser           string
	RedisPassword       string
	RedisDB             int
	RedisDT             time.Duration // dial timeout
	RedisRT             time.Duration // read timeout
	RedisWT             time.Duration // write timeout
	RedisPoolSize       int
	RedisConnectTimeout time.Duration // total time to retry connecting
	RedisRetryInterval  time.Duration // initial wait between retries (grows exponentially)
	RedisMaxWait        time.Duration // max wait between retries
	RedisPingTimeout    time.Duration // timeout for each ping attempt
	RedisWarnThreshold  int           // warn after this many attempts
}

// LoadMonitor reads the appliancemon configuration from environment variables.
func LoadMonitor() *Monitor {
	return &Monitor{
		LogLevel:  getenv("APPLIANCEMON_LOG_LEVEL", "info"),
		PrettyLog: mustBool("APPLIANCEMON_PRETTY_LOG", true),

		ConfigFile:    getenv("APPLIANCEMON_CONFIG_FILE", ""),
		CheckInterval: mustDuration("CHECK_INTERVAL", 10*time.Second),

		ListenPort:      getenv("APPLIANCEMON_LISTEN_PORT", ""),
		ShutdownTimeout: mustDuration("APPLIANCEMON_SHUTDOWN_TIMEOUT", 5*time.Second),

		RedisAddr:           getenv("APPLIANCEMON_REDIS_ADDR", ""),
		RedisUser:           getenv("APPLIANCEMON_REDIS_USERNAME", "default"),
		RedisPassword:       getenv("APPLIANCEMON_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("APPLIANCEMON_REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 5),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),
	}
}

// Score is the healthscore CLI configuration. All keys are optional: the
// fetchers degrade per-indicator when a key is missing.
type Score struct {
	AirNowKey string  // airnowapi.org key (free registration)
	EIAKey    string  // api.eia.gov key, DEMO_KEY works for light use
	FredKey   string  // fred.stlouisfed.org key (free registration)
	ZipCode   string  // ZIP for AQI / UV lookups
	Lat       float64 // forecast point latitude
	Lon       float64 // forecast point longitude
}

// LoadScore reads the healthscore configuration from environment variables.
func LoadScore() *Score {
	return &Score{
		AirNowKey: getenv("AIRNOW_API_KEY", ""),
		EIAKey:    getenv("EIA_API_KEY", "DEMO_KEY"),
		FredKey:   getenv("FRED_API_KEY", ""),
		ZipCode:   getenv("HEALTHSCORE_ZIP", "89052"),
		Lat:       getenvFloat("HEALTHSCORE_LAT", 36.0611),
		Lon:       getenvFloat("HEALTHSCORE_LON", -115.1747),
	}
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		// Bare numbers are treated as seconds (CHECK_INTERVAL=10).
		if i, err := strconv.Atoi(v); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return def
}
