package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration.
// Values come from built-in defaults, then an optional YAML file named by
// CONFIG_FILE, then environment variables. Only DATABASE_URL is required.
type Config struct {
	// Server
	HTTPPort        string        `yaml:"http_port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"` // 0 derives it from MaxRunDuration
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Database
	DatabaseURL    string `yaml:"database_url"`
	DBMaxConns     int32  `yaml:"db_max_conns"`
	DBMinConns     int32  `yaml:"db_min_conns"`
	MigrationsPath string `yaml:"migrations_path"`

	// Outgoing mail
	SMTPHost               string `yaml:"smtp_host"`
	SMTPPort               int    `yaml:"smtp_port"`
	SMTPUser               string `yaml:"smtp_user"`
	SMTPPassword           string `yaml:"smtp_password"`
	SMTPInsecureSkipVerify bool   `yaml:"smtp_insecure_skip_verify"`
	SenderAddress          string `yaml:"sender_address"`
	SenderName             string `yaml:"sender_name"`

	// Dispatcher
	PageSize         int           `yaml:"page_size"`
	BatchSize        int           `yaml:"batch_size"`
	BatchDelay       time.Duration `yaml:"batch_delay"`
	ItemTimeout      time.Duration `yaml:"item_timeout"`
	ClaimLease       time.Duration `yaml:"claim_lease"`
	DispatchInterval time.Duration `yaml:"dispatch_interval"`
	SendRateLimit    int           `yaml:"send_rate_limit"`

	// Run lock (disabled when RedisAddr is empty)
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RunLockTTL    time.Duration `yaml:"run_lock_ttl"`
}

// writeTimeoutSlack covers locking, claiming and the response write around a pass.
const writeTimeoutSlack = 30 * time.Second

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		HTTPPort:        "8080",
		ReadTimeout:     5 * time.Second,
		ShutdownTimeout: 30 * time.Second,

		DBMaxConns:     10,
		DBMinConns:     2,
		MigrationsPath: "migrations",

		SMTPHost:   "smtp.gmail.com",
		SMTPPort:   587,
		SenderName: "Pulse Fitness",

		PageSize:         20,
		BatchSize:        5,
		BatchDelay:       500 * time.Millisecond,
		ItemTimeout:      30 * time.Second,
		ClaimLease:       10 * time.Minute,
		DispatchInterval: 5 * time.Minute,

		RunLockTTL: 5 * time.Minute,
	}
}

func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	overrideFromEnv(cfg)

	if cfg.SenderAddress == "" {
		cfg.SenderAddress = cfg.SMTPUser
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = cfg.MaxRunDuration() + writeTimeoutSlack
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

func overrideFromEnv(cfg *Config) {
	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.ReadTimeout = getDuration("READ_TIMEOUT", cfg.ReadTimeout)
	cfg.WriteTimeout = getDuration("WRITE_TIMEOUT", cfg.WriteTimeout)
	cfg.ShutdownTimeout = getDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)

	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.DBMaxConns = int32(getInt("DB_MAX_CONNS", int(cfg.DBMaxConns)))
	cfg.DBMinConns = int32(getInt("DB_MIN_CONNS", int(cfg.DBMinConns)))
	cfg.MigrationsPath = getEnv("MIGRATIONS_PATH", cfg.MigrationsPath)

	cfg.SMTPHost = getEnv("SMTP_HOST", cfg.SMTPHost)
	cfg.SMTPPort = getInt("SMTP_PORT", cfg.SMTPPort)
	cfg.SMTPUser = getEnv("SMTP_USER", cfg.SMTPUser)
	cfg.SMTPPassword = getEnv("SMTP_PASSWORD", cfg.SMTPPassword)
	cfg.SMTPInsecureSkipVerify = getBool("SMTP_INSECURE_SKIP_VERIFY", cfg.SMTPInsecureSkipVerify)
	cfg.SenderAddress = getEnv("MAIL_SENDER_ADDRESS", cfg.SenderAddress)
	cfg.SenderName = getEnv("MAIL_SENDER_NAME", cfg.SenderName)

	cfg.PageSize = getInt("DISPATCH_PAGE_SIZE", cfg.PageSize)
	cfg.BatchSize = getInt("DISPATCH_BATCH_SIZE", cfg.BatchSize)
	cfg.BatchDelay = getDuration("DISPATCH_BATCH_DELAY", cfg.BatchDelay)
	cfg.ItemTimeout = getDuration("DISPATCH_ITEM_TIMEOUT", cfg.ItemTimeout)
	cfg.ClaimLease = getDuration("DISPATCH_CLAIM_LEASE", cfg.ClaimLease)
	cfg.DispatchInterval = getDuration("DISPATCH_INTERVAL", cfg.DispatchInterval)
	cfg.SendRateLimit = getInt("SEND_RATE_LIMIT", cfg.SendRateLimit)

	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getInt("REDIS_DB", cfg.RedisDB)
	cfg.RunLockTTL = getDuration("RUN_LOCK_TTL", cfg.RunLockTTL)
}

// MaxRunDuration is the longest a single dispatch pass can take, with every
// batch of a full page running into ItemTimeout. SendRateLimit adds the time
// the limiter needs to release a whole page.
func (c *Config) MaxRunDuration() time.Duration {
	if c.PageSize <= 0 || c.BatchSize <= 0 {
		return 0
	}
	batches := (c.PageSize + c.BatchSize - 1) / c.BatchSize
	d := time.Duration(batches)*c.ItemTimeout + time.Duration(batches-1)*c.BatchDelay
	if c.SendRateLimit > 0 {
		d += time.Duration(c.PageSize) * time.Second / time.Duration(c.SendRateLimit)
	}
	return d
}

// Validate rejects settings the dispatcher cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.PageSize <= 0 {
		errs = append(errs, errors.New("page size must be positive"))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, errors.New("batch size must be positive"))
	}
	if c.BatchDelay < 0 {
		errs = append(errs, errors.New("batch delay must not be negative"))
	}
	if c.ItemTimeout <= 0 {
		errs = append(errs, errors.New("item timeout must be positive"))
	}
	maxRun := c.MaxRunDuration()
	if c.ClaimLease <= c.ItemTimeout || c.ClaimLease <= maxRun {
		errs = append(errs, fmt.Errorf("claim lease %s must be longer than a full dispatch pass (%s)", c.ClaimLease, maxRun))
	}
	if c.WriteTimeout < 0 || (c.WriteTimeout > 0 && c.WriteTimeout <= maxRun) {
		errs = append(errs, fmt.Errorf("write timeout %s must be longer than a full dispatch pass (%s)", c.WriteTimeout, maxRun))
	}
	if c.DispatchInterval < 0 {
		errs = append(errs, errors.New("dispatch interval must not be negative"))
	}
	if c.SenderAddress == "" {
		errs = append(errs, errors.New("MAIL_SENDER_ADDRESS or SMTP_USER is required"))
	}
	if c.RedisAddr != "" && c.RunLockTTL <= 0 {
		errs = append(errs, errors.New("run lock TTL must be positive"))
	} else if c.RedisAddr != "" && c.RunLockTTL <= maxRun {
		errs = append(errs, fmt.Errorf("run lock TTL %s must be longer than a full dispatch pass (%s)", c.RunLockTTL, maxRun))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
