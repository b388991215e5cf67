package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"ScoutSync/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"required,oneof=development staging production test"`
	Log         LogConfig        `yaml:"log"`
	Server      ServerConfig     `yaml:"server"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Store       StoreConfig      `yaml:"store"`
	Source      SourceConfig     `yaml:"source"`
	Workbook    WorkbookConfig   `yaml:"workbook"`
	Reconcile   ReconcileConfig  `yaml:"reconcile"`
	Dispatch    DispatchConfig   `yaml:"dispatch"`
	Notify      NotifyConfig     `yaml:"notify"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Cache       CacheConfig      `yaml:"cache"`
	Runner      RunnerConfig     `yaml:"runner"`
}

type LogConfig struct {
	Level   string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format  string `yaml:"format" default:"json" validate:"oneof=json console"`
	Output  string `yaml:"output" default:"stdout"`
	Collect struct {
		Enabled   bool          `yaml:"enabled"`
		Topic     string        `yaml:"topic" default:"scoutsync.logs"`
		Interval  time.Duration `yaml:"interval" default:"30s"`
		Threshold int           `yaml:"threshold" default:"100" validate:"gte=1"`
	} `yaml:"collect"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10m"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	SlowThreshold   time.Duration `yaml:"slow_threshold" default:"2s"`
	RateLimit       struct {
		Burst     float64 `yaml:"burst" default:"3" validate:"gt=0"`
		PerSecond float64 `yaml:"per_second" default:"0.1" validate:"gt=0"`
	} `yaml:"rate_limit"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`
}

type StoreConfig struct {
	Driver         string        `yaml:"driver" default:"postgres" validate:"oneof=postgres sqlite"`
	DSN            string        `yaml:"dsn" validate:"required"`
	MaxConns       int32         `yaml:"max_conns" default:"5" validate:"gte=1"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" default:"5s"`
	InitSchema     bool          `yaml:"init_schema" default:"true"`
}

type SourceConfig struct {
	Type        string     `yaml:"type" default:"local" validate:"oneof=local sftp"`
	Dir         string     `yaml:"dir" default:"./data"`
	DownloadDir string     `yaml:"download_dir" default:"./downloads"`
	SFTP        SFTPConfig `yaml:"sftp"`
}

type SFTPConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port" default:"22"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	RemoteDir      string        `yaml:"remote_dir" default:"."`
	KnownHostsFile string        `yaml:"known_hosts_file"`
	Timeout        time.Duration `yaml:"timeout" default:"30s"`
}

type WorkbookConfig struct {
	TitleRows int `yaml:"title_rows" default:"1" validate:"gte=0"`
}

type ReconcileConfig struct {
	DailyRowLimit  int      `yaml:"daily_row_limit" default:"10" validate:"gte=1"`
	MinYear        int      `yaml:"min_year" default:"1950" validate:"gte=1900"`
	TrailingLabels []string `yaml:"trailing_labels" default:"[\"LTM\",\"LTM-4\"]"`
	IgnoreSheets   []string `yaml:"ignore_sheets"`
	ResolverChunk  int      `yaml:"resolver_chunk" default:"500" validate:"gte=1"`
}

// DispatchRule maps a file-name regex to a value (a mode or a stream code).
type DispatchRule struct {
	Pattern string `yaml:"pattern" validate:"required"`
	Value   string `yaml:"value" validate:"required"`
}

type DispatchConfig struct {
	Modes   []DispatchRule `yaml:"modes" validate:"dive"`
	Streams []DispatchRule `yaml:"streams" validate:"dive"`
}

// DefaultModeRules is the file-name to mode table used when none is configured.
var DefaultModeRules = []DispatchRule{
	{Pattern: `(?i)(MC|Vol|PX)`, Value: "daily"},
	{Pattern: `MENA_Fundamentals`, Value: "yearly"},
}

// DefaultStreamRules is the daily file-name to stream table used when none is configured.
var DefaultStreamRules = []DispatchRule{
	{Pattern: `MC_USD`, Value: "MC"},
	{Pattern: `PX_USD`, Value: "PX"},
	{Pattern: `Vol_USD`, Value: "Volume"},
}

type NotifyConfig struct {
	Channels []string      `yaml:"channels" default:"[\"log\"]" validate:"dive,oneof=log mailgun kafka"`
	Timeout  time.Duration `yaml:"timeout" default:"15s"`
	Mailgun  struct {
		Domain  string   `yaml:"domain"`
		APIKey  string   `yaml:"api_key"`
		BaseURL string   `yaml:"base_url"`
		From    string   `yaml:"from"`
		To      []string `yaml:"to"`
	} `yaml:"mailgun"`
	Kafka struct {
		Topic string `yaml:"topic" default:"scoutsync.results"`
	} `yaml:"kafka"`
}

type KafkaConfig struct {
	Brokers      []string `yaml:"brokers"`
	RequiredAcks int      `yaml:"required_acks" default:"-1"`
	Compression  string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
	Producer     struct {
		MaxAttempts     int           `yaml:"max_attempts" default:"3"`
		Linger          time.Duration `yaml:"linger" default:"50ms"`
		BatchBytes      int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize       int           `yaml:"batch_size" default:"100"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		AutoCreateTopic bool          `yaml:"auto_create_topic"`
	} `yaml:"producer"`
}

type ClickHouseConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port" default:"9000"`
	Database    string        `yaml:"database" default:"scoutsync"`
	User        string        `yaml:"user" default:"default"`
	Password    string        `yaml:"password"`
	AsyncInsert bool          `yaml:"async_insert"`
	DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout time.Duration `yaml:"read_timeout" default:"30s"`
}

type CacheConfig struct {
	Driver        string        `yaml:"driver" default:"memory" validate:"oneof=memory redis layered"`
	ResolverTTL   time.Duration `yaml:"resolver_ttl" default:"1h"`
	LockTTL       time.Duration `yaml:"lock_ttl" default:"30m"`
	MemoryMaxSize int           `yaml:"memory_max_size" default:"10000"`
	Redis         struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"scoutsync"`
	} `yaml:"redis"`
}

type RunnerConfig struct {
	// Interval triggers periodic runs in serve mode; zero disables the schedule.
	Interval time.Duration `yaml:"interval"`
}

var validate = validator.New()

// Load reads a YAML configuration file, applies defaults and validates it.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse is Load without the file read.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads .env (if present), then the YAML file, then environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyEnv()
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("STORE_DSN"); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv("SOURCE_DIR"); v != "" {
		c.Source.Dir = v
	}
	if v := os.Getenv("SFTP_PASSWORD"); v != "" {
		c.Source.SFTP.Password = v
	}
	if v := os.Getenv("MAILGUN_API_KEY"); v != "" {
		c.Notify.Mailgun.APIKey = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
}

// Validate checks tags and the settings that depend on each other.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.Source.Type == "sftp" {
		if c.Source.SFTP.Host == "" || c.Source.SFTP.User == "" {
			return fmt.Errorf("source.sftp.host and source.sftp.user are required for sftp source")
		}
	}
	for _, ch := range c.Notify.Channels {
		switch ch {
		case "mailgun":
			m := c.Notify.Mailgun
			if m.Domain == "" || m.APIKey == "" || m.From == "" || len(m.To) == 0 {
				return fmt.Errorf("notify.mailgun domain, api_key, from and to are required for the mailgun channel")
			}
		case "kafka":
			if len(c.Kafka.Brokers) == 0 {
				return fmt.Errorf("kafka.brokers is required for the kafka channel")
			}
		}
	}
	if c.Log.Collect.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when log.collect is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	for _, r := range append(c.ModeRules(), c.StreamRules()...) {
		if _, err := regexp.Compile(r.Pattern); err != nil {
			return fmt.Errorf("dispatch pattern %q: %w", r.Pattern, err)
		}
	}
	for _, r := range c.ModeRules() {
		if r.Value != "daily" && r.Value != "yearly" {
			return fmt.Errorf("dispatch mode %q must be daily or yearly", r.Value)
		}
	}
	return nil
}

// ModeRules returns the configured mode table or the default one.
func (c *Config) ModeRules() []DispatchRule {
	if len(c.Dispatch.Modes) > 0 {
		return c.Dispatch.Modes
	}
	return DefaultModeRules
}

// StreamRules returns the configured daily stream table or the default one.
func (c *Config) StreamRules() []DispatchRule {
	if len(c.Dispatch.Streams) > 0 {
		return c.Dispatch.Streams
	}
	return DefaultStreamRules
}

// NotifyEnabled reports whether channel is listed in notify.channels.
func (c *Config) NotifyEnabled(channel string) bool {
	for _, ch := range c.Notify.Channels {
		if ch == channel {
			return true
		}
	}
	return false
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
