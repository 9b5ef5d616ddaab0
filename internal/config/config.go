package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"salonbook/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Business   BusinessConfig   `yaml:"business"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	SMS        SMSConfig        `yaml:"sms"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Google     GoogleConfig     `yaml:"google"`
	Reminders  ReminderConfig   `yaml:"reminders"`
	Worker     WorkerConfig     `yaml:"worker"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	// SlotCacheTTL in seconds
	SlotCacheTTL int `yaml:"slot_cache_ttl"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Interval      string `yaml:"interval"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	HTTP          APIHTTPConfig      `yaml:"http"`
	Auth          APIAuthConfig      `yaml:"auth"`
	RateLimit     APIRateLimitConfig `yaml:"rate_limit"`
	BookingLimit  BookingLimitConfig `yaml:"booking_limit"`
	AllowedOrigin string             `yaml:"allowed_origin"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

// APIAuthConfig protects the admin endpoints. Public booking routes stay open.
type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// BookingLimitConfig is a shared fixed window for POST /api/book, kept in redis.
type BookingLimitConfig struct {
	Requests      int `yaml:"requests"`
	WindowSeconds int `yaml:"window_seconds"`
}

type BusinessConfig struct {
	Name               string                  `yaml:"name"`
	Currency           string                  `yaml:"currency"`
	Timezone           string                  `yaml:"timezone"`
	OpeningHours       map[string]models.Hours `yaml:"opening_hours"`
	MaxBookingDays     int                     `yaml:"max_booking_days"`
	SkipElapsedSlots   bool                    `yaml:"skip_elapsed_slots"`
	PhonePattern       string                  `yaml:"phone_pattern"`
	DefaultCountryCode string                  `yaml:"default_country_code"`
}

type CatalogConfig struct {
	EligibilityDefault string `yaml:"eligibility_default"`
	Path               string `yaml:"path"`
}

type SMSConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	Token      string `yaml:"token"`
	SenderName string `yaml:"sender_name"`
}

type TelegramConfig struct {
	BotToken string  `yaml:"bot_token"`
	Managers []int64 `yaml:"managers"`
	Debug    bool    `yaml:"debug"`
}

type GoogleConfig struct {
	GoogleCredentialsFile string `yaml:"credentials_file"`
	BookingSpreadSheetID  string `yaml:"bookings_spreadsheet_id"`
}

type ReminderConfig struct {
	Enabled bool   `yaml:"enabled"`
	Time    string `yaml:"time"`
}

type WorkerConfig struct {
	PollInterval string `yaml:"poll_interval"`
	MaxRetries   int    `yaml:"max_retries"`
	BaseDelay    string `yaml:"base_delay"`
	MaxDelay     string `yaml:"max_delay"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

const DefaultPhonePattern = `^(?:\+?27|0)?[0-9]{9,10}$`

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func Load(configPath string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if _, err := c.Business.Location(); err != nil {
		return fmt.Errorf("invalid business timezone %q: %w", c.Business.Timezone, err)
	}

	for day, hours := range c.Business.OpeningHours {
		if _, ok := weekdayNames[strings.ToLower(day)]; !ok {
			return fmt.Errorf("unknown weekday %q in opening_hours", day)
		}
		if hours.Open < 0 || hours.Close > 24 || hours.Open >= hours.Close {
			return fmt.Errorf("invalid opening hours for %s: %d-%d", day, hours.Open, hours.Close)
		}
	}

	if _, err := regexp.Compile(c.Business.PhonePattern); err != nil {
		return fmt.Errorf("invalid phone pattern: %w", err)
	}

	switch c.Catalog.EligibilityDefault {
	case models.EligibilityPermissive, models.EligibilityStrict:
	default:
		return fmt.Errorf("catalog.eligibility_default must be %q or %q", models.EligibilityPermissive, models.EligibilityStrict)
	}

	if _, _, err := c.Reminders.Clock(); err != nil {
		return err
	}

	for name, value := range map[string]string{
		"worker.poll_interval": c.Worker.PollInterval,
		"worker.base_delay":    c.Worker.BaseDelay,
		"worker.max_delay":     c.Worker.MaxDelay,
		"backup.interval":      c.Backup.Interval,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	return nil
}

// ValidateCatalog checks the seed document for zero or duplicate IDs and
// eligibility rows pointing at unknown staff or services.
func ValidateCatalog(catalog models.Catalog) error {
	serviceIDs := make(map[int64]bool, len(catalog.Services))
	for _, svc := range catalog.Services {
		if svc.ID == 0 {
			return fmt.Errorf("service '%s' has invalid ID 0", svc.Name)
		}
		if serviceIDs[svc.ID] {
			return fmt.Errorf("duplicate service ID found: %d", svc.ID)
		}
		if svc.Duration <= 0 {
			return fmt.Errorf("service %d has non-positive duration", svc.ID)
		}
		serviceIDs[svc.ID] = true
	}

	staffIDs := make(map[int64]bool, len(catalog.Staff))
	for _, member := range catalog.Staff {
		if member.ID == 0 {
			return fmt.Errorf("staff '%s' has invalid ID 0", member.Name)
		}
		if staffIDs[member.ID] {
			return fmt.Errorf("duplicate staff ID found: %d", member.ID)
		}
		staffIDs[member.ID] = true
	}

	for _, link := range catalog.StaffServices {
		if !staffIDs[link.StaffID] {
			return fmt.Errorf("staff_services references unknown staff %d", link.StaffID)
		}
		if !serviceIDs[link.ServiceID] {
			return fmt.Errorf("staff_services references unknown service %d", link.ServiceID)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "salonbook"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 10
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 20
	}
	if c.API.BookingLimit.WindowSeconds == 0 {
		c.API.BookingLimit.WindowSeconds = 60
	}
	if c.Redis.SlotCacheTTL == 0 {
		c.Redis.SlotCacheTTL = models.DefaultSlotCacheTTL
	}

	if c.Business.Name == "" {
		c.Business.Name = "Belle Madame Salon"
	}
	if c.Business.Currency == "" {
		c.Business.Currency = "R"
	}
	if c.Business.Timezone == "" {
		c.Business.Timezone = "Local"
	}
	if c.Business.OpeningHours == nil {
		c.Business.OpeningHours = make(map[string]models.Hours, len(weekdayNames))
		for name := range weekdayNames {
			c.Business.OpeningHours[name] = models.Hours{Open: models.DefaultOpenHour, Close: models.DefaultCloseHour}
		}
	}
	if c.Business.MaxBookingDays == 0 {
		c.Business.MaxBookingDays = models.DefaultMaxBookingDays
	}
	if c.Business.PhonePattern == "" {
		c.Business.PhonePattern = DefaultPhonePattern
	}
	if c.Business.DefaultCountryCode == "" {
		c.Business.DefaultCountryCode = "27"
	}

	if c.Catalog.EligibilityDefault == "" {
		c.Catalog.EligibilityDefault = models.EligibilityPermissive
	}
	if c.Catalog.Path == "" {
		c.Catalog.Path = "configs/catalog.yaml"
	}

	if c.Reminders.Time == "" {
		c.Reminders.Time = "10:00"
	}

	if c.Worker.PollInterval == "" {
		c.Worker.PollInterval = "10s"
	}
	if c.Worker.MaxRetries == 0 {
		c.Worker.MaxRetries = 5
	}
	if c.Worker.BaseDelay == "" {
		c.Worker.BaseDelay = "2s"
	}
	if c.Worker.MaxDelay == "" {
		c.Worker.MaxDelay = "1m"
	}

	if c.Backup.Interval == "" {
		c.Backup.Interval = "24h"
	}
	if c.Backup.RetentionDays == 0 {
		c.Backup.RetentionDays = 7
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "backups"
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}

// Location resolves the single business timezone.
func (b BusinessConfig) Location() (*time.Location, error) {
	return time.LoadLocation(b.Timezone)
}

// WeeklyHours converts the weekday-name map into a weekday-indexed one.
// Days missing from the result are closed.
func (b BusinessConfig) WeeklyHours() map[time.Weekday]models.Hours {
	out := make(map[time.Weekday]models.Hours, len(b.OpeningHours))
	for name, hours := range b.OpeningHours {
		if day, ok := weekdayNames[strings.ToLower(name)]; ok {
			out[day] = hours
		}
	}
	return out
}

// Clock returns the reminder hour and minute.
func (r ReminderConfig) Clock() (int, int, error) {
	t, err := time.Parse(models.TimeLayout, r.Time)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid reminders.time %q: %w", r.Time, err)
	}
	return t.Hour(), t.Minute(), nil
}

// RetryDelays returns the parsed worker base and max delays. Call after Validate.
func (w WorkerConfig) RetryDelays() (base, maxDelay time.Duration) {
	base, _ = time.ParseDuration(w.BaseDelay)
	maxDelay, _ = time.ParseDuration(w.MaxDelay)
	return base, maxDelay
}
