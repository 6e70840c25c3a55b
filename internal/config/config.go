package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/user/ferry-watch/internal/domain"
)

const dateLayout = "2006-01-02"

// Config stores all configuration for the application.
type Config struct {
	BookingURL  string `mapstructure:"BOOKING_URL"`
	BookingLink string `mapstructure:"BOOKING_LINK"`
	Operator    string `mapstructure:"OPERATOR_NAME"`

	DeparturePort string `mapstructure:"DEPARTURE_PORT"`
	ArrivalPort   string `mapstructure:"ARRIVAL_PORT"`
	OutboundDate  string `mapstructure:"OUTBOUND_DATE"`
	ReturnDate    string `mapstructure:"RETURN_DATE"`
	OutboundTime  string `mapstructure:"OUTBOUND_TIME"`
	ReturnTime    string `mapstructure:"RETURN_TIME"`
	Adults        int    `mapstructure:"ADULTS"`
	Children      int    `mapstructure:"CHILDREN"`
	Infants       int    `mapstructure:"INFANTS"`
	VehicleType   string `mapstructure:"VEHICLE_TYPE"`
	VehicleSizes  string `mapstructure:"VEHICLE_SIZES"`

	Headless       bool   `mapstructure:"HEADLESS"`
	ChromePath     string `mapstructure:"CHROME_PATH"`
	ProxyURLs      string `mapstructure:"PROXY_URLS"`
	UserAgents     string `mapstructure:"USER_AGENTS"`
	AcceptLanguage string `mapstructure:"ACCEPT_LANGUAGE"`

	NavigationTimeout int `mapstructure:"NAVIGATION_TIMEOUT"` // seconds
	FormTimeout       int `mapstructure:"FORM_TIMEOUT"`
	ProbeTimeout      int `mapstructure:"PROBE_TIMEOUT"`
	ResultsTimeout    int `mapstructure:"RESULTS_TIMEOUT"`
	ActionTimeout     int `mapstructure:"ACTION_TIMEOUT"`
	InitialSettleMS   int `mapstructure:"INITIAL_SETTLE_MS"`
	FieldSettleMS     int `mapstructure:"FIELD_SETTLE_MS"`
	DateSettleMS      int `mapstructure:"DATE_SETTLE_MS"`
	ResultsSettleMS   int `mapstructure:"RESULTS_SETTLE_MS"`
	MaxAttempts       int `mapstructure:"MAX_ATTEMPTS"`
	RetryCooldown     int `mapstructure:"RETRY_COOLDOWN"` // seconds

	MinStructural       int  `mapstructure:"MIN_STRUCTURAL"`
	MinLexical          int  `mapstructure:"MIN_LEXICAL"`
	Corroborate         bool `mapstructure:"CORROBORATE"`
	Exhaustive          bool `mapstructure:"EXHAUSTIVE_SELECTORS"`
	NegativeKeywordVeto bool `mapstructure:"NEGATIVE_KEYWORD_VETO"`

	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `mapstructure:"TELEGRAM_CHAT_ID"`
	TelegramAPIURL   string `mapstructure:"TELEGRAM_API_URL"`
	NotifyTimeout    int    `mapstructure:"NOTIFY_TIMEOUT"` // seconds

	LogDir          string `mapstructure:"LOG_DIR"`
	LogLevel        string `mapstructure:"LOG_LEVEL"`
	ArtifactsDir    string `mapstructure:"ARTIFACTS_DIR"`
	MetricsTextfile string `mapstructure:"METRICS_TEXTFILE"`

	PostgresURL   string `mapstructure:"POSTGRES_URL"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	RedisTTLHours int    `mapstructure:"REDIS_TTL_HOURS"`

	ServerPort   string `mapstructure:"SERVER_PORT"`
	CheckTimeout int    `mapstructure:"CHECK_TIMEOUT"` // seconds, serve mode
}

var defaults = map[string]any{
	"BOOKING_URL":   "https://ticketing.calmac.co.uk/B2C-Calmac/#/desktop/step1/destinations/single",
	"BOOKING_LINK":  "https://ticketing.calmac.co.uk/B2C-Calmac/",
	"OPERATOR_NAME": "CalMac",

	"DEPARTURE_PORT": "Troon",
	"ARRIVAL_PORT":   "Brodick",
	"OUTBOUND_DATE":  "2025-08-03",
	"RETURN_DATE":    "2025-08-05",
	"OUTBOUND_TIME":  "07:45",
	"RETURN_TIME":    "15:30",
	"ADULTS":         1,
	"CHILDREN":       1,
	"INFANTS":        1,
	"VEHICLE_TYPE":   "Car",
	"VEHICLE_SIZES":  "Medium Car,Large Car",

	"HEADLESS":        true,
	"CHROME_PATH":     "",
	"PROXY_URLS":      "",
	"USER_AGENTS":     "",
	"ACCEPT_LANGUAGE": "en-GB,en;q=0.9",

	"NAVIGATION_TIMEOUT": 45,
	"FORM_TIMEOUT":       15,
	"PROBE_TIMEOUT":      5,
	"RESULTS_TIMEOUT":    30,
	"ACTION_TIMEOUT":     10,
	"INITIAL_SETTLE_MS":  5000,
	"FIELD_SETTLE_MS":    1000,
	"DATE_SETTLE_MS":     500,
	"RESULTS_SETTLE_MS":  8000,
	"MAX_ATTEMPTS":       2,
	"RETRY_COOLDOWN":     5,

	"MIN_STRUCTURAL":        2,
	"MIN_LEXICAL":           3,
	"CORROBORATE":           true,
	"EXHAUSTIVE_SELECTORS":  true,
	"NEGATIVE_KEYWORD_VETO": false,

	"TELEGRAM_BOT_TOKEN": "",
	"TELEGRAM_CHAT_ID":   "",
	"TELEGRAM_API_URL":   "https://api.telegram.org",
	"NOTIFY_TIMEOUT":     30,

	"LOG_DIR":          "logs",
	"LOG_LEVEL":        "info",
	"ARTIFACTS_DIR":    "logs",
	"METRICS_TEXTFILE": "",

	"POSTGRES_URL":    "",
	"REDIS_ADDR":      "",
	"REDIS_PASSWORD":  "",
	"REDIS_DB":        0,
	"REDIS_TTL_HOURS": 24,

	"SERVER_PORT":   "8080",
	"CHECK_TIMEOUT": 300,
}

// Load reads configuration from an optional env file and the environment.
// An empty path falls back to ".env".
func Load(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = ".env"
	}
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	// A missing file is fine, the environment alone is enough in production.
	_ = v.ReadInConfig()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the checker cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.BookingURL == "" {
		errs = append(errs, errors.New("BOOKING_URL is required"))
	}
	if c.DeparturePort == "" || c.ArrivalPort == "" {
		errs = append(errs, errors.New("DEPARTURE_PORT and ARRIVAL_PORT are required"))
	}
	outbound, err := time.Parse(dateLayout, c.OutboundDate)
	if err != nil {
		errs = append(errs, fmt.Errorf("OUTBOUND_DATE: %w", err))
	}
	inbound, err := time.Parse(dateLayout, c.ReturnDate)
	if err != nil {
		errs = append(errs, fmt.Errorf("RETURN_DATE: %w", err))
	}
	if !outbound.IsZero() && !inbound.IsZero() && inbound.Before(outbound) {
		errs = append(errs, errors.New("RETURN_DATE is before OUTBOUND_DATE"))
	}
	if c.Adults < 0 || c.Children < 0 || c.Infants < 0 {
		errs = append(errs, errors.New("passenger counts must not be negative"))
	}
	if c.MaxAttempts < 1 {
		errs = append(errs, errors.New("MAX_ATTEMPTS must be at least 1"))
	}
	if c.MinStructural < 1 || c.MinLexical < 1 {
		errs = append(errs, errors.New("MIN_STRUCTURAL and MIN_LEXICAL must be at least 1"))
	}
	return errors.Join(errs...)
}

// Criteria builds the search itinerary. Call after Validate.
func (c *Config) Criteria() domain.SearchCriteria {
	outbound, _ := time.Parse(dateLayout, c.OutboundDate)
	inbound, _ := time.Parse(dateLayout, c.ReturnDate)
	return domain.SearchCriteria{
		DeparturePort: c.DeparturePort,
		ArrivalPort:   c.ArrivalPort,
		OutboundDate:  outbound,
		ReturnDate:    inbound,
		OutboundTime:  c.OutboundTime,
		ReturnTime:    c.ReturnTime,
		Adults:        c.Adults,
		Children:      c.Children,
		Infants:       c.Infants,
		VehicleType:   c.VehicleType,
		VehicleSizes:  SplitList(c.VehicleSizes),
	}
}

// Seconds converts one of the integer second settings.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Millis converts one of the integer millisecond settings.
func Millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// SplitList splits a comma separated setting, dropping blanks.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
