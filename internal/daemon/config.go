package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"github.com/quotabot/quotabot/internal/domain"
	"github.com/quotabot/quotabot/internal/infra/jsonfile"
	"github.com/quotabot/quotabot/internal/infra/logging"
)

// Storage drivers.
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

// Config is the daemon configuration, read from $QUOTABOT_HOME/config.toml.
type Config struct {
	API     APIConfig        `toml:"api"`
	Storage StorageConfig    `toml:"storage"`
	Week    WeekConfig       `toml:"week"`
	Goals   map[string]int64 `toml:"goals"`
	Sales   SalesConfig      `toml:"sales"`
	Display DisplayConfig    `toml:"display"`
	Log     LogConfig        `toml:"log"`

	// goalOrder is the order [goals] keys appear in the file.
	goalOrder []string
}

// APIConfig controls the HTTP listener.
type APIConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// StorageConfig selects the snapshot backend.
type StorageConfig struct {
	Driver string `toml:"driver"` // json or sqlite
	Path   string `toml:"path"`   // file for json, directory for sqlite; empty = under home
}

// WeekConfig defines the weekly reset.
type WeekConfig struct {
	Timezone string `toml:"timezone"`
	Weekday  string `toml:"weekday"`
	Start    string `toml:"start"` // HH:MM
}

// SalesConfig holds sales defaults.
type SalesConfig struct {
	Goal            decimal.Decimal `toml:"goal"`
	LeaderboardSize int             `toml:"leaderboard_size"`
}

// DisplayConfig controls rendering.
type DisplayConfig struct {
	BarWidth int `toml:"bar_width"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig returns safe defaults. Goals are left unset so the built-in
// goal set applies unless the file has a [goals] table.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8420,
		},
		Storage: StorageConfig{
			Driver: DriverJSON,
		},
		Week: WeekConfig{
			Timezone: "Europe/Paris",
			Weekday:  "sunday",
			Start:    "00:00",
		},
		Sales: SalesConfig{
			LeaderboardSize: domain.DefaultSalesLeaderboardSize,
		},
		Display: DisplayConfig{
			BarWidth: domain.DefaultBarWidth,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Home returns the quotabot home directory: $QUOTABOT_HOME or ~/.quotabot.
func Home() string {
	if h := os.Getenv("QUOTABOT_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".quotabot"
	}
	return filepath.Join(home, ".quotabot")
}

// ConfigPath returns the default config file location.
func ConfigPath() string {
	return filepath.Join(Home(), "config.toml")
}

// LoadConfig reads path over the defaults. A missing file yields defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, key := range md.Keys() {
		if len(key) == 2 && key[0] == "goals" {
			cfg.goalOrder = append(cfg.goalOrder, key[1])
		}
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		logging.Warn().Str("file", path).Interface("keys", undecoded).Msg("unknown config keys ignored")
	}
	return cfg, cfg.Validate()
}

// Validate checks values a typo would otherwise turn into odd behavior.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverJSON, DriverSQLite:
	default:
		return fmt.Errorf("storage.driver %q: want %q or %q", c.Storage.Driver, DriverJSON, DriverSQLite)
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if _, err := c.Week.Rule(); err != nil {
		return err
	}
	for item, goal := range c.Goals {
		if goal < 0 {
			return fmt.Errorf("goals.%s: %w", item, domain.ErrNegativeGoal)
		}
	}
	if c.Sales.Goal.IsNegative() {
		return fmt.Errorf("sales.goal: %w", domain.ErrNegativeAmount)
	}
	return nil
}

// Addr returns the API listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// SetAddr overrides the listen host and port from a host:port string.
func (c *Config) SetAddr(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("listen address %q: %w", addr, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("listen address %q: bad port", addr)
	}
	c.API.Host, c.API.Port = host, n
	return nil
}

// StoragePath returns where the snapshot lives for the configured driver.
func (c Config) StoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	if c.Storage.Driver == DriverSQLite {
		return Home()
	}
	return filepath.Join(Home(), jsonfile.DefaultName)
}

// Seed returns the values a fresh ledger starts from.
func (c Config) Seed() domain.Seed {
	if c.Goals == nil {
		seed := domain.DefaultSeed()
		seed.SalesGoal = c.Sales.Goal
		return seed
	}
	goals := domain.NewOrderedMap[domain.ItemID, int64]()
	for _, item := range c.goalOrder {
		if g, ok := c.Goals[item]; ok {
			goals.Set(domain.ItemID(item), g)
		}
	}
	// keys set in code rather than read from a file have no order
	rest := make([]string, 0, len(c.Goals))
	for item := range c.Goals {
		if !goals.Has(domain.ItemID(item)) {
			rest = append(rest, item)
		}
	}
	slices.Sort(rest)
	for _, item := range rest {
		goals.Set(domain.ItemID(item), c.Goals[item])
	}
	return domain.Seed{Goals: goals, SalesGoal: c.Sales.Goal}
}

// Logging returns the logger configuration.
func (c Config) Logging() logging.Config {
	return logging.Config{Level: c.Log.Level, Format: c.Log.Format}
}

// ─── Week Rule ──────────────────────────────────────────────────────────────

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "dimanche": time.Sunday,
	"monday": time.Monday, "lundi": time.Monday,
	"tuesday": time.Tuesday, "mardi": time.Tuesday,
	"wednesday": time.Wednesday, "mercredi": time.Wednesday,
	"thursday": time.Thursday, "jeudi": time.Thursday,
	"friday": time.Friday, "vendredi": time.Friday,
	"saturday": time.Saturday, "samedi": time.Saturday,
}

// Rule converts the [week] section into a boundary rule.
func (w WeekConfig) Rule() (domain.WeekRule, error) {
	rule := domain.DefaultWeekRule()

	if w.Timezone != "" {
		loc, err := time.LoadLocation(w.Timezone)
		if err != nil {
			return rule, fmt.Errorf("week.timezone %q: %w", w.Timezone, err)
		}
		rule.Location = loc
	}

	if w.Weekday != "" {
		day, err := parseWeekday(w.Weekday)
		if err != nil {
			return rule, err
		}
		rule.Weekday = day
	}

	if w.Start != "" {
		t, err := time.Parse("15:04", w.Start)
		if err != nil {
			return rule, fmt.Errorf("week.start %q: want HH:MM", w.Start)
		}
		rule.Hour, rule.Minute = t.Hour(), t.Minute()
	}
	return rule, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if day, ok := weekdays[s]; ok {
		return day, nil
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n <= 6 {
		return time.Weekday(n), nil
	}
	return 0, fmt.Errorf("week.weekday %q: want a day name or 0-6 (0 = Sunday)", s)
}
