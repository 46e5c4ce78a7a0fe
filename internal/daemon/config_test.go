package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "time/tzdata"

	"github.com/shopspring/decimal"

	"github.com/quotabot/quotabot/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8420 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8420)
	}
	if cfg.Storage.Driver != DriverJSON {
		t.Errorf("Storage.Driver = %q, want %q", cfg.Storage.Driver, DriverJSON)
	}
	if cfg.Week.Timezone != "Europe/Paris" {
		t.Errorf("Week.Timezone = %q, want %q", cfg.Week.Timezone, "Europe/Paris")
	}
	if cfg.Display.BarWidth != 10 {
		t.Errorf("Display.BarWidth = %d, want 10", cfg.Display.BarWidth)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}

	seed := cfg.Seed()
	if got := seed.Goals.Keys(); len(got) != 4 || got[0] != "menu" {
		t.Errorf("Seed().Goals = %v, want built-in goals", got)
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.API.Port != DefaultConfig().API.Port {
		t.Errorf("API.Port = %d, want default", cfg.API.Port)
	}
}

func TestLoadConfig_Partial(t *testing.T) {
	path := writeConfig(t, `
[api]
port = 9000

[storage]
driver = "sqlite"
path = "/var/lib/quotabot"

[week]
weekday = "lundi"
start = "06:30"

[goals]
frites = 20
menu = 40
glace = 0

[sales]
goal = 1500.5
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.API.Port != 9000 || cfg.API.Host != "127.0.0.1" {
		t.Errorf("API = %+v, want port override with default host", cfg.API)
	}
	if cfg.StoragePath() != "/var/lib/quotabot" {
		t.Errorf("StoragePath() = %q", cfg.StoragePath())
	}
	if !cfg.Sales.Goal.Equal(decimal.RequireFromString("1500.5")) {
		t.Errorf("Sales.Goal = %s, want 1500.5", cfg.Sales.Goal)
	}

	seed := cfg.Seed()
	keys := seed.Goals.Keys()
	want := []domain.ItemID{"frites", "menu", "glace"}
	if len(keys) != len(want) {
		t.Fatalf("Seed().Goals = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Seed().Goals[%d] = %q, want %q (file order)", i, keys[i], want[i])
		}
	}

	rule, err := cfg.Week.Rule()
	if err != nil {
		t.Fatal(err)
	}
	if rule.Weekday != time.Monday || rule.Hour != 6 || rule.Minute != 30 {
		t.Errorf("Rule() = %+v, want Monday 06:30", rule)
	}
	if rule.Location.String() != "Europe/Paris" {
		t.Errorf("Rule().Location = %v, want default zone", rule.Location)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad driver", "[storage]\ndriver = \"redis\"\n"},
		{"bad zone", "[week]\ntimezone = \"Mars/Olympus\"\n"},
		{"bad weekday", "[week]\nweekday = \"someday\"\n"},
		{"bad start", "[week]\nstart = \"25:99\"\n"},
		{"negative goal", "[goals]\nmenu = -3\n"},
		{"negative sales goal", "[sales]\ngoal = -10\n"},
		{"syntax", "[api\nport = 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tt.body)); err == nil {
				t.Errorf("LoadConfig(%q) should fail", tt.body)
			}
		})
	}
}

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		input string
		want  time.Weekday
	}{
		{"sunday", time.Sunday},
		{"Dimanche", time.Sunday},
		{" friday ", time.Friday},
		{"3", time.Wednesday},
		{"0", time.Sunday},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseWeekday(tt.input)
			if err != nil || got != tt.want {
				t.Errorf("parseWeekday(%q) = %v, %v; want %v", tt.input, got, err, tt.want)
			}
		})
	}
	if _, err := parseWeekday("7"); err == nil {
		t.Error("parseWeekday(7) should fail")
	}
}

func TestStoragePath_Defaults(t *testing.T) {
	t.Setenv("QUOTABOT_HOME", "/srv/qb")

	cfg := DefaultConfig()
	if got := cfg.StoragePath(); got != filepath.Join("/srv/qb", "quotas.json") {
		t.Errorf("json StoragePath() = %q", got)
	}
	cfg.Storage.Driver = DriverSQLite
	if got := cfg.StoragePath(); got != "/srv/qb" {
		t.Errorf("sqlite StoragePath() = %q", got)
	}
	if got := ConfigPath(); got != filepath.Join("/srv/qb", "config.toml") {
		t.Errorf("ConfigPath() = %q", got)
	}
}

func TestSetAddr(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.SetAddr("0.0.0.0:9000"); err != nil {
		t.Fatalf("SetAddr() error = %v", err)
	}
	if got := cfg.Addr(); got != "0.0.0.0:9000" {
		t.Errorf("Addr() = %q, want %q", got, "0.0.0.0:9000")
	}
	for _, bad := range []string{"nohost", "host:port", "host:70000"} {
		if err := cfg.SetAddr(bad); err == nil {
			t.Errorf("SetAddr(%q) should fail", bad)
		}
	}
}
