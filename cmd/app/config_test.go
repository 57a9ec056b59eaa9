package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Agrid-Dev/housesim/internal/device"
	"github.com/Agrid-Dev/housesim/internal/simulation"
	"github.com/Agrid-Dev/housesim/internal/status"
	"github.com/Agrid-Dev/housesim/internal/testutil/housetest"
)

func TestEnvKeyTransform_TopLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"INSTANCE", "instance"},
		{"CONTROLLER", "controller"},
		{"ADDR", "addr"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		got := envKeyTransform(tt.in)
		if got != tt.want {
			t.Fatalf("envKeyTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEnvKeyTransform_Controllers(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CONTROLLERS_HTTP_ADDR", "controllers.http.addr"},
		{"CONTROLLERS_MQTT_PUBLISH_INTERVAL", "controllers.mqtt.publish_interval"},
		{"CONTROLLERS_MODBUS_UNIT_ID", "controllers.modbus.unit_id"},
		{"CONTROLLERS_KAFKA_BROKERS", "controllers.kafka.brokers"},
		{"CONTROLLERS_HTTP", "controllers_http"},   // not enough parts -> fallback
		{"CONTROLLERS__ADDR", "controllers..addr"}, // edge case
		{"controllers_HTTP_addr", "controllers.http.addr"},
		{"CONTROLLERS_MQTT_RETAIN_SNAPSHOT", "controllers.mqtt.retain_snapshot"},
	}

	for _, tt := range tests {
		got := envKeyTransform(tt.in)
		if got != tt.want {
			t.Fatalf("envKeyTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEnvKeyTransform_Sections(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SIMULATION_WARMUP_YEARS", "simulation.warmup_years"},
		{"SIMULATION_DH_DEAD_BAND", "simulation.dh_dead_band"},
		{"CONVERGENCE_ATTIC_TEMPERATURE_TOLERANCE", "convergence.attic_temperature_tolerance"},
		{"OUTPUT_ALL_YEARS", "output.all_years"},
		{"PATHS_WEATHER", "paths.weather"},
		{"LOG_LEVEL", "log.level"},
		{"SIMULATION", "simulation"}, // not enough parts -> passthrough
		{"WEATHER_FILE", "weather_file"},
	}

	for _, tt := range tests {
		got := envKeyTransform(tt.in)
		if got != tt.want {
			t.Fatalf("envKeyTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadConfig_DefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Params() != simulation.DefaultParams() {
		t.Fatalf("expected default params, got %+v", cfg.Params())
	}
	if !cfg.Controllers.HTTP.Enabled || cfg.Controllers.HTTP.Addr != ":8080" {
		t.Fatalf("expected http enabled on :8080, got %+v", cfg.Controllers.HTTP)
	}
	if cfg.Output.Files().Minute != ".min" || cfg.Controllers.MODBUS.UnitID != 1 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	p := writeFile(t, "config.yaml", `
instance: lab
paths:
  weather: /data/weather
batch:
  - id: ranch
    building: ranch.yaml
  - building: twostory.in
    fan_schedule: fans.txt
simulation:
  warmup_years: 1
convergence:
  thermal_max_iterations: 20
output:
  all_years: true
  moisture_file: ""
controllers:
  mqtt:
    enabled: true
    publish_interval: 5s
log:
  level: debug
`)
	cfg, err := LoadConfig(p)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Instance != "lab" || cfg.Paths.Weather != "/data/weather" || cfg.Paths.Output != "out" {
		t.Fatalf("unexpected paths %+v", cfg.Paths)
	}
	want := []device.Spec{{ID: "ranch", Building: "ranch.yaml"}, {Building: "twostory.in", FanSchedule: "fans.txt"}}
	if len(cfg.Batch) != 2 || cfg.Batch[0] != want[0] || cfg.Batch[1] != want[1] {
		t.Fatalf("unexpected batch %+v", cfg.Batch)
	}
	p2 := cfg.Params()
	if p2.WarmupYears != 1 || !p2.AllYears || p2.Convergence.ThermalMaxIterations != 20 {
		t.Fatalf("unexpected params %+v", p2)
	}
	if p2.Convergence.AtticTempTolerance != 0.2 || p2.AtticMCInit != 0.15 {
		t.Fatalf("defaults lost under partial sections: %+v", p2)
	}
	if cfg.Output.Files().Moisture != "" || cfg.Output.Files().Minute != ".min" {
		t.Fatalf("unexpected files %+v", cfg.Output)
	}
	if !cfg.Controllers.MQTT.Enabled || cfg.Controllers.MQTT.PublishInterval != 5*time.Second {
		t.Fatalf("unexpected mqtt %+v", cfg.Controllers.MQTT)
	}
}

func TestLoadConfig_JSON(t *testing.T) {
	p := writeFile(t, "config.json", `{"simulation":{"control_interval":15},"controllers":{"http":{"addr":":9090"}}}`)
	cfg, err := LoadConfig(p)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Params().ControlInterval != 15 || cfg.Controllers.HTTP.Addr != ":9090" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadConfig_TOML(t *testing.T) {
	p := writeFile(t, "config.toml", `
instance = "toml"

[simulation]
dh_dead_band = 3.5

[controllers.kafka]
enabled = true
brokers = ["localhost:9092"]
topic = "minutes"

[[batch]]
id = "a"
building = "a.yaml"
`)
	cfg, err := LoadConfig(p)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Instance != "toml" || cfg.Params().DehumDeadBand != 3.5 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	k := cfg.Controllers.Kafka
	if !k.Enabled || len(k.Brokers) != 1 || k.Topic != "minutes" {
		t.Fatalf("unexpected kafka %+v", k)
	}
	if len(cfg.Batch) != 1 || cfg.Batch[0].Building != "a.yaml" {
		t.Fatalf("unexpected batch %+v", cfg.Batch)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("HOUSESIM_SIMULATION_WARMUP_YEARS", "2")
	t.Setenv("HOUSESIM_CONTROLLERS_HTTP_ADDR", ":7070")
	t.Setenv("HOUSESIM_LOG_LEVEL", "warn")
	p := writeFile(t, "config.yaml", "simulation:\n  warmup_years: 1\n")

	cfg, err := LoadConfig(p)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Params().WarmupYears != 2 {
		t.Fatalf("env must win over the file, got %d", cfg.Params().WarmupYears)
	}
	if cfg.Controllers.HTTP.Addr != ":7070" || cfg.Log.Level != "warn" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := LoadConfig(writeFile(t, "config.ini", "x=1")); err == nil {
		t.Fatal("expected unsupported extension error")
	}
	if _, err := LoadConfig(writeFile(t, "config.yaml", "log:\n  level: loud\n")); err == nil {
		t.Fatal("expected bad log level error")
	}
	_, err := LoadConfig(writeFile(t, "config.yaml", "simulation:\n  control_interval: 7\n"))
	if !errors.Is(err, simulation.ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams, got %v", err)
	}
	_, err = LoadConfig(writeFile(t, "config.yaml", "batch:\n  - id: x\n"))
	if !errors.Is(err, device.ErrNoBuilding) {
		t.Fatalf("expected ErrNoBuilding, got %v", err)
	}
}

func TestControllers(t *testing.T) {
	cfg := defaultConfig()
	cfg.Controllers.MODBUS.Enabled = true
	runners, err := Controllers(cfg, status.New())
	if err != nil {
		t.Fatal(err)
	}
	if len(runners) != 2 {
		t.Fatalf("expected http and modbus, got %d", len(runners))
	}

	cfg.Controllers.MODBUS.UnitID = 0
	if _, err := Controllers(cfg, status.New()); err == nil {
		t.Fatal("expected modbus validation error")
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBatchSkipsBrokenHouses(t *testing.T) {
	cfg := defaultConfig()
	cfg.Paths.Input = t.TempDir()
	cfg.Batch = []device.Spec{{ID: "a", Building: "missing.yaml"}, {ID: "b", Building: "gone.in"}}
	tr := status.New()

	b, err := NewBatch(cfg, tr, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Run(context.Background()); !errors.Is(err, ErrBatchFailed) {
		t.Fatalf("expected ErrBatchFailed, got %v", err)
	}
	s := tr.Get()
	if s.Failed != 2 || s.Done != 0 || s.LastErr == "" {
		t.Fatalf("unexpected tracker state %+v", s)
	}
}

func TestBatchWiresHouseOutputs(t *testing.T) {
	dir := t.TempDir()
	housetest.WriteInputs(t, dir)
	cfg := defaultConfig()
	cfg.Paths = device.Paths{Weather: dir, Schedule: dir, Output: filepath.Join(dir, "out")}
	cfg.Batch = []device.Spec{{ID: "ranch", Building: housetest.HousePath()}}

	tr := status.New()
	tr.SetPaused(true)
	b, err := NewBatch(cfg, tr, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := b.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}

	s := tr.Get()
	if s.House != "ranch" || s.RunID == "" || s.Running {
		t.Fatalf("unexpected tracker state %+v", s)
	}
	for _, name := range []string{"ranch.min", "ranch.moi", "ranch.fil", "ranch.sum"} {
		if _, err := os.Stat(filepath.Join(dir, "out", name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
}
