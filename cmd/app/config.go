package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/Agrid-Dev/housesim/internal/device"
	"github.com/Agrid-Dev/housesim/internal/simulation"
	"github.com/Agrid-Dev/housesim/internal/sink"
)

const envPrefix = "HOUSESIM_"

type Config struct {
	Instance    string                 `koanf:"instance"`
	Paths       device.Paths           `koanf:"paths"`
	Batch       []device.Spec          `koanf:"batch"`
	Simulation  simulation.Params      `koanf:"simulation"`
	Convergence simulation.Convergence `koanf:"convergence"`
	Output      OutputConfig           `koanf:"output"`
	Controllers struct {
		HTTP   HTTPConfig       `koanf:"http"`
		MQTT   MQTTConfig       `koanf:"mqtt"`
		MODBUS Modbusconfig     `koanf:"modbus"`
		Kafka  sink.KafkaConfig `koanf:"kafka"`
	} `koanf:"controllers"`
	Log LogConfig `koanf:"log"`
}

type OutputConfig struct {
	MinuteFile   string `koanf:"minute_file"`
	MoistureFile string `koanf:"moisture_file"`
	FilterFile   string `koanf:"filter_file"`
	SummaryFile  string `koanf:"summary_file"`
	AllYears     bool   `koanf:"all_years"`
}

func (o OutputConfig) Files() sink.Files {
	return sink.Files{Minute: o.MinuteFile, Moisture: o.MoistureFile, Filter: o.FilterFile, Summary: o.SummaryFile}
}

type HTTPConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Addr      string `koanf:"addr"`
	AccessLog bool   `koanf:"access_log"`
}

type MQTTConfig struct {
	Enabled         bool          `koanf:"enabled"`
	BrokerURL       string        `koanf:"broker_url"`
	ClientID        string        `koanf:"client_id"`
	BaseTopic       string        `koanf:"base_topic"`
	QoS             byte          `koanf:"qos"`
	RetainSnapshot  bool          `koanf:"retain_snapshot"`
	PublishInterval time.Duration `koanf:"publish_interval"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
}

type Modbusconfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
	UnitID  byte   `koanf:"unit_id"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

func defaultConfig() Config {
	var cfg Config
	cfg.Instance = "default"
	cfg.Paths = device.Paths{Input: ".", Output: "out", Weather: ".", Schedule: "."}
	cfg.Simulation = simulation.DefaultParams()
	cfg.Convergence = cfg.Simulation.Convergence
	files := sink.DefaultFiles()
	cfg.Output = OutputConfig{
		MinuteFile:   files.Minute,
		MoistureFile: files.Moisture,
		FilterFile:   files.Filter,
		SummaryFile:  files.Summary,
	}
	cfg.Controllers.HTTP = HTTPConfig{Enabled: true, Addr: ":8080", AccessLog: true}
	cfg.Controllers.MQTT.PublishInterval = 1 * time.Second
	cfg.Controllers.MODBUS = Modbusconfig{Addr: "127.0.0.1:1502", UnitID: 1}
	cfg.Controllers.Kafka.Topic = "housesim.records"
	cfg.Log.Level = "info"
	return cfg
}

// LoadConfig layers struct defaults, the config file and HOUSESIM_*
// environment variables. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			parser, err := parserFor(path)
			if err != nil {
				return Config{}, err
			}
			if err := k.Load(file.Provider(path), parser); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return envKeyTransform(strings.TrimPrefix(key, envPrefix)), value
		},
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	case ".toml":
		return tomlParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported config extension %q", ext)
	}
}

// Params are the simulation parameters with the convergence and output
// sections folded in.
func (c Config) Params() simulation.Params {
	p := c.Simulation
	p.Convergence = c.Convergence
	p.AllYears = c.Output.AllYears
	return p
}

func (c Config) Validate() error {
	p := c.Params()
	if err := p.Validate(); err != nil {
		return err
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	for i, s := range c.Batch {
		if s.Building == "" {
			return fmt.Errorf("batch[%d]: %w", i, device.ErrNoBuilding)
		}
	}
	if c.Controllers.Kafka.Enabled {
		if err := c.Controllers.Kafka.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Logger builds the process logger at the configured level.
func (c Config) Logger() *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}

var envSections = map[string]bool{
	"simulation":  true,
	"convergence": true,
	"output":      true,
	"paths":       true,
	"log":         true,
}

// envKeyTransform maps an environment key without its prefix onto a koanf
// path. CONTROLLERS_<NAME>_<FIELD> and <SECTION>_<FIELD> become dotted;
// anything else is only lower-cased.
func envKeyTransform(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	if k == "" {
		return ""
	}
	parts := strings.Split(k, "_")
	if parts[0] == "controllers" {
		if len(parts) < 3 {
			return k
		}
		return "controllers." + parts[1] + "." + strings.Join(parts[2:], "_")
	}
	if envSections[parts[0]] && len(parts) >= 2 {
		return parts[0] + "." + strings.Join(parts[1:], "_")
	}
	return k
}
