package mqttctrl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Agrid-Dev/housesim/internal/ports"
	"github.com/Agrid-Dev/housesim/internal/psychro"
	"github.com/Agrid-Dev/housesim/internal/simulation"
	"github.com/Agrid-Dev/housesim/internal/status"
)

type Config struct {
	// Identity
	Instance string

	// MQTT connection
	BrokerURL string
	ClientID  string

	// Topics
	BaseTopic string

	// Behavior
	QoS             byte
	RetainSnapshot  bool
	PublishInterval time.Duration

	Username string
	Password string
}

type Controller struct {
	svc ports.SimulationService
	cfg Config

	client mqtt.Client
}

func New(svc ports.SimulationService, cfg Config) (*Controller, error) {
	// ---- defaults ----

	if cfg.BrokerURL == "" {
		cfg.BrokerURL = "tcp://localhost:1883"
	}

	if cfg.Instance == "" {
		return nil, errors.New("mqtt: Instance is required")
	}
	if cfg.BaseTopic == "" {
		cfg.BaseTopic = "housesim/" + cfg.Instance
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "housesim-" + cfg.Instance
	}
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = 1 * time.Second
	}
	if cfg.QoS > 1 {
		return nil, errors.New("mqtt: QoS must be 0 or 1")
	}
	return &Controller{
		svc: svc,
		cfg: cfg,
	}, nil
}

func (c *Controller) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.BrokerURL).
		SetClientID(c.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	// Subscribe when connected/reconnected.
	opts.OnConnect = func(cl mqtt.Client) {
		topic := c.topic("set/+")
		token := cl.Subscribe(topic, c.cfg.QoS, c.onMessage)
		token.Wait()
		if err := token.Error(); err != nil {
			slog.Warn("mqtt subscribe failed", "topic", topic, "err", err)
		}
	}

	c.client = mqtt.NewClient(opts)
	tok := c.client.Connect()
	tok.Wait()
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	slog.Info("mqtt controller connected", "broker", c.cfg.BrokerURL, "base_topic", c.cfg.BaseTopic)

	// Publish loop: publish snapshot on interval, and only when changed.
	ticker := time.NewTicker(c.cfg.PublishInterval)
	defer ticker.Stop()

	last := c.svc.Get()
	var lastSummary *simulation.AnnualSummary

	// publish immediately once
	c.publishSnapshot(last)

	for {
		select {
		case <-ctx.Done():
			c.client.Disconnect(250)
			return ctx.Err()

		case <-ticker.C:
			cur := c.svc.Get()
			if !reflect.DeepEqual(cur, last) {
				c.publishSnapshot(cur)
				last = cur
			}
			if cur.Summary != nil && !reflect.DeepEqual(cur.Summary, lastSummary) {
				c.publishSummary(*cur.Summary)
				lastSummary = cur.Summary
			}
		}
	}
}

func (c *Controller) publishSnapshot(s status.Snapshot) {
	m := s.Minute
	dto := snapshotDTO{
		House:     s.House,
		RunID:     s.RunID,
		Running:   s.Running,
		Paused:    s.Paused,
		Progress:  s.Progress,
		Day:       s.Clock.Day,
		Hour:      s.Clock.Hour,
		Minute:    s.Clock.Minute,
		TempOut:   m.TempOut - psychro.CToK,
		TempHouse: m.TempHouse - psychro.CToK,
		TempAttic: m.TempAttic - psychro.CToK,
		RHHouse:   m.RHHouse,
		Mode:      m.Mode.String(),
		RivecOn:   m.RivecOn,
		RelExp:    m.RelExp,
		RelDose:   m.RelDose,
	}
	b, _ := json.Marshal(dto)
	c.client.Publish(c.topic("snapshot"), c.cfg.QoS, c.cfg.RetainSnapshot, b)
}

// publishSummary is always retained so late subscribers see the last year.
func (c *Controller) publishSummary(s simulation.AnnualSummary) {
	b, _ := json.Marshal(s)
	c.client.Publish(c.topic("summary"), c.cfg.QoS, true, b)
}

type snapshotDTO struct {
	House     string  `json:"house"`
	RunID     string  `json:"run_id"`
	Running   bool    `json:"running"`
	Paused    bool    `json:"paused"`
	Progress  float64 `json:"progress"`
	Day       int     `json:"day"`
	Hour      int     `json:"hour"`
	Minute    int     `json:"minute"`
	TempOut   float64 `json:"temp_out_c"`
	TempHouse float64 `json:"temp_house_c"`
	TempAttic float64 `json:"temp_attic_c"`
	RHHouse   float64 `json:"rh_house"`
	Mode      string  `json:"ah_mode"`
	RivecOn   bool    `json:"rivec_on"`
	RelExp    float64 `json:"rel_exp"`
	RelDose   float64 `json:"rel_dose"`
}

// Command payload format: {"value": ...}
type valueReq[T any] struct {
	Value *T `json:"value"`
}

func (c *Controller) onMessage(_ mqtt.Client, msg mqtt.Message) {
	// topic format: <base>/set/<field>
	t := msg.Topic()
	prefix := c.cfg.BaseTopic + "/set/"
	if !strings.HasPrefix(t, prefix) {
		return
	}
	field := strings.TrimPrefix(t, prefix)

	switch field {
	case "paused":
		v, err := decodeValueStrict[bool](msg.Payload())
		if err != nil {
			slog.Debug("mqtt command rejected", "topic", t, "err", err)
			return
		}
		c.svc.SetPaused(v)
	}
}

func (c *Controller) topic(suffix string) string {
	return strings.TrimRight(c.cfg.BaseTopic, "/") + "/" + suffix
}

func decodeValueStrict[T any](b []byte) (T, error) {
	var zero T
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var req valueReq[T]
	if err := dec.Decode(&req); err != nil {
		return zero, err
	}
	if req.Value == nil {
		return zero, errors.New("missing field 'value'")
	}
	return *req.Value, nil
}
