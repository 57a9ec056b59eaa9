package app

import (
	"context"
	"io"
	"os"

	httpctrl "github.com/Agrid-Dev/housesim/internal/controllers/http"
	modbusctrl "github.com/Agrid-Dev/housesim/internal/controllers/modbus"
	mqttctrl "github.com/Agrid-Dev/housesim/internal/controllers/mqtt"
	"github.com/Agrid-Dev/housesim/internal/ports"
)

type Runner interface {
	Run(ctx context.Context) error
}

// Controllers builds the enabled live status surfaces.
func Controllers(cfg Config, svc ports.SimulationService) ([]Runner, error) {
	var out []Runner
	c := cfg.Controllers

	if c.HTTP.Enabled {
		var accessLog io.Writer
		if c.HTTP.AccessLog {
			accessLog = os.Stdout
		}
		out = append(out, httpctrl.New(svc, c.HTTP.Addr, accessLog))
	}
	if c.MQTT.Enabled {
		m, err := mqttctrl.New(svc, mqttctrl.Config{
			Instance:        cfg.Instance,
			BrokerURL:       c.MQTT.BrokerURL,
			ClientID:        c.MQTT.ClientID,
			BaseTopic:       c.MQTT.BaseTopic,
			QoS:             c.MQTT.QoS,
			RetainSnapshot:  c.MQTT.RetainSnapshot,
			PublishInterval: c.MQTT.PublishInterval,
			Username:        c.MQTT.Username,
			Password:        c.MQTT.Password,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if c.MODBUS.Enabled {
		m, err := modbusctrl.New(svc, modbusctrl.Config{
			Instance: cfg.Instance,
			Addr:     c.MODBUS.Addr,
			UnitID:   c.MODBUS.UnitID,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
