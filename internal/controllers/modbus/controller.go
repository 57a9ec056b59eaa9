package modbusctrl

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	mbserver "github.com/tbrandon/mbserver"

	"github.com/Agrid-Dev/housesim/internal/equipment"
	"github.com/Agrid-Dev/housesim/internal/ports"
	"github.com/Agrid-Dev/housesim/internal/psychro"
	"github.com/Agrid-Dev/housesim/internal/status"
)

// Input register map.
const (
	RegTempOut = iota
	RegTempHouse
	RegTempAttic
	RegRHHouse
	RegRelExp
	RegRelDose
	RegModeCode
	RegMinuteHigh
	RegMinuteLow
	RegProgress
	inputRegisterCount
)

// Coil map. Only CoilPaused is writable.
const (
	CoilRivecOn = iota
	CoilAirHandlerOn
	CoilPaused
	coilCount
)

const (
	TemperatureScale = 100
	HumidityScale    = 100
	ExposureScale    = 1000
	ProgressScale    = 10000
)

// Config for the Modbus controller.
type Config struct {
	Instance string
	Addr     string
	UnitID   byte // UnitID (Modbus slave/unit ID). Use an integer 1..247.
}

type Controller struct {
	svc ports.SimulationService
	cfg Config

	serv *mbserver.Server
}

func New(svc ports.SimulationService, cfg Config) (*Controller, error) {
	if cfg.UnitID == 0 {
		return nil, errors.New("modbus: UnitID is required (non-zero)")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:1502"
	}
	return &Controller{svc: svc, cfg: cfg}, nil
}

// Run starts the Modbus server. Reads are answered from the live simulation
// snapshot and the pause coil is applied immediately. It blocks until ctx is
// canceled.
func (c *Controller) Run(ctx context.Context) error {
	serv := mbserver.NewServer()
	c.serv = serv

	// Register handlers BEFORE starting the TCP listener to avoid races inside mbserver
	// between handler registration and the server's goroutines.
	serv.RegisterFunctionHandler(1, c.readCoils)
	serv.RegisterFunctionHandler(4, c.readInputRegisters)
	serv.RegisterFunctionHandler(5, c.writeSingleCoil)

	if err := serv.ListenTCP(c.cfg.Addr); err != nil {
		return fmt.Errorf("mbserver listen tcp %s: %w", c.cfg.Addr, err)
	}

	<-ctx.Done()
	serv.Close()
	return ctx.Err()
}

// Read Coils (function 1).
func (c *Controller) readCoils(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	start, qty, ex := addressRange(frame.GetData(), 2000)
	if ex != nil {
		return []byte{}, ex
	}
	if start+qty > coilCount {
		return []byte{}, &mbserver.IllegalDataAddress
	}
	coils := coilValues(c.svc.Get())
	var packed byte
	for i := range qty {
		if coils[start+i] {
			packed |= 1 << i
		}
	}
	return []byte{1, packed}, &mbserver.Success
}

// Read Input Registers (function 4).
func (c *Controller) readInputRegisters(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	start, qty, ex := addressRange(frame.GetData(), 125)
	if ex != nil {
		return []byte{}, ex
	}
	if start+qty > inputRegisterCount {
		return []byte{}, &mbserver.IllegalDataAddress
	}
	regs := inputRegisters(c.svc.Get())
	byteCount := qty * 2
	resp := make([]byte, 1+byteCount)
	resp[0] = byte(byteCount)
	for i := range qty {
		binary.BigEndian.PutUint16(resp[1+i*2:3+i*2], regs[start+i])
	}
	return resp, &mbserver.Success
}

// Write Single Coil (function 5) - paused
func (c *Controller) writeSingleCoil(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	addr := binary.BigEndian.Uint16(data[0:2])
	value := binary.BigEndian.Uint16(data[2:4])

	if addr != CoilPaused {
		return []byte{}, &mbserver.IllegalDataAddress
	}

	var paused bool
	switch value {
	case 0x0000:
		paused = false
	case 0xFF00:
		paused = true
	default:
		return []byte{}, &mbserver.IllegalDataValue
	}

	c.svc.SetPaused(paused)

	// echo request (address + value)
	resp := make([]byte, 4)
	copy(resp, data[0:4])
	return resp, &mbserver.Success
}

func addressRange(data []byte, maxQty int) (start, qty int, ex *mbserver.Exception) {
	if len(data) < 4 {
		return 0, 0, &mbserver.IllegalDataValue
	}
	start = int(binary.BigEndian.Uint16(data[0:2]))
	qty = int(binary.BigEndian.Uint16(data[2:4]))
	if qty == 0 || qty > maxQty {
		return 0, 0, &mbserver.IllegalDataValue
	}
	return start, qty, nil
}

func coilValues(s status.Snapshot) [coilCount]bool {
	var out [coilCount]bool
	out[CoilRivecOn] = s.Minute.RivecOn
	out[CoilAirHandlerOn] = s.Minute.Mode != equipment.ModeOff
	out[CoilPaused] = s.Paused
	return out
}

func inputRegisters(s status.Snapshot) [inputRegisterCount]uint16 {
	m := s.Minute
	minute := uint32(s.Clock.MinuteOfYear())
	var out [inputRegisterCount]uint16
	out[RegTempOut] = encodeTemp(m.TempOut)
	out[RegTempHouse] = encodeTemp(m.TempHouse)
	out[RegTempAttic] = encodeTemp(m.TempAttic)
	out[RegRHHouse] = encodeScaled(m.RHHouse, HumidityScale)
	out[RegRelExp] = encodeScaled(m.RelExp, ExposureScale)
	out[RegRelDose] = encodeScaled(m.RelDose, ExposureScale)
	out[RegModeCode] = uint16(m.ModeCode)
	out[RegMinuteHigh] = uint16(minute >> 16)
	out[RegMinuteLow] = uint16(minute)
	out[RegProgress] = encodeScaled(s.Progress, ProgressScale)
	return out
}

// encodeTemp converts kelvin to signed hundredths of a degree Celsius.
func encodeTemp(k float64) uint16 {
	r := min(max(int(math.Round((k-psychro.CToK)*TemperatureScale)), math.MinInt16), math.MaxInt16)
	return uint16(int16(r))
}

func decodeTemp(u uint16) float64 {
	return float64(int16(u))/TemperatureScale + psychro.CToK
}

// encodeScaled saturates non-negative quantities into an unsigned register.
func encodeScaled(v float64, scale int) uint16 {
	r := min(max(int(math.Round(v*float64(scale))), 0), math.MaxUint16)
	return uint16(r)
}
