package sink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Agrid-Dev/housesim/internal/moisture"
	"github.com/Agrid-Dev/housesim/internal/simulation"
)

// Files names the per-house logs, as suffixes appended to the house id.
// An empty suffix disables that log.
type Files struct {
	Minute   string
	Moisture string
	Filter   string
	Summary  string
}

func DefaultFiles() Files {
	return Files{
		Minute:   ".min",
		Moisture: ".moi",
		Filter:   ".fil",
		Summary:  ".sum",
	}
}

type column[T any] struct {
	name  string
	value func(T) string
}

func ff(v float64) string { return strconv.FormatFloat(v, 'g', 7, 64) }

func fb(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

var minuteColumns = []column[*simulation.MinuteRecord]{
	{"year", func(r *simulation.MinuteRecord) string { return strconv.Itoa(r.Year) }},
	{"day", func(r *simulation.MinuteRecord) string { return strconv.Itoa(r.Day) }},
	{"hour", func(r *simulation.MinuteRecord) string { return strconv.Itoa(r.Hour) }},
	{"minute", func(r *simulation.MinuteRecord) string { return strconv.Itoa(r.Minute) }},
	{"windSpeed", func(r *simulation.MinuteRecord) string { return ff(r.WindSpeed) }},
	{"tempOut", func(r *simulation.MinuteRecord) string { return ff(r.TempOut) }},
	{"tempHouse", func(r *simulation.MinuteRecord) string { return ff(r.TempHouse) }},
	{"setpoint", func(r *simulation.MinuteRecord) string { return ff(r.Setpoint) }},
	{"tempAttic", func(r *simulation.MinuteRecord) string { return ff(r.TempAttic) }},
	{"tempSupply", func(r *simulation.MinuteRecord) string { return ff(r.TempSupply) }},
	{"tempReturn", func(r *simulation.MinuteRecord) string { return ff(r.TempReturn) }},
	{"AHflag", func(r *simulation.MinuteRecord) string { return strconv.Itoa(r.ModeCode) }},
	{"AHpower", func(r *simulation.MinuteRecord) string { return ff(r.AHPower) }},
	{"compressPower", func(r *simulation.MinuteRecord) string { return ff(r.Compressor) }},
	{"mechVentPower", func(r *simulation.MinuteRecord) string { return ff(r.MechVent) }},
	{"gasTherm", func(r *simulation.MinuteRecord) string { return ff(r.Gas) }},
	{"dehumidifierPower", func(r *simulation.MinuteRecord) string { return ff(r.Dehumidifer) }},
	{"SHR", func(r *simulation.MinuteRecord) string { return ff(r.SHR) }},
	{"Mcoil", func(r *simulation.MinuteRecord) string { return ff(r.CoilWater) }},
	{"Pint", func(r *simulation.MinuteRecord) string { return ff(r.HousePressure) }},
	{"Patt", func(r *simulation.MinuteRecord) string { return ff(r.AtticPressure) }},
	{"houseACH", func(r *simulation.MinuteRecord) string { return ff(r.HouseACH) }},
	{"flueACH", func(r *simulation.MinuteRecord) string { return ff(r.FlueACH) }},
	{"ventSum", func(r *simulation.MinuteRecord) string { return ff(r.VentSum) }},
	{"nonRivecVentSum", func(r *simulation.MinuteRecord) string { return ff(r.NonRivecSum) }},
	{"infiltrationACH", func(r *simulation.MinuteRecord) string { return ff(r.Infiltration) }},
	{"totalACH", func(r *simulation.MinuteRecord) string { return ff(r.TotalACH) }},
	{"rivecOn", func(r *simulation.MinuteRecord) string { return fb(r.RivecOn) }},
	{"relExp", func(r *simulation.MinuteRecord) string { return ff(r.RelExp) }},
	{"relDose", func(r *simulation.MinuteRecord) string { return ff(r.RelDose) }},
	{"occupied", func(r *simulation.MinuteRecord) string { return fb(r.Occupied) }},
	{"economizer", func(r *simulation.MinuteRecord) string { return fb(r.Economizer) }},
	{"HROut", func(r *simulation.MinuteRecord) string { return ff(r.HROut) }},
	{"HRattic", func(r *simulation.MinuteRecord) string { return ff(r.HRAttic) }},
	{"HRreturn", func(r *simulation.MinuteRecord) string { return ff(r.HRReturn) }},
	{"HRsupply", func(r *simulation.MinuteRecord) string { return ff(r.HRSupply) }},
	{"HRhouse", func(r *simulation.MinuteRecord) string { return ff(r.HRHouse) }},
	{"RHhouse", func(r *simulation.MinuteRecord) string { return ff(r.RHHouse) }},
	{"RHattic", func(r *simulation.MinuteRecord) string { return ff(r.RHAttic) }},
	{"HumidityIndex", func(r *simulation.MinuteRecord) string { return ff(r.HumidityIndex) }},
	{"DHcondensate", func(r *simulation.MinuteRecord) string { return ff(r.DHCondensate) }},
	{"coilCondensate", func(r *simulation.MinuteRecord) string { return ff(r.CoilCondensate) }},
	{"pollutant", func(r *simulation.MinuteRecord) string { return ff(r.Pollutant) }},
	{"mHouseIn", func(r *simulation.MinuteRecord) string { return ff(r.HouseIn) }},
	{"mHouseOut", func(r *simulation.MinuteRecord) string { return ff(r.HouseOut) }},
	{"mCeiling", func(r *simulation.MinuteRecord) string { return ff(r.Ceiling) }},
	{"mAtticIn", func(r *simulation.MinuteRecord) string { return ff(r.AtticIn) }},
	{"mAtticOut", func(r *simulation.MinuteRecord) string { return ff(r.AtticOut) }},
	{"mSupReg", func(r *simulation.MinuteRecord) string { return ff(r.SupplyReg) }},
	{"mRetReg", func(r *simulation.MinuteRecord) string { return ff(r.ReturnReg) }},
}

var filterColumns = []column[simulation.FilterRecord]{
	{"year", func(r simulation.FilterRecord) string { return strconv.Itoa(r.Year) }},
	{"day", func(r simulation.FilterRecord) string { return strconv.Itoa(r.Day) }},
	{"massFilter", func(r simulation.FilterRecord) string { return ff(r.Mass) }},
	{"qAH_heat", func(r simulation.FilterRecord) string { return ff(r.HeatingFlow) }},
	{"qAH_cool", func(r simulation.FilterRecord) string { return ff(r.CoolingFlow) }},
	{"fanPower_heating", func(r simulation.FilterRecord) string { return ff(r.FanPowerHeating) }},
	{"fanPower_cooling", func(r simulation.FilterRecord) string { return ff(r.FanPowerCooling) }},
	{"retLF", func(r simulation.FilterRecord) string { return ff(r.ReturnLeak) }},
	{"filterChanges", func(r simulation.FilterRecord) string { return strconv.Itoa(r.Changes) }},
}

var summaryColumns = []column[simulation.AnnualSummary]{
	{"runID", func(s simulation.AnnualSummary) string { return s.RunID }},
	{"year", func(s simulation.AnnualSummary) string { return strconv.Itoa(s.Year) }},
	{"meanOutsideTemp", func(s simulation.AnnualSummary) string { return ff(s.TempOut) }},
	{"meanAtticTemp", func(s simulation.AnnualSummary) string { return ff(s.TempAttic) }},
	{"meanHouseTemp", func(s simulation.AnnualSummary) string { return ff(s.TempHouse) }},
	{"meanHouseACH", func(s simulation.AnnualSummary) string { return ff(s.HouseACH) }},
	{"meanFlueACH", func(s simulation.AnnualSummary) string { return ff(s.FlueACH) }},
	{"meanRelExp", func(s simulation.AnnualSummary) string { return ff(s.RelExp) }},
	{"meanRelDose", func(s simulation.AnnualSummary) string { return ff(s.RelDose) }},
	{"AH_kWh", func(s simulation.AnnualSummary) string { return ff(s.AirHandlerKWh) }},
	{"compressor_kWh", func(s simulation.AnnualSummary) string { return ff(s.CompressorKWh) }},
	{"mechVent_kWh", func(s simulation.AnnualSummary) string { return ff(s.MechVentKWh) }},
	{"furnace_therms", func(s simulation.AnnualSummary) string { return ff(s.FurnaceTherms) }},
	{"dehumidifier_kWh", func(s simulation.AnnualSummary) string { return ff(s.DehumidifierKWh) }},
	{"total_kWh", func(s simulation.AnnualSummary) string { return ff(s.TotalKWh) }},
	{"occupiedMinutes", func(s simulation.AnnualSummary) string { return strconv.Itoa(s.OccupiedMinutes) }},
	{"rivecMinutes", func(s simulation.AnnualSummary) string { return strconv.Itoa(s.RivecMinutes) }},
	{"RHexcAnnual60", func(s simulation.AnnualSummary) string { return strconv.Itoa(s.RH60Minutes) }},
	{"RHexcAnnual70", func(s simulation.AnnualSummary) string { return strconv.Itoa(s.RH70Minutes) }},
	{"RHfracAnnual60", func(s simulation.AnnualSummary) string { return ff(s.RH60Fraction) }},
	{"RHfracAnnual70", func(s simulation.AnnualSummary) string { return ff(s.RH70Fraction) }},
	{"meanHumidityIndex", func(s simulation.AnnualSummary) string { return ff(s.HumidityIndex) }},
	{"dryAirVentLoad", func(s simulation.AnnualSummary) string { return ff(s.DryAirLoad) }},
	{"moistAirVentLoad", func(s simulation.AnnualSummary) string { return ff(s.MoistAirLoad) }},
	{"DHcondensate", func(s simulation.AnnualSummary) string { return ff(s.DHCondensate) }},
	{"coilCondensate", func(s simulation.AnnualSummary) string { return ff(s.CoilCondensate) }},
	{"filterChanges", func(s simulation.AnnualSummary) string { return strconv.Itoa(s.FilterChanges) }},
	{"moldSheathingSouth", func(s simulation.AnnualSummary) string { return ff(s.Mold[0]) }},
	{"moldSheathingNorth", func(s simulation.AnnualSummary) string { return ff(s.Mold[1]) }},
	{"moldBulkWood", func(s simulation.AnnualSummary) string { return ff(s.Mold[2]) }},
	{"airflowNonConverged", func(s simulation.AnnualSummary) string { return strconv.Itoa(s.AirflowNonConverged) }},
	{"thermalNonConverged", func(s simulation.AnnualSummary) string { return strconv.Itoa(s.ThermalNonConverged) }},
}

func moistureHeader() []string {
	h := []string{"year", "day", "hour", "minute"}
	for i := range moisture.NodeCount {
		n := moisture.Node(i).String()
		h = append(h, n+"_T", n+"_pw", n+"_content", n+"_condensed", n+"_satMin")
	}
	return h
}

// table is a tab-separated writer that emits its header before the first row.
type table struct {
	w      *csv.Writer
	header []string
	wrote  bool
}

func newTable(w io.Writer, header []string) *table {
	if w == nil {
		return nil
	}
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	return &table{w: cw, header: header}
}

func (t *table) row(fields []string) error {
	if t == nil {
		return nil
	}
	if !t.wrote {
		if err := t.w.Write(t.header); err != nil {
			return err
		}
		t.wrote = true
	}
	return t.w.Write(fields)
}

func (t *table) flush() error {
	if t == nil {
		return nil
	}
	t.w.Flush()
	return t.w.Error()
}

func headerOf[T any](cols []column[T]) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.name
	}
	return out
}

func rowOf[T any](cols []column[T], v T) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.value(v)
	}
	return out
}

// TSV writes the tab-separated logs of one house. Any writer may be nil.
type TSV struct {
	minute, moisture, filter, summary *table
	closers                           []io.Closer
}

var _ simulation.Sink = (*TSV)(nil)

func NewTSV(minute, moisture, filter, summary io.Writer) *TSV {
	return &TSV{
		minute:   newTable(minute, headerOf(minuteColumns)),
		moisture: newTable(moisture, moistureHeader()),
		filter:   newTable(filter, headerOf(filterColumns)),
		summary:  newTable(summary, headerOf(summaryColumns)),
	}
}

// OpenTSV creates the enabled log files for house under dir.
func OpenTSV(dir, house string, files Files) (*TSV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}
	var closers []io.Closer
	open := func(suffix string) (io.Writer, error) {
		if suffix == "" {
			return nil, nil
		}
		fh, err := os.Create(filepath.Join(dir, house+suffix))
		if err != nil {
			return nil, fmt.Errorf("create %s log: %w", suffix, err)
		}
		closers = append(closers, fh)
		return fh, nil
	}
	var ws [4]io.Writer
	for i, suffix := range []string{files.Minute, files.Moisture, files.Filter, files.Summary} {
		w, err := open(suffix)
		if err != nil {
			for _, c := range closers {
				_ = c.Close()
			}
			return nil, err
		}
		ws[i] = w
	}
	t := NewTSV(ws[0], ws[1], ws[2], ws[3])
	t.closers = closers
	return t, nil
}

func (t *TSV) Minute(r *simulation.MinuteRecord) error {
	if err := t.minute.row(rowOf(minuteColumns, r)); err != nil {
		return fmt.Errorf("minute log: %w", err)
	}
	if t.moisture == nil {
		return nil
	}
	row := []string{strconv.Itoa(r.Year), strconv.Itoa(r.Day), strconv.Itoa(r.Hour), strconv.Itoa(r.Minute)}
	for _, n := range r.Moisture {
		row = append(row, ff(n.Temp), ff(n.VaporPressure), ff(n.Content), ff(n.Condensed), strconv.Itoa(n.SaturatedMinutes))
	}
	if err := t.moisture.row(row); err != nil {
		return fmt.Errorf("moisture log: %w", err)
	}
	return nil
}

func (t *TSV) Filter(r simulation.FilterRecord) error {
	if err := t.filter.row(rowOf(filterColumns, r)); err != nil {
		return fmt.Errorf("filter log: %w", err)
	}
	return nil
}

func (t *TSV) Summary(s simulation.AnnualSummary) error {
	if err := t.summary.row(rowOf(summaryColumns, s)); err != nil {
		return fmt.Errorf("summary log: %w", err)
	}
	return t.Flush()
}

// Flush pushes buffered rows to the underlying writers.
func (t *TSV) Flush() error {
	return errors.Join(t.minute.flush(), t.moisture.flush(), t.filter.flush(), t.summary.flush())
}

func (t *TSV) Close() error {
	err := t.Flush()
	for _, c := range t.closers {
		err = errors.Join(err, c.Close())
	}
	t.closers = nil
	return err
}
