package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// SteinmetzMethod is the method tag of the Steinmetz entry in volumetricLosses
const SteinmetzMethod = "steinmetz"

// ErrNoSteinmetzMethod is returned when a material has no "steinmetz" method entry
var ErrNoSteinmetzMethod = errors.New("material has no steinmetz method entry")

// Material is a core material record from the materials database.
//
// Only the name and volumetricLosses.default are decoded. Every other field is
// kept as raw JSON and written back untouched, and a record that was never
// modified marshals to the exact bytes it was decoded from.
type Material struct {
	name   string
	losses *VolumetricLosses
	fields map[string]json.RawMessage
	raw    json.RawMessage
}

// NewMaterial builds a material record with the given volumetricLosses.default entries
func NewMaterial(name string, entries ...LossEntry) Material {
	return Material{
		name:   name,
		losses: &VolumetricLosses{Default: entries},
	}
}

// Name returns the material name
func (m Material) Name() string { return m.name }

// Entries returns the volumetricLosses.default entries
func (m Material) Entries() []LossEntry {
	if m.losses == nil {
		return nil
	}
	return slices.Clone(m.losses.Default)
}

// Measurements returns the first raw measurement list of the record, flattened
func (m Material) Measurements() []MeasurementPoint {
	if m.losses == nil {
		return nil
	}
	for _, entry := range m.losses.Default {
		if records, ok := entry.Measurements(); ok {
			points := make([]MeasurementPoint, 0, len(records))
			for _, r := range records {
				points = append(points, r.Point())
			}
			return points
		}
	}
	return nil
}

// SteinmetzMethod returns the "steinmetz" method entry of the record
func (m Material) SteinmetzMethod() (MethodEntry, bool) {
	if m.losses == nil {
		return MethodEntry{}, false
	}
	for _, entry := range m.losses.Default {
		if method, ok := entry.Method(); ok && method.Name == SteinmetzMethod {
			return method, true
		}
	}
	return MethodEntry{}, false
}

// WithSteinmetzRanges returns a copy of the material whose "steinmetz" entry
// carries the given ranges. The receiver is not modified.
func (m Material) WithSteinmetzRanges(ranges []CoefficientSet) (Material, error) {
	if m.losses == nil {
		return m, fmt.Errorf("%s: %w", m.name, ErrNoSteinmetzMethod)
	}
	index := -1
	var method MethodEntry
	for i, entry := range m.losses.Default {
		if candidate, ok := entry.Method(); ok && candidate.Name == SteinmetzMethod {
			index, method = i, candidate
			break
		}
	}
	if index < 0 {
		return m, fmt.Errorf("%s: %w", m.name, ErrNoSteinmetzMethod)
	}

	method.Ranges = slices.Clone(ranges)
	entries := slices.Clone(m.losses.Default)
	entries[index] = MethodLossEntry(method)

	losses := &VolumetricLosses{Default: entries, fields: m.losses.fields}
	return Material{name: m.name, losses: losses, fields: m.fields}, nil
}

// UnmarshalJSON decodes a material record, keeping unknown fields verbatim
func (m *Material) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	decoded := Material{fields: fields, raw: slices.Clone(data)}
	if raw, ok := fields["name"]; ok {
		if err := json.Unmarshal(raw, &decoded.name); err != nil {
			return fmt.Errorf("failed to decode material name: %w", err)
		}
	}
	if raw, ok := fields["volumetricLosses"]; ok && !isNull(raw) {
		var losses VolumetricLosses
		if err := json.Unmarshal(raw, &losses); err != nil {
			return fmt.Errorf("material %s: failed to decode volumetricLosses: %w", decoded.name, err)
		}
		decoded.losses = &losses
	}
	*m = decoded
	return nil
}

// MarshalJSON encodes the record, reusing the decoded bytes when nothing changed
func (m Material) MarshalJSON() ([]byte, error) {
	if m.raw != nil {
		return m.raw, nil
	}
	fields := make(map[string]json.RawMessage, len(m.fields)+2)
	for k, v := range m.fields {
		fields[k] = v
	}
	name, err := json.Marshal(m.name)
	if err != nil {
		return nil, err
	}
	fields["name"] = name
	if m.losses != nil {
		losses, err := json.Marshal(m.losses)
		if err != nil {
			return nil, err
		}
		fields["volumetricLosses"] = losses
	}
	return json.Marshal(fields)
}

// VolumetricLosses is the volumetricLosses object of a material record
type VolumetricLosses struct {
	Default []LossEntry
	fields  map[string]json.RawMessage
	raw     json.RawMessage
}

func (v *VolumetricLosses) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	decoded := VolumetricLosses{fields: fields, raw: slices.Clone(data)}
	if raw, ok := fields["default"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &decoded.Default); err != nil {
			return fmt.Errorf("failed to decode default losses: %w", err)
		}
	}
	*v = decoded
	return nil
}

func (v VolumetricLosses) MarshalJSON() ([]byte, error) {
	if v.raw != nil {
		return v.raw, nil
	}
	fields := make(map[string]json.RawMessage, len(v.fields)+1)
	for k, val := range v.fields {
		fields[k] = val
	}
	entries := v.Default
	if entries == nil {
		entries = []LossEntry{}
	}
	def, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}
	fields["default"] = def
	return json.Marshal(fields)
}

// LossEntry is one element of volumetricLosses.default: either a raw list of
// measurements or a tagged method record.
type LossEntry struct {
	measurements []VolumetricLossPoint
	method       *MethodEntry
	raw          json.RawMessage
}

// MeasurementsLossEntry wraps a raw measurement list
func MeasurementsLossEntry(points []VolumetricLossPoint) LossEntry {
	if points == nil {
		points = []VolumetricLossPoint{}
	}
	return LossEntry{measurements: points}
}

// MethodLossEntry wraps a tagged method record
func MethodLossEntry(method MethodEntry) LossEntry {
	return LossEntry{method: &method}
}

// Measurements returns the raw measurement list when the entry is one
func (e LossEntry) Measurements() ([]VolumetricLossPoint, bool) {
	if e.method != nil || e.measurements == nil {
		return nil, false
	}
	return e.measurements, true
}

// Method returns the method record when the entry is one
func (e LossEntry) Method() (MethodEntry, bool) {
	if e.method == nil {
		return MethodEntry{}, false
	}
	return *e.method, true
}

func (e *LossEntry) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return errors.New("empty loss entry")
	}
	switch trimmed[0] {
	case '[':
		var points []VolumetricLossPoint
		if err := json.Unmarshal(trimmed, &points); err != nil {
			return fmt.Errorf("failed to decode measurements: %w", err)
		}
		*e = MeasurementsLossEntry(points)
	case '{':
		var method MethodEntry
		if err := json.Unmarshal(trimmed, &method); err != nil {
			return fmt.Errorf("failed to decode method: %w", err)
		}
		*e = MethodLossEntry(method)
	default:
		return fmt.Errorf("unexpected loss entry starting with %q", trimmed[0])
	}
	e.raw = slices.Clone(trimmed)
	return nil
}

func (e LossEntry) MarshalJSON() ([]byte, error) {
	if e.raw != nil {
		return e.raw, nil
	}
	if e.method != nil {
		return json.Marshal(*e.method)
	}
	points := e.measurements
	if points == nil {
		points = []VolumetricLossPoint{}
	}
	return json.Marshal(points)
}

// MethodEntry is a tagged method record such as {"method": "steinmetz", "ranges": [...]}
type MethodEntry struct {
	Name   string
	Ranges []CoefficientSet
	fields map[string]json.RawMessage
}

func (m *MethodEntry) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	decoded := MethodEntry{fields: fields}
	if raw, ok := fields["method"]; ok {
		if err := json.Unmarshal(raw, &decoded.Name); err != nil {
			return fmt.Errorf("failed to decode method name: %w", err)
		}
	}
	if raw, ok := fields["ranges"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &decoded.Ranges); err != nil {
			return fmt.Errorf("method %s: failed to decode ranges: %w", decoded.Name, err)
		}
	}
	*m = decoded
	return nil
}

func (m MethodEntry) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(m.fields)+2)
	for k, v := range m.fields {
		fields[k] = v
	}
	name, err := json.Marshal(m.Name)
	if err != nil {
		return nil, err
	}
	fields["method"] = name
	if m.Ranges != nil {
		ranges, err := json.Marshal(m.Ranges)
		if err != nil {
			return nil, err
		}
		fields["ranges"] = ranges
	}
	return json.Marshal(fields)
}

// VolumetricLossPoint is a measurement as stored in the materials database
type VolumetricLossPoint struct {
	MagneticFluxDensity Excitation `json:"magneticFluxDensity"`
	Temperature         float64    `json:"temperature"`
	Value               float64    `json:"value"`
	Origin              Origin     `json:"origin"`
}

// Excitation is the operating point a loss measurement was taken at
type Excitation struct {
	Frequency           float64      `json:"frequency"`
	MagneticFluxDensity SignalRecord `json:"magneticFluxDensity"`
}

// SignalRecord holds the processed description of the flux density waveform
type SignalRecord struct {
	Processed ProcessedSignal `json:"processed"`
}

// ProcessedSignal is the summary of a waveform
type ProcessedSignal struct {
	Label  string  `json:"label"`
	Peak   float64 `json:"peak"`
	Offset float64 `json:"offset"`
}

// Point flattens the record into the form the fitter works on
func (p VolumetricLossPoint) Point() MeasurementPoint {
	return MeasurementPoint{
		Frequency:       p.MagneticFluxDensity.Frequency,
		FluxDensityPeak: p.MagneticFluxDensity.MagneticFluxDensity.Processed.Peak,
		Temperature:     p.Temperature,
		LossDensity:     p.Value,
		Origin:          p.Origin,
	}
}

// NewVolumetricLossPoint builds a database record for a sinusoidal measurement
func NewVolumetricLossPoint(p MeasurementPoint) VolumetricLossPoint {
	return VolumetricLossPoint{
		MagneticFluxDensity: Excitation{
			Frequency: p.Frequency,
			MagneticFluxDensity: SignalRecord{
				Processed: ProcessedSignal{Label: "Sinusoidal", Peak: p.FluxDensityPeak},
			},
		},
		Temperature: p.Temperature,
		Value:       p.LossDensity,
		Origin:      p.Origin,
	}
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
