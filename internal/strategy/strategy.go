// Package strategy defines the declarative strategy model: entry and exit
// condition descriptors with per-condition parameters and timeframes, plus
// the parsed, closed set of condition kinds the engine evaluates.
package strategy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/quantlark/strata/internal/core"
	"gopkg.in/yaml.v3"
)

// Side distinguishes entry from exit conditions in parameter keys.
type Side string

const (
	SideEntry Side = "entry"
	SideExit  Side = "exit"
)

// Range describes the values a swept parameter takes. A strategy file may
// express any numeric parameter as the literal "min;max;step" instead of a
// number.
type Range struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// Valid reports whether the range can be expanded.
func (r Range) Valid() bool {
	return r.Step > 0 && r.Min <= r.Max
}

func (r Range) String() string {
	return fmt.Sprintf("%s;%s;%s",
		strconv.FormatFloat(r.Min, 'f', -1, 64),
		strconv.FormatFloat(r.Max, 'f', -1, 64),
		strconv.FormatFloat(r.Step, 'f', -1, 64))
}

// ParseRange parses a "min;max;step" literal.
func ParseRange(s string) (Range, error) {
	parts := strings.Split(s, ";")
	if len(parts) != 3 {
		return Range{}, fmt.Errorf("range literal %q: want min;max;step", s)
	}
	var vals [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Range{}, fmt.Errorf("range literal %q: %w", s, err)
		}
		vals[i] = v
	}
	return Range{Min: vals[0], Max: vals[1], Step: vals[2]}, nil
}

// ConditionDescriptor is one declarative rule. Params hold plain numbers;
// any parameter written as a "min;max;step" literal lands in Ranges with its
// Min as the placeholder value. Timeframe 0 means the base series.
type ConditionDescriptor struct {
	ID        string
	Params    map[string]float64
	Enabled   bool
	Timeframe int
	Ranges    map[string]Range
}

type rawDescriptor struct {
	ID        string         `json:"id" yaml:"id"`
	Params    map[string]any `json:"params" yaml:"params"`
	Enabled   *bool          `json:"enabled" yaml:"enabled"`
	Timeframe *int           `json:"timeframe" yaml:"timeframe"`
}

func (d *ConditionDescriptor) fromRaw(raw rawDescriptor) error {
	d.ID = raw.ID
	d.Enabled = raw.Enabled == nil || *raw.Enabled
	if raw.Timeframe != nil {
		d.Timeframe = *raw.Timeframe
	}
	d.Params = make(map[string]float64, len(raw.Params))
	for k, v := range raw.Params {
		switch val := v.(type) {
		case float64:
			d.Params[k] = val
		case int:
			d.Params[k] = float64(val)
		case string:
			r, err := ParseRange(val)
			if err != nil {
				return core.WrapError(core.ErrInvalidStrategy,
					fmt.Errorf("condition %s param %s: %w", d.ID, k, err))
			}
			if d.Ranges == nil {
				d.Ranges = make(map[string]Range)
			}
			d.Ranges[k] = r
			d.Params[k] = r.Min
		default:
			return core.WrapError(core.ErrInvalidStrategy,
				fmt.Errorf("condition %s param %s: unsupported value %v", d.ID, k, v))
		}
	}
	return nil
}

// UnmarshalJSON accepts numbers or range literals as parameter values and
// defaults enabled to true when the field is absent.
func (d *ConditionDescriptor) UnmarshalJSON(data []byte) error {
	var raw rawDescriptor
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return d.fromRaw(raw)
}

// MarshalJSON writes parameters back in their source form, re-encoding
// sweep ranges as literals.
func (d ConditionDescriptor) MarshalJSON() ([]byte, error) {
	params := make(map[string]any, len(d.Params))
	for k, v := range d.Params {
		params[k] = v
	}
	for k, r := range d.Ranges {
		params[k] = r.String()
	}
	enabled := d.Enabled
	out := struct {
		ID        string         `json:"id"`
		Params    map[string]any `json:"params,omitempty"`
		Enabled   *bool          `json:"enabled"`
		Timeframe int            `json:"timeframe,omitempty"`
	}{ID: d.ID, Params: params, Enabled: &enabled, Timeframe: d.Timeframe}
	return json.Marshal(out)
}

// UnmarshalYAML mirrors the JSON rules for YAML strategy files.
func (d *ConditionDescriptor) UnmarshalYAML(value *yaml.Node) error {
	var raw rawDescriptor
	if err := value.Decode(&raw); err != nil {
		return err
	}
	return d.fromRaw(raw)
}

// Param returns a named parameter or its fallback.
func (d ConditionDescriptor) Param(name string, fallback float64) float64 {
	if v, ok := d.Params[name]; ok {
		return v
	}
	return fallback
}

// Strategy is the full declarative strategy. The engine never mutates one;
// the optimizer substitutes parameters into clones.
type Strategy struct {
	Name               string                `json:"name,omitempty" yaml:"name,omitempty"`
	Symbol             string                `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	TickSize           float64               `json:"tickSize,omitempty" yaml:"tickSize,omitempty"`
	ContractMultiplier float64               `json:"contractMultiplier,omitempty" yaml:"contractMultiplier,omitempty"`
	EntryConditions    []ConditionDescriptor `json:"entryConditions" yaml:"entryConditions"`
	ExitConditions     []ConditionDescriptor `json:"exitConditions" yaml:"exitConditions"`
}

// Tick returns the tick size, defaulting to 1.
func (s *Strategy) Tick() float64 {
	if s.TickSize > 0 {
		return s.TickSize
	}
	return 1
}

// Multiplier returns the contract multiplier, defaulting to 1.
func (s *Strategy) Multiplier() float64 {
	if s.ContractMultiplier > 0 {
		return s.ContractMultiplier
	}
	return 1
}

// Conditions returns the descriptor list for a side.
func (s *Strategy) Conditions(side Side) []ConditionDescriptor {
	if side == SideEntry {
		return s.EntryConditions
	}
	return s.ExitConditions
}

// Clone deep-copies the strategy.
func (s *Strategy) Clone() *Strategy {
	out := *s
	out.EntryConditions = cloneDescriptors(s.EntryConditions)
	out.ExitConditions = cloneDescriptors(s.ExitConditions)
	return &out
}

func cloneDescriptors(in []ConditionDescriptor) []ConditionDescriptor {
	if in == nil {
		return nil
	}
	out := make([]ConditionDescriptor, len(in))
	for i, d := range in {
		out[i] = d
		out[i].Params = make(map[string]float64, len(d.Params))
		for k, v := range d.Params {
			out[i].Params[k] = v
		}
		if d.Ranges != nil {
			out[i].Ranges = make(map[string]Range, len(d.Ranges))
			for k, r := range d.Ranges {
				out[i].Ranges[k] = r
			}
		}
	}
	return out
}

// Validate rejects structural misuse that leniency cannot paper over:
// negative timeframes and risk conditions on the entry side. Unknown ids
// pass validation and simply never fire.
func (s *Strategy) Validate() error {
	if s.TickSize < 0 {
		return core.WrapError(core.ErrInvalidStrategy,
			fmt.Errorf("tickSize cannot be negative: %v", s.TickSize))
	}
	for i, d := range s.EntryConditions {
		if d.Timeframe < 0 {
			return core.WrapError(core.ErrInvalidStrategy,
				fmt.Errorf("entry condition %d: negative timeframe", i))
		}
		if kind, ok := KindOf(d.ID); ok && kind.IsRisk() {
			return core.WrapError(core.ErrInvalidStrategy,
				fmt.Errorf("entry condition %d: %s is an exit-only risk condition", i, d.ID))
		}
	}
	for i, d := range s.ExitConditions {
		if d.Timeframe < 0 {
			return core.WrapError(core.ErrInvalidStrategy,
				fmt.Errorf("exit condition %d: negative timeframe", i))
		}
	}
	return nil
}

// CollectRanges gathers every range literal in the strategy, keyed by
// "side.index.param".
func (s *Strategy) CollectRanges() map[string]Range {
	out := make(map[string]Range)
	for i, d := range s.EntryConditions {
		for name, r := range d.Ranges {
			out[ParamKey(SideEntry, i, name)] = r
		}
	}
	for i, d := range s.ExitConditions {
		for name, r := range d.Ranges {
			out[ParamKey(SideExit, i, name)] = r
		}
	}
	return out
}

// SetParam writes a concrete value into the exact (side, index, name) slot.
// Unknown slots are ignored.
func (s *Strategy) SetParam(side Side, index int, name string, value float64) {
	conds := s.EntryConditions
	if side == SideExit {
		conds = s.ExitConditions
	}
	if index < 0 || index >= len(conds) {
		return
	}
	if conds[index].Params == nil {
		conds[index].Params = make(map[string]float64)
	}
	conds[index].Params[name] = value
}

// ParamKey builds the canonical "side.index.param" key.
func ParamKey(side Side, index int, name string) string {
	return fmt.Sprintf("%s.%d.%s", side, index, name)
}

// SplitParamKey parses a "side.index.param" key.
func SplitParamKey(key string) (Side, int, string, error) {
	parts := strings.SplitN(key, ".", 3)
	if len(parts) != 3 {
		return "", 0, "", fmt.Errorf("param key %q: want side.index.param", key)
	}
	side := Side(parts[0])
	if side != SideEntry && side != SideExit {
		return "", 0, "", fmt.Errorf("param key %q: unknown side %q", key, parts[0])
	}
	idx, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, "", fmt.Errorf("param key %q: %w", key, err)
	}
	return side, idx, parts[2], nil
}

// Load reads a strategy from a JSON or YAML file, chosen by extension.
func Load(path string) (*Strategy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.WrapError(core.ErrInvalidStrategy, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON decodes a strategy from its canonical JSON shape.
func ParseJSON(data []byte) (*Strategy, error) {
	var s Strategy
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, core.WrapError(core.ErrInvalidStrategy, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ParseYAML decodes a strategy from YAML with the same shape as the JSON.
func ParseYAML(data []byte) (*Strategy, error) {
	var s Strategy
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, core.WrapError(core.ErrInvalidStrategy, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
