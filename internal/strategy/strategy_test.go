package strategy

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/quantlark/strata/internal/core"
)

const sampleJSON = `{
  "name": "rsi-reversal",
  "symbol": "ES",
  "tickSize": 0.25,
  "contractMultiplier": 50,
  "entryConditions": [
    {"id": "rsi_cross_above", "params": {"period": 14, "threshold": "60;80;5"}},
    {"id": "time_window", "params": {"startMinute": 570, "endMinute": 900}, "timeframe": 0}
  ],
  "exitConditions": [
    {"id": "stop_loss", "params": {"ticks": 40}},
    {"id": "rsi_cross_below", "params": {"period": 14, "threshold": 30}, "enabled": false}
  ]
}`

func TestParseJSON(t *testing.T) {
	s, err := ParseJSON([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if s.Name != "rsi-reversal" || s.Symbol != "ES" {
		t.Errorf("header = %q %q", s.Name, s.Symbol)
	}
	if s.Tick() != 0.25 || s.Multiplier() != 50 {
		t.Errorf("tick/multiplier = %v %v", s.Tick(), s.Multiplier())
	}
	if len(s.EntryConditions) != 2 || len(s.ExitConditions) != 2 {
		t.Fatalf("condition counts = %d %d", len(s.EntryConditions), len(s.ExitConditions))
	}

	entry := s.EntryConditions[0]
	if !entry.Enabled {
		t.Error("enabled should default to true")
	}
	if entry.Params["period"] != 14 {
		t.Errorf("period = %v", entry.Params["period"])
	}
	if entry.Params["threshold"] != 60 {
		t.Errorf("range placeholder should be min, got %v", entry.Params["threshold"])
	}
	r, ok := entry.Ranges["threshold"]
	if !ok {
		t.Fatal("threshold range not captured")
	}
	if r.Min != 60 || r.Max != 80 || r.Step != 5 {
		t.Errorf("range = %+v", r)
	}

	if s.ExitConditions[1].Enabled {
		t.Error("explicit enabled:false should stick")
	}
}

func TestParseJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"malformed json", `{"entryConditions": [`},
		{"bad range literal", `{"entryConditions": [{"id": "rsi_above", "params": {"threshold": "60;80"}}]}`},
		{"non numeric range", `{"entryConditions": [{"id": "rsi_above", "params": {"threshold": "a;b;c"}}]}`},
		{"bool param", `{"entryConditions": [{"id": "rsi_above", "params": {"threshold": true}}]}`},
		{"risk on entry side", `{"entryConditions": [{"id": "stop_loss", "params": {"ticks": 10}}]}`},
		{"negative timeframe", `{"exitConditions": [{"id": "rsi_below", "timeframe": -5}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseJSON([]byte(tt.in)); err == nil {
				t.Error("expected error")
			} else if !errors.Is(err, core.ErrInvalidStrategy) {
				t.Errorf("error not ErrInvalidStrategy: %v", err)
			}
		})
	}
}

func TestParseYAML(t *testing.T) {
	src := `
name: breakout
entryConditions:
  - id: price_above_sma
    params:
      period: "10;50;10"
exitConditions:
  - id: session_close
    params:
      minute: 960
`
	s, err := ParseYAML([]byte(src))
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	if s.Tick() != 1 || s.Multiplier() != 1 {
		t.Errorf("defaults = %v %v", s.Tick(), s.Multiplier())
	}
	d := s.EntryConditions[0]
	if d.Params["period"] != 10 {
		t.Errorf("placeholder = %v", d.Params["period"])
	}
	if r := d.Ranges["period"]; r.Max != 50 || r.Step != 10 {
		t.Errorf("range = %+v", r)
	}
	if !d.Enabled {
		t.Error("yaml enabled default")
	}
}

func TestLoad_ByExtension(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "s.json")
	if err := os.WriteFile(jsonPath, []byte(sampleJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(jsonPath); err != nil {
		t.Errorf("Load json: %v", err)
	}

	yamlPath := filepath.Join(dir, "s.yaml")
	if err := os.WriteFile(yamlPath, []byte("name: x\nentryConditions: []\nexitConditions: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(yamlPath); err != nil {
		t.Errorf("Load yaml: %v", err)
	}

	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("missing file should error")
	}
}

func TestMarshalJSON_RoundTripsRanges(t *testing.T) {
	s, err := ParseJSON([]byte(sampleJSON))
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := ParseJSON(data)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	r := back.EntryConditions[0].Ranges["threshold"]
	if r.Min != 60 || r.Max != 80 || r.Step != 5 {
		t.Errorf("range lost in round trip: %+v", r)
	}
	if back.ExitConditions[1].Enabled {
		t.Error("enabled lost in round trip")
	}
}

func TestClone_IsDeep(t *testing.T) {
	s, err := ParseJSON([]byte(sampleJSON))
	if err != nil {
		t.Fatal(err)
	}
	c := s.Clone()
	c.SetParam(SideEntry, 0, "period", 99)
	c.EntryConditions[0].Ranges["threshold"] = Range{Min: 1, Max: 2, Step: 1}

	if s.EntryConditions[0].Params["period"] != 14 {
		t.Error("clone mutation leaked into original params")
	}
	if s.EntryConditions[0].Ranges["threshold"].Min != 60 {
		t.Error("clone mutation leaked into original ranges")
	}
}

func TestCollectRanges(t *testing.T) {
	s, err := ParseJSON([]byte(sampleJSON))
	if err != nil {
		t.Fatal(err)
	}
	got := s.CollectRanges()
	if len(got) != 1 {
		t.Fatalf("ranges = %v", got)
	}
	r, ok := got["entry.0.threshold"]
	if !ok || r.Min != 60 {
		t.Errorf("entry.0.threshold = %+v ok=%v", r, ok)
	}
}

func TestSetParam_IgnoresUnknownSlots(t *testing.T) {
	s := &Strategy{ExitConditions: []ConditionDescriptor{{ID: "stop_loss"}}}
	s.SetParam(SideExit, 0, "ticks", 25)
	s.SetParam(SideExit, 7, "ticks", 1)
	s.SetParam(SideEntry, 0, "ticks", 1)
	if s.ExitConditions[0].Params["ticks"] != 25 {
		t.Errorf("params = %v", s.ExitConditions[0].Params)
	}
}

func TestParamKeys(t *testing.T) {
	key := ParamKey(SideExit, 3, "ticks")
	if key != "exit.3.ticks" {
		t.Errorf("key = %q", key)
	}
	side, idx, name, err := SplitParamKey(key)
	if err != nil || side != SideExit || idx != 3 || name != "ticks" {
		t.Errorf("split = %v %v %v %v", side, idx, name, err)
	}

	for _, bad := range []string{"exit.3", "middle.3.ticks", "exit.x.ticks"} {
		if _, _, _, err := SplitParamKey(bad); err == nil {
			t.Errorf("SplitParamKey(%q) should fail", bad)
		}
	}
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange(" 0.5;2.5;0.5 ")
	if err != nil {
		t.Fatalf("ParseRange: %v", err)
	}
	if r.Min != 0.5 || r.Max != 2.5 || r.Step != 0.5 {
		t.Errorf("range = %+v", r)
	}
	if r.String() != "0.5;2.5;0.5" {
		t.Errorf("String = %q", r.String())
	}

	if !(Range{Min: 1, Max: 1, Step: 1}).Valid() {
		t.Error("single-point range should be valid")
	}
	if (Range{Min: 2, Max: 1, Step: 1}).Valid() {
		t.Error("min > max should be invalid")
	}
	if (Range{Min: 1, Max: 2, Step: 0}).Valid() {
		t.Error("zero step should be invalid")
	}
}

func TestKindCatalog(t *testing.T) {
	if _, ok := KindOf("rsi_cross_above"); !ok {
		t.Error("rsi_cross_above should be known")
	}
	if _, ok := KindOf("moon_phase"); ok {
		t.Error("moon_phase should be unknown")
	}

	risk := 0
	for _, k := range Kinds() {
		if k.IsRisk() {
			risk++
		}
	}
	if risk != 6 {
		t.Errorf("risk kinds = %d, want 6", risk)
	}

	if !KindBBBounceUpper.IsCross() {
		t.Error("bb_bounce_upper needs a prior bar")
	}
	if KindRSIAbove.IsCross() {
		t.Error("rsi_above is not a cross")
	}
}

func TestParamFallback(t *testing.T) {
	d := ConditionDescriptor{Params: map[string]float64{"period": 7}}
	if d.Param("period", 14) != 7 {
		t.Error("explicit param ignored")
	}
	if d.Param("threshold", 70) != 70 {
		t.Error("fallback not applied")
	}
}
