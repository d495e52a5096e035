package settings

import "testing"

func TestValidate_MissingKeyFallsBackToDefault(t *testing.T) {
	defs := []Definition{
		{Key: "winTarget", Type: Number, Default: 500.0, Min: Float(100), Max: Float(1000)},
	}
	out := Validate(defs, map[string]any{})
	if out["winTarget"] != 500.0 {
		t.Errorf("expected default 500, got %v", out["winTarget"])
	}
}

func TestValidate_NumberClampedToRange(t *testing.T) {
	defs := []Definition{
		{Key: "winTarget", Type: Number, Default: 500.0, Min: Float(100), Max: Float(1000)},
	}
	out := Validate(defs, map[string]any{"winTarget": 5000.0})
	if out["winTarget"] != 1000.0 {
		t.Errorf("expected clamp to max 1000, got %v", out["winTarget"])
	}
	out = Validate(defs, map[string]any{"winTarget": -5.0})
	if out["winTarget"] != 100.0 {
		t.Errorf("expected clamp to min 100, got %v", out["winTarget"])
	}
}

func TestValidate_StepSnapsToNearestIncrement(t *testing.T) {
	defs := []Definition{
		{Key: "bagsPenalty", Type: Number, Default: -100.0, Min: Float(-200), Max: Float(0), Step: Float(50)},
	}
	out := Validate(defs, map[string]any{"bagsPenalty": -77.0})
	if out["bagsPenalty"] != -100.0 {
		t.Errorf("expected snap to nearest step -100, got %v", out["bagsPenalty"])
	}
}

func TestValidate_BoolCoercionFromVariousTypes(t *testing.T) {
	defs := []Definition{{Key: "jokersEnabled", Type: Boolean, Default: false}}
	cases := []struct {
		raw  any
		want bool
	}{
		{true, true},
		{"true", true},
		{"false", false},
		{float64(1), true},
		{float64(0), false},
		{"garbage", false},
	}
	for _, c := range cases {
		out := Validate(defs, map[string]any{"jokersEnabled": c.raw})
		if out["jokersEnabled"] != c.want {
			t.Errorf("coerceBool(%v): got %v, want %v", c.raw, out["jokersEnabled"], c.want)
		}
	}
}

func TestValidate_SelectRejectsUnknownOption(t *testing.T) {
	defs := []Definition{{Key: "variant", Type: Select, Default: "standard", Options: []any{"standard", "cutthroat"}}}
	out := Validate(defs, map[string]any{"variant": "unknown-variant"})
	if out["variant"] != "standard" {
		t.Errorf("expected fallback to default for unknown option, got %v", out["variant"])
	}
	out = Validate(defs, map[string]any{"variant": "cutthroat"})
	if out["variant"] != "cutthroat" {
		t.Errorf("expected valid option to be accepted, got %v", out["variant"])
	}
}

func TestValidate_DependencyUnmetFallsBackToDefault(t *testing.T) {
	defs := []Definition{
		{Key: "blindBidEnabled", Type: Boolean, Default: false},
		{Key: "blindNilEnabled", Type: Boolean, Default: false, DependsOn: &Dependency{Key: "blindBidEnabled", Value: true}},
	}
	out := Validate(defs, map[string]any{"blindBidEnabled": false, "blindNilEnabled": true})
	if out["blindNilEnabled"] != false {
		t.Errorf("expected dependency-unmet to force default false, got %v", out["blindNilEnabled"])
	}

	out = Validate(defs, map[string]any{"blindBidEnabled": true, "blindNilEnabled": true})
	if out["blindNilEnabled"] != true {
		t.Errorf("expected dependency-met value to pass through, got %v", out["blindNilEnabled"])
	}
}

func TestValidate_NullableNumberAcceptsNil(t *testing.T) {
	defs := []Definition{{Key: "drawFromBoneyard", Type: NullableNumber, Default: nil}}
	out := Validate(defs, map[string]any{"drawFromBoneyard": nil})
	if out["drawFromBoneyard"] != nil {
		t.Errorf("expected nil to pass through, got %v", out["drawFromBoneyard"])
	}
}
