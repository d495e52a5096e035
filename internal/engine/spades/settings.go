package spades

import "cardroom/internal/engine/settings"

// Settings is the concrete, validated settings variant for Spades, per
// SPEC_FULL.md §6.1.
type Settings struct {
	AllowNil           bool    `json:"allowNil"`
	BlindBidEnabled    bool    `json:"blindBidEnabled"`
	BlindNilEnabled    bool    `json:"blindNilEnabled"`
	JokersEnabled      bool    `json:"jokersEnabled"`
	DeuceOfSpadesHigh  bool    `json:"deuceOfSpadesHigh"`
	WinTarget          float64 `json:"winTarget"`
	BagsPenalty        float64 `json:"bagsPenalty"` // configured negative; applied as |v|
	TurnTimeoutSeconds float64 `json:"turnTimeoutSeconds"`
}

func Definitions() []settings.Definition {
	return []settings.Definition{
		{Key: "allowNil", Type: settings.Boolean, Default: true},
		{Key: "blindBidEnabled", Type: settings.Boolean, Default: true},
		{Key: "blindNilEnabled", Type: settings.Boolean, Default: true},
		{Key: "jokersEnabled", Type: settings.Boolean, Default: false},
		{Key: "deuceOfSpadesHigh", Type: settings.Boolean, Default: false},
		{Key: "winTarget", Type: settings.Number, Default: 500.0, Min: settings.Float(100), Max: settings.Float(1000), Step: settings.Float(50)},
		{Key: "bagsPenalty", Type: settings.Number, Default: -100.0, Min: settings.Float(-200), Max: settings.Float(0), Step: settings.Float(10)},
		{Key: "turnTimeoutSeconds", Type: settings.Number, Default: 20.0, Min: settings.Float(5), Max: settings.Float(120), Step: settings.Float(5)},
	}
}

func DefaultSettingsMap() map[string]any {
	out := make(map[string]any)
	for _, d := range Definitions() {
		out[d.Key] = d.Default
	}
	return out
}

func FromMap(v map[string]any) Settings {
	return Settings{
		AllowNil:           v["allowNil"].(bool),
		BlindBidEnabled:    v["blindBidEnabled"].(bool),
		BlindNilEnabled:    v["blindNilEnabled"].(bool),
		JokersEnabled:      v["jokersEnabled"].(bool),
		DeuceOfSpadesHigh:  v["deuceOfSpadesHigh"].(bool),
		WinTarget:          v["winTarget"].(float64),
		BagsPenalty:        v["bagsPenalty"].(float64),
		TurnTimeoutSeconds: v["turnTimeoutSeconds"].(float64),
	}
}
