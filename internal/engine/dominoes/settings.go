package dominoes

import "cardroom/internal/engine/settings"

// Settings is the concrete, validated settings variant for Dominoes.
//
// DrawFromBoneyard is accepted and validated but intentionally a no-op: the
// pass handler never draws a tile, mirroring the source behavior (see
// DESIGN.md Open Question decisions).
type Settings struct {
	WinTarget          float64 `json:"winTarget"`
	DrawFromBoneyard   bool    `json:"drawFromBoneyard"`
	TurnTimeoutSeconds float64 `json:"turnTimeoutSeconds"`
}

func Definitions() []settings.Definition {
	return []settings.Definition{
		{Key: "winTarget", Type: settings.Number, Default: 150.0, Min: settings.Float(50), Max: settings.Float(500), Step: settings.Float(10)},
		{Key: "drawFromBoneyard", Type: settings.Boolean, Default: false},
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
		WinTarget:          v["winTarget"].(float64),
		DrawFromBoneyard:   v["drawFromBoneyard"].(bool),
		TurnTimeoutSeconds: v["turnTimeoutSeconds"].(float64),
	}
}
