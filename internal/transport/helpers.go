package transport

import (
	"crypto/rand"
	"encoding/hex"
	mathrand "math/rand"
)

func newSocketID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return hex.EncodeToString([]byte("fallback-socket-id"))
	}
	return hex.EncodeToString(buf)
}

func shuffleStrings(items []string) {
	mathrand.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}

func strField(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func boolField(data map[string]any, key string) bool {
	if v, ok := data[key].(bool); ok {
		return v
	}
	return false
}

func intField(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func mapField(data map[string]any, key string) map[string]any {
	if v, ok := data[key].(map[string]any); ok {
		return v
	}
	return map[string]any{}
}

func teamsField(data map[string]any, key string) [][]string {
	raw, ok := data[key].([]any)
	if !ok {
		return nil
	}
	out := make([][]string, 0, len(raw))
	for _, teamRaw := range raw {
		teamList, ok := teamRaw.([]any)
		if !ok {
			continue
		}
		team := make([]string, 0, len(teamList))
		for _, slotRaw := range teamList {
			slot, _ := slotRaw.(string)
			team = append(team, slot)
		}
		out = append(out, team)
	}
	return out
}
