package transport

import "testing"

func TestAllowedOrigins_WildcardAllowsEverything(t *testing.T) {
	a := NewAllowedOrigins([]string{"*"})
	if !a.Check("https://evil.example") {
		t.Error("wildcard should allow any origin")
	}
	if !a.Check("") {
		t.Error("empty origin (non-browser client) should always be allowed")
	}
}

func TestAllowedOrigins_AllowlistRejectsUnknownOrigin(t *testing.T) {
	a := NewAllowedOrigins([]string{"https://app.example.com"})
	if !a.Check("https://app.example.com") {
		t.Error("expected listed origin to be allowed")
	}
	if a.Check("https://other.example.com") {
		t.Error("expected unlisted origin to be rejected")
	}
	if !a.Check("") {
		t.Error("empty origin should still be allowed even with an allowlist")
	}
}

func TestFieldHelpers_ExtractTypedValuesWithZeroValueFallback(t *testing.T) {
	data := map[string]any{
		"name":    "alice",
		"ready":   true,
		"amount":  float64(7),
		"payload": map[string]any{"k": "v"},
		"teams":   []any{[]any{"u1", "u2"}, []any{"u3", ""}},
	}

	if strField(data, "name") != "alice" {
		t.Error("expected strField to extract the string value")
	}
	if strField(data, "missing") != "" {
		t.Error("expected strField to fall back to empty string")
	}
	if !boolField(data, "ready") {
		t.Error("expected boolField to extract true")
	}
	if boolField(data, "missing") {
		t.Error("expected boolField to fall back to false")
	}
	if intField(data, "amount") != 7 {
		t.Error("expected intField to coerce float64 to int")
	}
	if intField(data, "missing") != 0 {
		t.Error("expected intField to fall back to zero")
	}
	m := mapField(data, "payload")
	if m["k"] != "v" {
		t.Error("expected mapField to extract the nested map")
	}
	if len(mapField(data, "missing")) != 0 {
		t.Error("expected mapField to fall back to an empty map")
	}

	teams := teamsField(data, "teams")
	if len(teams) != 2 || len(teams[0]) != 2 || teams[0][0] != "u1" || teams[1][1] != "" {
		t.Errorf("unexpected teams parse: %v", teams)
	}
}

func TestNewSocketID_ProducesDistinctIDs(t *testing.T) {
	a := newSocketID()
	b := newSocketID()
	if a == b {
		t.Error("expected distinct socket ids across calls")
	}
	if len(a) == 0 {
		t.Error("expected a non-empty socket id")
	}
}
