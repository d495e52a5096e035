// Package settings implements the setting-definition schema and the
// coerce/clamp/step/dependency validation walk shared by every game module
// (spec.md §4.2).
package settings

import "math"

type Type string

const (
	Boolean        Type = "boolean"
	Number         Type = "number"
	NullableNumber Type = "nullableNumber"
	Select         Type = "select"
)

// Dependency names a setting key and the value it must currently hold for a
// dependent setting to take effect.
type Dependency struct {
	Key   string
	Value any
}

// Definition describes one validated setting.
type Definition struct {
	Key       string
	Type      Type
	Default   any
	Min       *float64
	Max       *float64
	Step      *float64
	Options   []any
	DependsOn *Dependency
}

// Validate walks defs against raw input, returning a fully-populated,
// type-correct settings map. Unknown keys in raw are ignored; missing keys
// fall back to their definition's default.
func Validate(defs []Definition, raw map[string]any) map[string]any {
	out := make(map[string]any, len(defs))
	for _, def := range defs {
		if def.DependsOn != nil {
			current, ok := out[def.DependsOn.Key]
			if !ok {
				current = lookupOrDefault(defs, raw, def.DependsOn.Key)
			}
			if current != def.DependsOn.Value {
				out[def.Key] = def.Default
				continue
			}
		}
		out[def.Key] = validateOne(def, raw[def.Key])
	}
	return out
}

func lookupOrDefault(defs []Definition, raw map[string]any, key string) any {
	for _, d := range defs {
		if d.Key == key {
			return validateOne(d, raw[key])
		}
	}
	return nil
}

func validateOne(def Definition, value any) any {
	switch def.Type {
	case Boolean:
		return coerceBool(value, def.Default)
	case NullableNumber:
		if value == nil {
			return nil
		}
		n, ok := coerceNumber(value)
		if !ok {
			return def.Default
		}
		return clampStep(n, def)
	case Number:
		n, ok := coerceNumber(value)
		if !ok {
			return def.Default
		}
		return clampStep(n, def)
	case Select:
		for _, opt := range def.Options {
			if opt == value {
				return value
			}
		}
		return def.Default
	default:
		return def.Default
	}
}

func coerceBool(value any, fallback any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		if v == "true" {
			return true
		}
		if v == "false" {
			return false
		}
	case float64:
		return v != 0
	case int:
		return v != 0
	}
	if b, ok := fallback.(bool); ok {
		return b
	}
	return false
}

func coerceNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// clampStep clamps n to [min,max] then snaps it to the nearest step offset
// from min.
func clampStep(n float64, def Definition) float64 {
	if def.Min != nil && n < *def.Min {
		n = *def.Min
	}
	if def.Max != nil && n > *def.Max {
		n = *def.Max
	}
	if def.Step != nil && *def.Step > 0 {
		base := 0.0
		if def.Min != nil {
			base = *def.Min
		}
		steps := math.Round((n - base) / *def.Step)
		n = base + steps*(*def.Step)
		if def.Max != nil && n > *def.Max {
			n -= *def.Step
		}
		if def.Min != nil && n < *def.Min {
			n = *def.Min
		}
	}
	return n
}

func Float(p float64) *float64 { return &p }
