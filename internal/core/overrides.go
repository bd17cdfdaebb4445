package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Overrides maps template ids to the amount to use for a single apply call.
// Keys are normalized to int64 on ingestion so lookups never depend on how the
// caller serialized the id. Only positive amounts are ever stored.
type Overrides map[int64]int64

// Set records amount for id, ignoring non-positive amounts.
func (o Overrides) Set(id, amount int64) {
	if amount > 0 {
		o[id] = amount
	}
}

// Lookup returns the override for id when one is present and positive.
func (o Overrides) Lookup(id int64) (int64, bool) {
	if o == nil {
		return 0, false
	}
	v, ok := o[id]
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}

// NormalizeOverrides builds Overrides from loosely typed input such as a decoded
// JSON object. Keys may be numeric strings ("7", "7.0") and values may be numbers
// or numeric strings. Entries that cannot be read or are not positive are dropped.
func NormalizeOverrides(raw map[string]any) Overrides {
	out := make(Overrides, len(raw))
	for k, v := range raw {
		id, ok := parseTemplateID(k)
		if !ok {
			continue
		}
		amount, ok := overrideAmount(v)
		if !ok {
			continue
		}
		out.Set(id, amount)
	}
	return out
}

// UnmarshalJSON accepts an object keyed by template id or null.
func (o *Overrides) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: overrides must be an object keyed by template id", ErrValidation)
	}
	*o = NormalizeOverrides(raw)
	return nil
}

// ParseOverride reads an "ID=AMOUNT" pair, as given on the command line. A
// non-positive amount means no override and comes back as 0, which Set drops.
func ParseOverride(s string) (int64, int64, error) {
	k, v, ok := strings.Cut(s, "=")
	if !ok {
		return 0, 0, fmt.Errorf("%w: override %q must look like ID=AMOUNT", ErrValidation, s)
	}
	id, ok := parseTemplateID(k)
	if !ok {
		return 0, 0, fmt.Errorf("%w: invalid template id in override %q", ErrValidation, s)
	}
	amount, err := minorUnits(v)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid amount in override %q", ErrValidation, s)
	}
	return id, max(amount, 0), nil
}

func parseTemplateID(k string) (int64, bool) {
	k = strings.TrimSpace(k)
	if id, err := strconv.ParseInt(k, 10, 64); err == nil {
		return id, id > 0
	}
	f, err := strconv.ParseFloat(k, 64)
	if err != nil || f != float64(int64(f)) || f <= 0 {
		return 0, false
	}
	return int64(f), true
}

func overrideAmount(v any) (int64, bool) {
	switch x := v.(type) {
	case float64:
		a, err := AmountFromFloat(x)
		return a, err == nil
	case int:
		return int64(x), true
	case int64:
		return x, true
	case json.Number:
		a, err := ParseAmount(x.String())
		return a, err == nil
	case string:
		a, err := ParseAmount(x)
		return a, err == nil
	default:
		return 0, false
	}
}
