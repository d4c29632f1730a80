package decision

import (
	"encoding/json"
	"strings"
)

var validKinds = map[string]bool{
	ActionOpenLong:   true,
	ActionOpenShort:  true,
	ActionCloseLong:  true,
	ActionCloseShort: true,
	ActionHold:       true,
}

// Parse turns a raw agent response into a Decision. Agents are expected to
// answer with a JSON object, but responses wrapped in prose are common, so a
// failed unmarshal falls back to extracting the outermost {...} block.
// Anything still unusable degrades to a hold decision carrying the raw text
// as reasoning; malformed payloads are never an error. Malformed individual
// actions are dropped.
func Parse(raw string) Decision {
	var d Decision
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start < 0 || end <= start {
			return Hold(raw)
		}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &d); err != nil {
			return Hold(raw)
		}
	}

	kept := d.Actions[:0]
	for _, a := range d.Actions {
		a.Kind = strings.ToLower(strings.TrimSpace(a.Kind))
		if a.Kind == "wait" {
			a.Kind = ActionHold
		}
		if !validKinds[a.Kind] {
			continue
		}
		if a.Kind != ActionHold && a.Symbol == "" {
			continue
		}
		a.Symbol = strings.ToUpper(a.Symbol)
		if a.Leverage < 1 {
			a.Leverage = 1
		}
		kept = append(kept, a)
	}
	d.Actions = kept

	if d.Summary == "" {
		d.Summary = "hold"
	}
	return d
}
