package decision

// Action kinds an agent may request. "wait" in an agent payload is folded
// into ActionHold during parsing.
const (
	ActionOpenLong   = "open_long"
	ActionOpenShort  = "open_short"
	ActionCloseLong  = "close_long"
	ActionCloseShort = "close_short"
	ActionHold       = "hold"
)

// Action is one requested order. Sizing is either an explicit Quantity in
// base units or a target Notional in quote currency; when both are zero a
// close means "the entire position" and an open is infeasible.
type Action struct {
	Symbol   string  `json:"symbol"`
	Kind     string  `json:"action"`
	Leverage int     `json:"leverage"`
	Quantity float64 `json:"quantity,omitempty"`
	Notional float64 `json:"notional,omitempty"`
}

// IsOpen reports whether the action opens or adds to a position.
func (a Action) IsOpen() bool {
	return a.Kind == ActionOpenLong || a.Kind == ActionOpenShort
}

// IsClose reports whether the action closes (part of) a position.
func (a Action) IsClose() bool {
	return a.Kind == ActionCloseLong || a.Kind == ActionCloseShort
}

// Side returns the ledger side the action targets.
func (a Action) Side() string {
	if a.Kind == ActionOpenLong || a.Kind == ActionCloseLong {
		return "long"
	}
	return "short"
}

// Decision is one agent's structured answer for one cycle.
type Decision struct {
	Summary   string   `json:"summary"`
	Reasoning string   `json:"reasoning"`
	Actions   []Action `json:"actions"`
}

// Hold builds the safe default decision used when an agent cannot be asked
// or answers with something unusable.
func Hold(reasoning string) Decision {
	return Decision{Summary: "hold", Reasoning: reasoning}
}
