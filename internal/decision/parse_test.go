package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_ValidJSON(t *testing.T) {
	raw := `{"summary":"go long","reasoning":"momentum","actions":[{"symbol":"btcusdt","action":"open_long","leverage":5,"notional":2000}]}`

	d := Parse(raw)

	assert.Equal(t, "go long", d.Summary)
	assert.Equal(t, "momentum", d.Reasoning)
	if assert.Len(t, d.Actions, 1) {
		assert.Equal(t, "BTCUSDT", d.Actions[0].Symbol)
		assert.Equal(t, ActionOpenLong, d.Actions[0].Kind)
		assert.Equal(t, 5, d.Actions[0].Leverage)
		assert.Equal(t, 2000.0, d.Actions[0].Notional)
	}
}

func TestParse_JSONWrappedInProse(t *testing.T) {
	raw := "Sure! Here is my decision:\n```json\n{\"summary\":\"close\",\"reasoning\":\"take profit\",\"actions\":[{\"symbol\":\"ETHUSDT\",\"action\":\"close_long\"}]}\n```\nGood luck."

	d := Parse(raw)

	assert.Equal(t, "close", d.Summary)
	assert.Len(t, d.Actions, 1)
}

func TestParse_GarbageDegradesToHold(t *testing.T) {
	d := Parse("I refuse to answer in the requested format")

	assert.Equal(t, "hold", d.Summary)
	assert.Empty(t, d.Actions)
	assert.Contains(t, d.Reasoning, "refuse")
}

func TestParse_DropsMalformedActions(t *testing.T) {
	raw := `{"summary":"mixed","reasoning":"r","actions":[
		{"symbol":"BTCUSDT","action":"open_long","leverage":0},
		{"symbol":"","action":"open_short"},
		{"symbol":"ETHUSDT","action":"teleport"},
		{"symbol":"SOLUSDT","action":"wait"}
	]}`

	d := Parse(raw)

	// First action kept with leverage floored to 1, "wait" folded into hold,
	// the rest dropped.
	if assert.Len(t, d.Actions, 2) {
		assert.Equal(t, ActionOpenLong, d.Actions[0].Kind)
		assert.Equal(t, 1, d.Actions[0].Leverage)
		assert.Equal(t, ActionHold, d.Actions[1].Kind)
	}
}
