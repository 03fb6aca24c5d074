package analyst

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"peregrine/internal/decision"
	"peregrine/internal/pkg/jsonutil"
)

// rawDecision is the JSON shape the model is asked to produce.
type rawDecision struct {
	Direction  string  `json:"direction"`
	EntryPrice float64 `json:"entryPrice"`
	StopLoss   float64 `json:"stopLoss"`
	TakeProfit float64 `json:"takeProfit"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Parse turns free-form model output into a validated decision. Any
// failure discards the whole response; a half-trusted trade proposal
// is worse than none.
func Parse(raw string) (*decision.Decision, error) {
	obj, ok := jsonutil.ExtractObject(raw)
	if !ok {
		return nil, fmt.Errorf("no JSON object in response")
	}
	if !gjson.Valid(obj) {
		return nil, fmt.Errorf("extracted object is not valid JSON")
	}
	if !gjson.Get(obj, "direction").Exists() {
		return nil, fmt.Errorf("response object has no direction field")
	}
	var parsed rawDecision
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		return nil, fmt.Errorf("decode response object: %w", err)
	}

	dir, ok := decision.ParseDirection(strings.ToLower(strings.TrimSpace(parsed.Direction)))
	if !ok {
		return nil, fmt.Errorf("invalid direction %q", parsed.Direction)
	}
	confidence := parsed.Confidence
	if confidence < 0 || confidence > 100 {
		return nil, fmt.Errorf("confidence %.1f out of range", confidence)
	}

	d := &decision.Decision{
		Direction:  dir,
		Confidence: confidence,
		Reasoning:  strings.TrimSpace(parsed.Reasoning),
	}
	if dir == decision.Flat {
		return d, nil
	}
	d.EntryPrice = parsed.EntryPrice
	d.StopLoss = parsed.StopLoss
	d.TakeProfit = parsed.TakeProfit
	// Validate covers finite positive prices and stop/target sides.
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}
