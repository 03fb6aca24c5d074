package analyst

import (
	"fmt"
	"strings"
	"time"

	"peregrine/internal/analysis"
	"peregrine/internal/indicator"
)

const systemPrompt = `You are a disciplined perpetual-futures analyst. You receive a market
snapshot and respond with exactly one JSON object, no prose outside it:

{"direction":"long|short|flat","entryPrice":0,"stopLoss":0,"takeProfit":0,"confidence":0,"reasoning":"..."}

Rules:
- "flat" when nothing is worth doing; omit or zero the price fields.
- For long: stopLoss below entryPrice, takeProfit above it. Reversed for short.
- confidence is 0-100. Below 60 means you would not take the trade yourself.
- Never propose a trade against the stated regime.`

// buildPrompt renders the pair snapshot as structured text. The model
// sees the same bundle the deterministic engines see, nothing more.
func buildPrompt(pair *analysis.Pair, recentBars int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Instrument: %s\n", pair.Symbol)
	fmt.Fprintf(&b, "Regime: %s\n", pair.Regime)
	fmt.Fprintf(&b, "Mark price: %.6f\n", pair.MarkPrice)
	fmt.Fprintf(&b, "Predicted funding rate: %.6f\n", pair.Funding)
	fmt.Fprintf(&b, "Open interest: %.2f\n\n", pair.OpenInt)

	for _, tf := range analysis.Timeframes {
		writeBundle(&b, tf, pair.Bundle(tf))
	}

	candles := pair.Candles[analysis.TFCanonical]
	if recentBars > 0 && len(candles) > 0 {
		if len(candles) > recentBars {
			candles = candles[len(candles)-recentBars:]
		}
		fmt.Fprintf(&b, "Recent %s candles (time open high low close volume):\n", analysis.TFCanonical)
		for _, c := range candles {
			ts := time.UnixMilli(c.OpenTime).UTC().Format("01-02 15:04")
			fmt.Fprintf(&b, "%s %.4f %.4f %.4f %.4f %.1f\n", ts, c.Open, c.High, c.Low, c.Close, c.Volume)
		}
	}
	return b.String()
}

func writeBundle(b *strings.Builder, tf string, bundle *indicator.Bundle) {
	fmt.Fprintf(b, "[%s]\n", tf)
	if bundle == nil {
		b.WriteString("no data\n\n")
		return
	}
	writeField(b, "RSI", bundle.RSI)
	writeField(b, "MACD", bundle.MACD)
	writeField(b, "MACD signal", bundle.MACDSignal)
	writeField(b, "MACD hist", bundle.MACDHist)
	writeField(b, "BB upper", bundle.BBUpper)
	writeField(b, "BB middle", bundle.BBMiddle)
	writeField(b, "BB lower", bundle.BBLower)
	writeField(b, "BB width", bundle.BBWidth)
	writeField(b, "ATR", bundle.ATR)
	writeField(b, "VWAP", bundle.VWAP)
	writeField(b, "ADX", bundle.ADX)
	b.WriteString("\n")
}

func writeField(b *strings.Builder, name string, v *float64) {
	if v == nil {
		fmt.Fprintf(b, "%s: n/a\n", name)
		return
	}
	fmt.Fprintf(b, "%s: %.6f\n", name, *v)
}
