package execution

import "math"

// bpsDenominator converts basis points to a fraction.
const bpsDenominator = 10000.0

// ApplySlippage moves a price against the trader: a buy pays up, a sell
// receives down.
func ApplySlippage(price, bps float64, buying bool) float64 {
	adj := price * (bps / bpsDenominator)
	if buying {
		return price + adj
	}
	return price - adj
}

// RoundToTick rounds a price to the nearest multiple of tick, half away from
// zero. Idempotent: rounding a rounded price changes nothing.
func RoundToTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	return math.Round(price/tick) * tick
}

// ImpactBps returns the square-root market impact concession in basis points
// for an order of the given notional against the symbol's average daily
// value. Zero or unknown ADV falls back to the fixed conservative charge.
func ImpactBps(notional, adv, coeffBps, fallbackBps float64) float64 {
	if adv <= 0 {
		return fallbackBps
	}
	participation := notional / adv
	if participation > 1 {
		participation = 1
	}
	if participation < 0 {
		participation = 0
	}
	return coeffBps * math.Sqrt(participation)
}

// ClampToCircuit clips a price level into the exchange circuit band around
// the reference price: [ref*(1-pct), ref*(1+pct)].
func ClampToCircuit(level, ref, pct float64) float64 {
	lo := ref * (1 - pct)
	hi := ref * (1 + pct)
	if level < lo {
		return lo
	}
	if level > hi {
		return hi
	}
	return level
}
