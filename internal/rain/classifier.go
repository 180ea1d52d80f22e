package rain

import "math"

// Thresholds is the rectangular acceptance region for the rain classifier.
// A sample classifies as rain only when both temperature and humidity fall
// inside their configured ranges.
type Thresholds struct {
	TempMin     float64
	TempMax     float64
	HumidityMin float64
	HumidityMax float64
}

// DefaultThresholds mirrors the deployed sensor calibration: warm air with
// near-saturated humidity.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TempMin:     24,
		TempMax:     30,
		HumidityMin: 80,
		HumidityMax: 100,
	}
}

// Classify maps one (temperature, humidity) pair to a "rain now" signal.
// Missing or non-finite values never classify as rain; the function is pure
// and never fails.
func (t Thresholds) Classify(temperature, humidity *float64) bool {
	if temperature == nil || humidity == nil {
		return false
	}

	tc, hc := *temperature, *humidity
	if !isFinite(tc) || !isFinite(hc) {
		return false
	}

	return tc >= t.TempMin && tc <= t.TempMax &&
		hc >= t.HumidityMin && hc <= t.HumidityMax
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
