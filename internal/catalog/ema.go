package catalog

import "math"

// emaSpikeGuard is the threshold below which a new sample is blended into
// the running average (spec.md §4.4/§8 scenario E).
const emaSpikeGuard = 1.5

// applyEMA folds sample into d's 6-sample exponential moving average,
// guarding against spikes: a sample further than emaSpikeGuard from the
// current average is published as-is without updating the average,
// exactly as original_source/dombusgateway.py's updateFromBus does for
// 2-byte analog/temperature ports (spec.md §13 supplemented features).
// It returns the value to publish for this sample.
func (d *Device) applyEMA(sample float64) float64 {
	if !d.emaSet {
		d.ema = sample
		d.emaSet = true
		return sample
	}

	if math.Abs(sample-d.ema) >= emaSpikeGuard {
		return sample
	}

	d.ema = (d.ema*5 + sample) / 6
	return d.ema
}

// UpdateAnalogSample decodes a 2-byte analog/temperature sample into
// d.Value, applying the EMA spike guard (spec.md §4.4).
func (d *Device) UpdateAnalogSample(sample float64) {
	d.Value = d.applyEMA(sample)
}
