package catalog

import (
	"math"
	"time"
)

// UpdateCounter decodes a 4-byte counter-pair sample (current, previous)
// into power and accumulated energy (spec.md §4.4, §8 scenario D):
// power = round(delta * (3600000000/msElapsed) * A); energy += delta*A.
//
// If previousCounter does not match the cached counter value, the sample
// is inconsistent (spec.md §7: "inconsistent counter … reset power
// derivation on this sample to avoid spike") — the cache is still
// resynchronised but no power sample is produced.
func (d *Device) UpdateCounter(value, previousCounter uint16, now time.Time) (power float64, ok bool) {
	if previousCounter != d.CounterValue || d.CounterTime.IsZero() {
		d.CounterValue = value
		d.CounterTime = now
		return 0, false
	}

	delta := int32(value) - int32(previousCounter)
	msElapsed := now.Sub(d.CounterTime).Milliseconds()
	d.CounterValue = value
	d.CounterTime = now

	if msElapsed <= 0 {
		return 0, false
	}

	power = math.Round(float64(delta) * (3600000000.0 / float64(msElapsed)) * d.A())
	d.Energy += float64(delta) * d.A()
	d.Value = power
	return power, true
}

// UpdatePowerEnergy decodes the 6-byte signed-power + unsigned-32-bit-
// energy sample (spec.md §4.4: "signed 16-bit power + unsigned 32-bit
// energy in units of 10 Wh; negative energies via two's-complement").
func (d *Device) UpdatePowerEnergy(powerRaw int16, energyRaw uint32) {
	d.Value = float64(powerRaw)
	d.Energy = float64(int32(energyRaw)) * 10.0 / 1000.0 // units of 10 Wh -> kWh
}
