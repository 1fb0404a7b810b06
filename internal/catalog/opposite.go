package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/CreasolTech/DomBusGateway/internal/module"
)

// ParseOppositeSpec decodes an OPPOSITE option value into a DeviceID,
// relative to the device that carries the option. Grounded on
// original_source/dombusgateway.py's inline comment: "OPPOSITE = 'd' =>
// dev = BBHHHH000d; OPPOSITE maybe 1234.b => dev = BB1234000b where B =
// current busID; OPPOSITE maybe 021234.b => dev = 021234000b" — i.e. a
// bare port (hex) keeps the current bus+module; "<module>.<port>" keeps
// the current bus; "<bus><module>.<port>" is fully explicit.
func ParseOppositeSpec(spec string, owner DeviceID) (DeviceID, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, fmt.Errorf("catalog: empty OPPOSITE spec")
	}

	dot := strings.IndexByte(spec, '.')
	if dot < 0 {
		port, err := strconv.ParseUint(spec, 16, 16)
		if err != nil {
			return 0, fmt.Errorf("catalog: invalid OPPOSITE port %q: %w", spec, err)
		}
		return NewDeviceID(owner.FrameAddr(), uint16(port)), nil
	}

	left, right := spec[:dot], spec[dot+1:]
	port, err := strconv.ParseUint(right, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("catalog: invalid OPPOSITE port %q: %w", right, err)
	}

	var busID uint8
	var moduleHex string
	if len(left) > 4 {
		busIDVal, err := strconv.ParseUint(left[:len(left)-4], 16, 8)
		if err != nil {
			return 0, fmt.Errorf("catalog: invalid OPPOSITE bus %q: %w", left[:len(left)-4], err)
		}
		busID = uint8(busIDVal)
		moduleHex = left[len(left)-4:]
	} else {
		busID = owner.FrameAddr().BusID()
		moduleHex = left
	}

	moduleAddr, err := strconv.ParseUint(moduleHex, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("catalog: invalid OPPOSITE module %q: %w", moduleHex, err)
	}

	return NewDeviceID(module.NewFrameAddr(busID, uint16(moduleAddr)), uint16(port)), nil
}

// ApplyOpposite implements spec.md §4.5's OPPOSITE rule and §8 property
// 9: when d publishes a non-zero power value and carries an OPPOSITE
// reference (already resolved to oppositeID by the caller), the paired
// device is forced to zero. It returns the opposite device so the caller
// republishes its channel, or nil if no action was needed.
func ApplyOpposite(d *Device, opposite *Device) *Device {
	if opposite == nil || d.Value == 0 {
		return nil
	}
	if opposite.Value == 0 {
		return nil // already zero, nothing to republish
	}
	opposite.Value = 0
	return opposite
}

// ResolveOpposite looks up d's OPPOSITE-paired device in c and applies
// ApplyOpposite, returning the paired device when it needed zeroing.
func (c *Catalog) ResolveOpposite(d *Device) *Device {
	if !d.HasOpposite {
		return nil
	}
	opposite, ok := c.Get(d.OppositeID)
	if !ok {
		return nil
	}
	return ApplyOpposite(d, opposite)
}
