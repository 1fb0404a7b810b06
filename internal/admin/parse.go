package admin

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/CreasolTech/DomBusGateway/internal/catalog"
)

// optionKeys is the options whitelist from spec.md §4.7: "KEY=VALUE where
// KEY ∈ options whitelist (A, B, CAL, INIT, PAR1..PAR11, EVMAXCURRENT,
// EVMAXPOWER, EVSTARTPOWER, EVSTOPTIME, EVAUTOSTART, EVMAXPOWER2,
// EVMAXPOWERTIME, EVMAXPOWERTIME2, EVWAITTIME, EVMETERTYPE, EVMINVOLTAGE,
// DIVIDER, OPPOSITE, HWADDR, ADDR, FUNCTION)".
var optionKeys = func() map[string]bool {
	names := []string{
		"A", "B", "CAL", "INIT",
		"EVMAXCURRENT", "EVMAXPOWER", "EVSTARTPOWER", "EVSTOPTIME", "EVAUTOSTART",
		"EVMAXPOWER2", "EVMAXPOWERTIME", "EVMAXPOWERTIME2", "EVWAITTIME",
		"EVMETERTYPE", "EVMINVOLTAGE",
		"DIVIDER", "OPPOSITE", "HWADDR", "ADDR", "FUNCTION",
	}
	for i := 1; i <= 11; i++ {
		names = append(names, fmt.Sprintf("PAR%d", i))
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}()

// controllerKeys are the "controller-side keys" spec.md §4.7 says
// "override haOpts": platform, device_class, unit, min, max, step, icon,
// options.
var controllerKeys = map[string]bool{
	"platform": true, "device_class": true, "unit": true,
	"min": true, "max": true, "step": true, "icon": true, "options": true,
}

// applySetportSpec applies a comma-separated `setport` spec string to d,
// token by token (spec.md §4.7). Unrecognised or malformed tokens are
// logged to w and skipped; the remaining tokens are still processed
// (spec.md §7 "User errors ... malformed token, unknown key, out-of-range
// numeric → log and refuse that token; remaining tokens still processed").
func applySetportSpec(d *catalog.Device, spec string, w io.Writer) {
	for _, tok := range strings.Split(spec, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		applySetportToken(d, tok, w)
	}
}

func applySetportToken(d *catalog.Device, tok string, w io.Writer) {
	key, val, hasVal := strings.Cut(tok, "=")
	keyUpper := strings.ToUpper(strings.TrimSpace(key))
	val = strings.TrimSpace(val)

	if !hasVal {
		if pt, ok := catalog.ParsePortType(keyUpper); ok {
			d.PortType = pt
			return
		}
		if po, ok := catalog.ParsePortOpt(keyUpper); ok {
			d.PortOpt |= po
			return
		}
		fmt.Fprintf(w, "Unrecognised setport token %q\r\n", tok)
		return
	}

	if optionKeys[keyUpper] {
		applyOptionKV(d, keyUpper, val, w)
		return
	}
	keyLower := strings.ToLower(strings.TrimSpace(key))
	if controllerKeys[keyLower] {
		applyControllerKV(d, keyLower, val, w)
		return
	}
	fmt.Fprintf(w, "Unrecognised setport key %q\r\n", key)
}

func applyOptionKV(d *catalog.Device, key, val string, w io.Writer) {
	if key == "OPPOSITE" {
		oppID, err := catalog.ParseOppositeSpec(val, d.ID)
		if err != nil {
			fmt.Fprintf(w, "Invalid OPPOSITE spec %q: %v\r\n", val, err)
			return
		}
		d.OppositeID = oppID
		d.HasOpposite = true
		return
	}

	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		fmt.Fprintf(w, "Invalid numeric value for %s: %q\r\n", key, val)
		return
	}
	if d.Options == nil {
		d.Options = make(map[string]float64)
	}
	d.Options[key] = f
	if key == "DIVIDER" && f != 0 {
		// spec.md §9 default table / original_source's parseConfiguration:
		// "if 'DIVIDER' in optionsNew: optionsNew['A'] = 1/float(DIVIDER)".
		d.Options["A"] = 1 / f
	}
}

func applyControllerKV(d *catalog.Device, key, val string, w io.Writer) {
	switch key {
	case "platform":
		d.HA.Platform = catalog.Platform(val)
	case "device_class":
		d.HA.DeviceClass = val
	case "unit":
		d.HA.Unit = val
	case "icon":
		d.HA.Icon = val
	case "options":
		// Outer tokens are already comma-separated, so the select option
		// list uses '|' as its internal separator.
		d.HA.Options = strings.Split(val, "|")
	case "min", "max", "step":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			fmt.Fprintf(w, "Invalid numeric value for %s: %q\r\n", key, val)
			return
		}
		switch key {
		case "min":
			d.HA.Min = f
		case "max":
			d.HA.Max = f
		case "step":
			d.HA.Step = f
		}
	}
}
