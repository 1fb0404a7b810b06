package admin

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/CreasolTech/DomBusGateway/internal/catalog"
	"github.com/CreasolTech/DomBusGateway/internal/module"
)

// showModuleList prints the modules on sess.selectedBus (spec.md §4.7
// showmodule/showbus with no argument), formatted after
// original_source/dombusgateway.py's showModuleList table.
func showModuleList(s *Server, sess *session, w io.Writer) {
	fmt.Fprintf(w, "Modules attached to bus %02x: use \"showbus BUS\" to select another bus\r\n", sess.selectedBus)
	fmt.Fprintf(w, "     Bus     Address Type       Version LastRX\r\n")

	var addrs []uint16
	for _, m := range s.registry.Snapshot() {
		if m.FrameAddr.BusID() == sess.selectedBus {
			addrs = append(addrs, m.FrameAddr.ModuleAddr())
		}
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	for _, addr := range addrs {
		frameAddr := module.NewFrameAddr(sess.selectedBus, addr)
		m, _ := s.registry.Get(frameAddr)
		elapsed := "never"
		if !m.LastRx.IsZero() {
			elapsed = time.Since(m.LastRx).Round(time.Second).String()
		}
		fmt.Fprintf(w, "- Bus %02x Module %04x %-10s %-7s %s\r\n", sess.selectedBus, addr, m.ModuleType, m.FirmwareVersion, elapsed)
	}
}

// showDeviceList prints the devices (ports) of sess.selectedModule
// (spec.md §4.7 showmodule with an argument).
func showDeviceList(s *Server, sess *session, w io.Writer) {
	frameAddr := module.NewFrameAddr(sess.selectedBus, sess.selectedModule)
	fmt.Fprintf(w, "Devices (ports) for module %04x on bus %02x:\r\n", sess.selectedModule, sess.selectedBus)

	devices := s.catalog.DevicesForModule(frameAddr)
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })

	for _, d := range devices {
		fmt.Fprintf(w, "- port %04x %-10s: %-14s type=%-10s opt=%-8s value=%s\r\n",
			d.ID.Port(), d.PortName, catalog.PlatformFor(d), d.PortType, d.PortOpt, d.ValueHA)
	}
}
