package admin

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/CreasolTech/DomBusGateway/internal/catalog"
	"github.com/CreasolTech/DomBusGateway/internal/frame"
	"github.com/CreasolTech/DomBusGateway/internal/module"
	"github.com/CreasolTech/DomBusGateway/internal/txqueue"
)

// adminCommand is one entry of the command table spec.md §4.7 names:
// "help, refresh [reset], showbus [busID], showmodule [addr], rmmodule
// addr…, setport port spec".
type adminCommand struct {
	help string
	run  func(s *Server, sess *session, args string, w io.Writer)
}

var commands map[string]adminCommand

func init() {
	commands = map[string]adminCommand{
		"help": {
			help: `Print this help. Type "help CMD" to get info about the specified command`,
			run:  cmdHelp,
		},
		"refresh": {
			help: "Send the current configuration and value of every device to the broker.\r\n" +
				`With "refresh reset" every entity is retired and re-created from scratch.`,
			run: cmdRefresh,
		},
		"showbus": {
			help: `Show the list of configured buses, or select one: "showbus 1"`,
			run:  cmdShowbus,
		},
		"showmodule": {
			help: `Show modules on the selected bus, or select one: "showmodule ffe3"`,
			run:  cmdShowmodule,
		},
		"rmmodule": {
			help: `Remove one or more modules (and their devices) from the gateway and the broker: "rmmodule ffe3"`,
			run:  cmdRmmodule,
		},
		"setport": {
			help: "Configure the selected module's port. \"showmodule\" must have selected a module first.\r\n" +
				`Examples: "setport 01 IN_ANALOG,A=0.00042", "setport 02 IN_DIGITAL,INVERTED"`,
			run: cmdSetport,
		},
	}
}

func cmdHelp(s *Server, sess *session, args string, w io.Writer) {
	if args != "" {
		if c, ok := commands[args]; ok {
			fmt.Fprintf(w, "%s\r\n", c.help)
			return
		}
	}
	fmt.Fprint(w, "This interface permits to check and set configuration for a DomBus network of home automation modules.\r\nAvailable commands:\r\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		hs := strings.ReplaceAll(commands[name].help, "\r\n", "\r\n           ")
		fmt.Fprintf(w, "%-10s %s\r\n", name, hs)
	}
}

// cmdRefresh implements spec.md §4.7 "refresh [reset]": it forces a config
// and value publication for every device owned by a live module, bypassing
// the change+heartbeat and republish-diff gates that normally suppress
// redundant publications. With "reset" it retires the current entity
// first, so Home Assistant recreates it (grounded on
// original_source/dombusgateway.py's cmd_refresh).
func cmdRefresh(s *Server, sess *session, args string, w io.Writer) {
	reset := strings.TrimSpace(args) == "reset"

	devices := s.catalog.Snapshot()
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })

	for _, d := range devices {
		frameAddr := d.ID.FrameAddr()
		if _, ok := s.registry.Get(frameAddr); !ok {
			fmt.Fprintf(w, "Skip device %s: module %06x not alive or not received yet\r\n", d.ID.Name(), uint32(frameAddr))
			continue
		}
		fmt.Fprintf(w, "Sending configuration refresh for device %s portType=%s platform=%s...\r\n", d.ID.Name(), d.PortType, catalog.PlatformFor(d))
		if reset {
			s.publisher.RetireConfig(d)
		}
		forceDiff := catalog.ComputeConfigDiff(&catalog.Device{}, d)
		s.publisher.NotifyConfigChanged(d, forceDiff)
		d.LastPublishedValueHA = ""
		s.publisher.NotifyStateChanged(d)
	}
}

func cmdShowbus(s *Server, sess *session, args string, w io.Writer) {
	var bus uint8
	args = strings.TrimSpace(args)
	if args != "" {
		v, err := strconv.ParseUint(args, 16, 8)
		if err != nil {
			fmt.Fprintf(w, "Invalid bus id %q\r\n", args)
		} else {
			bus = uint8(v)
		}
	}

	buses := map[uint8]BusStatus{}
	if s.buses != nil {
		buses = s.buses.Buses()
	}

	if bus != 0 {
		if _, ok := buses[bus]; ok {
			sess.selectedBus = bus
			showModuleList(s, sess, w)
			return
		}
		fmt.Fprintf(w, "Unknown bus %02x\r\n", bus)
	}

	fmt.Fprint(w, "Available buses:\r\n")
	ids := make([]uint8, 0, len(buses))
	for id := range buses {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		st := buses[id]
		state := "DISCONNECTED"
		if st.Connected {
			state = "CONNECTED"
		}
		fmt.Fprintf(w, "- %02x: %-20s %s\r\n", id, st.Path, state)
	}
}

func cmdShowmodule(s *Server, sess *session, args string, w io.Writer) {
	var addr uint16
	args = strings.TrimSpace(args)
	if args != "" {
		v, err := strconv.ParseUint(args, 16, 16)
		if err != nil {
			fmt.Fprint(w, "Invalid module address\r\n")
		} else {
			addr = uint16(v)
		}
	}

	if addr != 0 {
		frameAddr := module.NewFrameAddr(sess.selectedBus, addr)
		if _, ok := s.registry.Get(frameAddr); ok {
			sess.selectedModule = addr
			showDeviceList(s, sess, w)
			return
		}
	}
	showModuleList(s, sess, w)
}

// cmdRmmodule implements spec.md §4.7 "rmmodule addr…": each argument is a
// module address (optionally bus-prefixed), all of its devices are
// retired from the broker and removed, its TX queue is cleared and it is
// evicted from the registry (grounded on
// original_source/dombusgateway.py's cmd_rmmodule).
func cmdRmmodule(s *Server, sess *session, args string, w io.Writer) {
	for _, tok := range strings.Fields(args) {
		v, err := strconv.ParseUint(tok, 16, 32)
		if err != nil {
			fmt.Fprintf(w, "Invalid module address: %s\r\n", tok)
			continue
		}
		addr := uint32(v)
		if addr == 0 || addr == 0xffff {
			fmt.Fprint(w, "Invalid address: cannot be 0 or ffff\r\n")
			continue
		}

		var frameAddr module.FrameAddr
		switch {
		case addr < 0xffff:
			frameAddr = module.NewFrameAddr(sess.selectedBus, uint16(addr))
		case addr < 0xffffff:
			frameAddr = module.FrameAddr(addr)
		default:
			fmt.Fprint(w, "Invalid address: should be between 1 and fffe (only addr) or 10001 to fffffe (with bus number)\r\n")
			continue
		}

		if _, ok := s.registry.Get(frameAddr); !ok {
			fmt.Fprintf(w, "Module %04x does not exist on bus %02x\r\n", frameAddr.ModuleAddr(), frameAddr.BusID())
			continue
		}

		for _, d := range s.catalog.DevicesForModule(frameAddr) {
			fmt.Fprintf(w, "Removing port %04x for module %06x...\r\n", d.ID.Port(), uint32(frameAddr))
			s.publisher.RetireConfig(d)
			s.catalog.Remove(d.ID)
		}
		s.txq.ClearModule(frameAddr)
		s.registry.Evict(frameAddr)
	}
}

// cmdSetport implements spec.md §4.7 "setport port spec" and scenario F.
// It mirrors original_source/dombusgateway.py's cmd_setport, which only
// mutates a port that is already a known device of the selected module.
func cmdSetport(s *Server, sess *session, args string, w io.Writer) {
	parts := strings.SplitN(strings.TrimSpace(args), " ", 2)
	if parts[0] == "" {
		fmt.Fprint(w, "Usage: setport <port> <spec>\r\n")
		return
	}
	portVal, err := strconv.ParseUint(parts[0], 16, 16)
	if err != nil || portVal == 0 {
		fmt.Fprintf(w, "Invalid port %q\r\n", parts[0])
		return
	}
	port := uint16(portVal)

	if sess.selectedModule == 0 {
		fmt.Fprint(w, `Please select an existing module with command "showmodule XXXX"`+"\r\n")
		return
	}
	frameAddr := module.NewFrameAddr(sess.selectedBus, sess.selectedModule)
	if _, ok := s.registry.Get(frameAddr); !ok {
		fmt.Fprint(w, `Please select an existing module with command "showmodule XXXX"`+"\r\n")
		return
	}

	id := catalog.NewDeviceID(frameAddr, port)
	d, ok := s.catalog.Get(id)
	if !ok {
		fmt.Fprintf(w, "Module %04x on bus %02x does not have port %04x\r\n", sess.selectedModule, sess.selectedBus, port)
		return
	}

	before := *d
	if len(parts) == 2 {
		applySetportSpec(d, parts[1], w)
	}

	oldPlatform := catalog.PlatformFor(&before)
	newPlatform := catalog.PlatformFor(d)
	if oldPlatform != newPlatform {
		retireStub := before
		s.publisher.RetireConfig(&retireStub)
	}

	if before.PortType != d.PortType || before.PortOpt != d.PortOpt {
		sendPortTypeConfig(s.txq, frameAddr, d)
	}

	s.catalog.Put(d)
	diff := catalog.ComputeConfigDiff(&before, d)
	s.publisher.NotifyConfigChanged(d, diff)

	fmt.Fprintf(w, "Updated port %04x: type=%s opt=%s\r\n", port, d.PortType, d.PortOpt)
}

// sendPortTypeConfig enqueues the CMD_CONFIG that pushes d's new
// portType/portOpt to the bus module (spec.md §8 scenario F "engine
// enqueues CONFIG update with new type"), grounded on
// original_source/dombusgateway.py's updateDeviceConfig:
// "txQueueAdd(frameAddr, CMD_CONFIG, 7, 0, port, [portType 4 bytes BE,
// portOpt 2 bytes BE], TX_RETRY, 0)".
func sendPortTypeConfig(txq *txqueue.Queue, frameAddr module.FrameAddr, d *catalog.Device) {
	pt := uint32(d.PortType)
	po := uint16(d.PortOpt)
	args := []byte{
		byte(pt >> 24), byte(pt >> 16), byte(pt >> 8), byte(pt),
		byte(po >> 8), byte(po),
	}
	txq.Enqueue(frameAddr, txqueue.Cmd{
		Kind:        frame.KindConfig,
		Port:        uint8(d.ID.Port()),
		Args:        args,
		RetriesLeft: txqueue.TxRetry,
	})
}
