package protocol

import (
	"strings"
	"time"

	"github.com/CreasolTech/DomBusGateway/internal/catalog"
	"github.com/CreasolTech/DomBusGateway/internal/frame"
	"github.com/CreasolTech/DomBusGateway/internal/infrastructure/config"
	"github.com/CreasolTech/DomBusGateway/internal/infrastructure/logging"
	"github.com/CreasolTech/DomBusGateway/internal/module"
	"github.com/CreasolTech/DomBusGateway/internal/txqueue"
)

// DCmdMax bounds a DCMD command's arg to the defined scene/group range
// (spec.md §4.4 "if arg < DCMD_MAX"). Not given a numeric value by spec.md
// or original_source/'s DB module (external, not in the retrieval pack);
// chosen generously to cover any plausible scene/group index.
const DCmdMax = 64

// Publisher receives device changes the Protocol Engine discovers while
// dispatching frames. Implemented by internal/publisher; kept as an
// interface here so the engine is tested without a live MQTT connection,
// the same decoupling the teacher's bridge.go uses for its MQTTClient
// dependency.
type Publisher interface {
	NotifyStateChanged(d *catalog.Device)
	NotifyConfigChanged(d *catalog.Device, diff int)
}

// PortDisabled reports whether a given port on frameAddr has been
// administratively disabled (spec.md §4.4 "ignore disabled ports"); the
// Admin Command Processor owns this set. A nil func disables nothing.
type PortDisabled func(frameAddr module.FrameAddr, port uint8) bool

// Engine is the Protocol Engine (spec.md §4.4): it decodes each inbound
// frame's commands in order and reacts by mutating the Device Catalog,
// the Module Registry and the TX Queue, and notifying Publisher of
// changes.
type Engine struct {
	catalog  *catalog.Catalog
	registry *module.Registry
	txq      *txqueue.Queue
	pub      Publisher
	logger   *logging.Logger
	disabled PortDisabled
}

// NewEngine wires a Protocol Engine over the given Catalog, Registry, TX
// Queue and Publisher. disabled may be nil.
func NewEngine(cat *catalog.Catalog, reg *module.Registry, txq *txqueue.Queue, pub Publisher, logger *logging.Logger, disabled PortDisabled) *Engine {
	return &Engine{catalog: cat, registry: reg, txq: txq, pub: pub, logger: logger, disabled: disabled}
}

// HandleFrame dispatches every command in fr, received on bus busID at
// now (spec.md §4.4). fr is assumed already checksum-validated by
// internal/frame's Decoder.
func (e *Engine) HandleFrame(busID uint8, fr frame.Frame, now time.Time) {
	if fr.Src == frame.AddrBroadcast || fr.Src == 0 {
		e.logger.Dump(config.LogDebug, "received a broadcast frame", "bus", busID)
		return
	}

	frameAddr := module.NewFrameAddr(busID, fr.Src)
	e.registry.Touch(frameAddr, now)

	if fr.Dst != 0 {
		e.handleForwardedFrame(frameAddr, fr)
		return
	}

	for _, cmd := range fr.Commands {
		if cmd.Ack {
			e.handleAck(frameAddr, cmd, now)
			continue
		}
		e.handleNonAck(frameAddr, cmd, now)
	}
}

// handleForwardedFrame logs DCMD commands overheard addressed to another
// module on a shared bus (spec.md §4.4 "if dst is another module, log the
// forward"); no state is mutated.
func (e *Engine) handleForwardedFrame(frameAddr module.FrameAddr, fr frame.Frame) {
	for _, cmd := range fr.Commands {
		if cmd.Ack || cmd.Kind != frame.KindDCmd || len(cmd.Args) == 0 {
			continue
		}
		if cmd.Args[0] < DCmdMax {
			e.logger.Info("dcmd forwarded to another module",
				"frameAddr", frameAddr, "dst", fr.Dst, "port", cmd.Port)
		}
	}
}

func (e *Engine) handleAck(frameAddr module.FrameAddr, cmd frame.Command, now time.Time) {
	e.txq.Remove(frameAddr, cmd.Kind, cmd.Port, firstByte(cmd.Args))

	switch {
	case cmd.Kind == frame.KindConfig && cmd.Port == 0xFE:
		e.handleVersionAck(frameAddr, cmd)
	case cmd.Kind == frame.KindConfig && cmd.Bulk:
		e.handlePortEnumerationAck(frameAddr, cmd)
	case cmd.Kind == frame.KindSet:
		e.handleSetAck(frameAddr, cmd)
	}
}

func (e *Engine) handleVersionAck(frameAddr module.FrameAddr, cmd frame.Command) {
	revision, moduleType, ok := parseVersion(cmd.Args)
	if !ok {
		e.logger.Dump(config.LogWarn, "malformed version ack", "frameAddr", frameAddr)
		return
	}
	e.registry.SetVersion(frameAddr, moduleType, revision)
	e.registry.ForceStatusRefresh(frameAddr)
	e.logger.Info("module identified", "frameAddr", frameAddr, "type", moduleType, "revision", revision)
}

func (e *Engine) handlePortEnumerationAck(frameAddr module.FrameAddr, cmd frame.Command) {
	records, err := parsePortEnumeration(cmd.Port, cmd.Args)
	if err != nil {
		e.logger.Dump(config.LogWarn, "malformed port enumeration", "frameAddr", frameAddr, "error", err)
		return
	}

	mod, _ := e.registry.Get(frameAddr)
	for _, rec := range records {
		if e.disabled != nil && e.disabled(frameAddr, rec.Port) {
			continue
		}
		portType := catalog.PortType(rec.PortType)
		portOpt := catalog.PortOpt(rec.PortOpt)
		if portType == catalog.PortTypeCustom && portOpt < catalog.PortOptSelect {
			continue // CUSTOM port without a recognised selector: unconfigured, ignore
		}

		id := catalog.NewDeviceID(frameAddr, uint16(rec.Port))
		if _, exists := e.catalog.Get(id); exists {
			continue
		}

		dev := catalog.NewDevice(id, portType, portOpt, rec.Name)
		catalog.ApplyDefaults(dev, rec.Name, mod.ModuleType, uint16(rec.Port))
		e.catalog.Put(dev)
		e.pub.NotifyConfigChanged(dev, catalog.ComputeConfigDiff(&catalog.Device{}, dev))

		if dev.HasCompoundMeasurement() {
			aux := catalog.NewAuxDevice(dev)
			e.catalog.Put(aux)
			e.pub.NotifyConfigChanged(aux, catalog.ComputeConfigDiff(&catalog.Device{}, aux))
		}

		if strings.Contains(rec.Name, "EV Mode") {
			e.materializeEVSubDevices(frameAddr, rec.Port)
		}
	}
}

func (e *Engine) materializeEVSubDevices(frameAddr module.FrameAddr, basePort uint8) {
	for _, sub := range catalog.EVModeSubDevices() {
		port := uint16(basePort) + sub.PortOffset
		id := catalog.NewDeviceID(frameAddr, port)
		if _, exists := e.catalog.Get(id); exists {
			continue
		}
		dev := catalog.NewDevice(id, catalog.PortTypeCustom, catalog.PortOptDimmer, sub.Name)
		dev.HA = catalog.HAOpts{Platform: catalog.PlatformNumber, Min: sub.Min, Max: sub.Max, Step: sub.Step, Unit: sub.Unit}
		e.catalog.Put(dev)
		e.pub.NotifyConfigChanged(dev, catalog.ComputeConfigDiff(&catalog.Device{}, dev))
	}
}

func (e *Engine) handleSetAck(frameAddr module.FrameAddr, cmd frame.Command) {
	id := catalog.NewDeviceID(frameAddr, uint16(cmd.Port))
	dev, ok := e.catalog.Get(id)
	if !ok || len(cmd.Args) == 0 {
		return
	}
	dev.Value = float64(cmd.Args[0])
	catalog.ValueToHA(dev)
	e.pub.NotifyStateChanged(dev)
}

func (e *Engine) handleNonAck(frameAddr module.FrameAddr, cmd frame.Command, now time.Time) {
	id := catalog.NewDeviceID(frameAddr, uint16(cmd.Port))
	dev, known := e.catalog.Get(id)
	if !known {
		e.txq.EnqueueAskConfig(frameAddr)
		return
	}

	switch cmd.Kind {
	case frame.KindSet:
		e.handleSetReport(frameAddr, dev, cmd, now)
	case frame.KindGet:
		e.handleGet(frameAddr, dev, cmd)
	case frame.KindConfig:
		if cmd.Port&0xF0 == 0xE0 {
			e.handleLogMessage(frameAddr, cmd)
		}
	case frame.KindDCmd:
		e.handleDCmdSelf(frameAddr, cmd)
	}
}

// handleSetReport decodes a non-ACK SET body (spec.md §4.4). The frame
// codec pads every command's args to an even length (spec.md §4.1), so a
// 1-byte boolean/level report and a 2-byte 16-bit report are both wire
// length 2 and cannot be told apart from length alone; isSingleByteReport
// resolves the ambiguity from the device's own port type.
func (e *Engine) handleSetReport(frameAddr module.FrameAddr, dev *catalog.Device, cmd frame.Command, now time.Time) {
	args := cmd.Args
	switch {
	case len(args) >= 2 && isSingleByteReport(dev.PortType):
		dev.Value = float64(args[0])

	case len(args) == 2:
		raw16 := uint16(args[0])<<8 | uint16(args[1])
		switch dev.HA.DeviceClass {
		case "power":
			dev.Value = float64(int16(raw16))
		case "temperature":
			var tempC float64
			if fn, ok := dev.Options["FUNCTION"]; ok && fn == 3950 {
				tempC = ntcBeta3950(raw16)
			} else {
				tempC = float64(raw16)/10.0 - 273.1
			}
			dev.UpdateAnalogSample(tempC)
		default:
			dev.Value = float64(raw16)
		}

	case len(args) >= 4 && len(args) < 6:
		current := uint16(args[0])<<8 | uint16(args[1])
		previous := uint16(args[2])<<8 | uint16(args[3])
		if dev.PortType == catalog.PortTypeInCounter {
			dev.UpdateCounter(current, previous, now)
		} else {
			dev.Value = float64(current)
		}

	case len(args) >= 6:
		power := int16(uint16(args[0])<<8 | uint16(args[1]))
		energy := uint32(args[2])<<24 | uint32(args[3])<<16 | uint32(args[4])<<8 | uint32(args[5])
		if dev.PortType == catalog.PortTypeCustom && (dev.PortOpt == catalog.PortOptImportEnergy || dev.PortOpt == catalog.PortOptExportEnergy) {
			dev.UpdatePowerEnergy(power, energy)
		} else {
			dev.Value = float64(power)
		}
	}

	catalog.ValueToHA(dev)
	e.txq.Enqueue(frameAddr, txqueue.Cmd{Kind: frame.KindSet, Ack: true, Port: cmd.Port, Args: []byte{firstByte(args)}, RetriesLeft: txqueue.TxRetry})
	e.pub.NotifyStateChanged(dev)

	if opposite := e.catalog.ResolveOpposite(dev); opposite != nil {
		catalog.ValueToHA(opposite)
		e.pub.NotifyStateChanged(opposite)
	}

	e.publishAux(dev)
}

// publishAux republishes the auxiliary channel of a compound-measurement
// device independently of its primary (spec.md §4.5 "Auxiliary (energy)
// channel publishes independently under the same policy"): the energy
// total for power+energy meters, or the detailed alarm state for
// SENSOR_ALARM ports.
func (e *Engine) publishAux(dev *catalog.Device) {
	if !dev.HasCompoundMeasurement() {
		return
	}
	aux, ok := e.catalog.Get(dev.ID.AuxID())
	if !ok {
		return
	}
	if dev.PortType == catalog.PortTypeSensorAlarm {
		aux.Value = dev.Value
	} else {
		aux.Value = dev.Energy
	}
	catalog.ValueToHA(aux)
	e.pub.NotifyStateChanged(aux)
}

func (e *Engine) handleGet(frameAddr module.FrameAddr, dev *catalog.Device, cmd frame.Command) {
	if cmd.Port == 0 {
		e.registry.ForceStatusRefresh(frameAddr)
		e.txq.Enqueue(frameAddr, txqueue.Cmd{Kind: frame.KindGet, Ack: true, Port: cmd.Port, Args: []byte{firstByte(cmd.Args)}, RetriesLeft: txqueue.TxRetry})
		return
	}
	lsb := uint8(int64(dev.Value)) & 0xFF
	e.txq.Enqueue(frameAddr, txqueue.Cmd{Kind: frame.KindGet, Ack: true, Port: cmd.Port, Args: []byte{lsb}, RetriesLeft: txqueue.TxRetry})
}

func (e *Engine) handleLogMessage(frameAddr module.FrameAddr, cmd frame.Command) {
	e.logger.Info("module log message", "frameAddr", frameAddr, "msgNum", cmd.Port&0x0F, "text", string(cmd.Args))
	e.registry.ForceStatusRefresh(frameAddr)
	e.txq.Enqueue(frameAddr, txqueue.Cmd{Kind: frame.KindConfig, Ack: true, Port: cmd.Port, Args: []byte{firstByte(cmd.Args)}, RetriesLeft: txqueue.TxRetry})
}

func (e *Engine) handleDCmdSelf(frameAddr module.FrameAddr, cmd frame.Command) {
	if len(cmd.Args) == 0 || cmd.Args[0] >= DCmdMax {
		return
	}
	e.logger.Info("dcmd activation requested", "frameAddr", frameAddr, "port", cmd.Port)
	e.txq.Enqueue(frameAddr, txqueue.Cmd{Kind: frame.KindDCmd, Ack: true, Port: cmd.Port, Args: []byte{firstByte(cmd.Args)}, RetriesLeft: txqueue.TxRetry})
}

// isSingleByteReport reports whether dev's port type carries a single
// boolean/level byte rather than a 16-bit sample, for disambiguating a
// 2-byte-wide SET report (spec.md §4.4).
func isSingleByteReport(t catalog.PortType) bool {
	switch t {
	case catalog.PortTypeInDigital, catalog.PortTypeInTwinButton, catalog.PortTypeInAC, catalog.PortTypeSensorAlarm:
		return true
	}
	return false
}

func firstByte(args []byte) byte {
	if len(args) == 0 {
		return 0
	}
	return args[0]
}
