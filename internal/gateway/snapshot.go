package gateway

import (
	"github.com/CreasolTech/DomBusGateway/internal/catalog"
	"github.com/CreasolTech/DomBusGateway/internal/frame"
	"github.com/CreasolTech/DomBusGateway/internal/module"
	"github.com/CreasolTech/DomBusGateway/internal/txqueue"
)

// isOutputPort reports whether t is a port the gateway drives rather than
// reads, and therefore one whose last known value is worth re-transmitting
// on a periodic status refresh (spec.md §4.2 "re-transmitting known values
// for outputs").
func isOutputPort(t catalog.PortType) bool {
	switch t {
	case catalog.PortTypeOutDigital, catalog.PortTypeOutRelay, catalog.PortTypeOutRelayLP,
		catalog.PortTypeOutDimmer, catalog.PortTypeOutAnalog, catalog.PortTypeOutFlash,
		catalog.PortTypeOutBuzzer, catalog.PortTypeOutLedStatus, catalog.PortTypeOutBlind:
		return true
	}
	return false
}

// statusSnapshot builds the txqueue.StatusSnapshot the scheduler's periodic
// refresh uses: every output device tracked for frameAddr gets a non-ACK
// SET command carrying its last known value, the same shape a module's own
// spontaneous report would have taken (spec.md §4.2/§4.4).
func statusSnapshot(cat *catalog.Catalog) txqueue.StatusSnapshot {
	return func(frameAddr module.FrameAddr) []txqueue.Cmd {
		var cmds []txqueue.Cmd
		for _, d := range cat.DevicesForModule(frameAddr) {
			if !isOutputPort(d.PortType) {
				continue
			}
			cmds = append(cmds, txqueue.Cmd{
				Kind:        frame.KindSet,
				Ack:         false,
				Port:        uint8(d.ID.Port()),
				Args:        []byte{byte(int64(d.Value))},
				RetriesLeft: txqueue.TxRetry,
			})
		}
		return cmds
	}
}
