package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// portEnumerationProtocol is the only port-enumeration body layout this
// engine understands (spec.md §4.4: "a protocol-version byte (must equal
// 2)").
const portEnumerationProtocol = 2

// portEnumerationRecord is one decoded entry from a bulk CONFIG/0xF0-0xFF
// ACK body.
type portEnumerationRecord struct {
	Port     uint8
	PortType uint32
	PortOpt  uint16
	Name     string
}

// parseVersion decodes a CMD_CONFIG/0xFE ACK body into a 4-byte ASCII
// firmware revision and a NUL-terminated module-type string (spec.md
// §4.4).
func parseVersion(args []byte) (revision, moduleType string, ok bool) {
	if len(args) < 5 {
		return "", "", false
	}
	revision = string(args[0:4])
	rest := args[4:]
	if nul := bytes.IndexByte(rest, 0); nul >= 0 {
		rest = rest[:nul]
	}
	return revision, string(rest), true
}

// parsePortEnumeration decodes a CMD_CONFIG/0xF0-0xFF ACK body into its
// port records (spec.md §4.4), grounded on
// original_source/dombusgateway.py lines ~940-963: a protocol-version
// byte, then — for port==0xff — records starting at port 1, or — for an
// explicit port in 0xF0..0xFD — a starting-port override byte followed by
// the records.
func parsePortEnumeration(port uint8, args []byte) ([]portEnumerationRecord, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("protocol: empty port-enumeration body")
	}
	if args[0] != portEnumerationProtocol {
		return nil, fmt.Errorf("protocol: unsupported port-enumeration protocol version %d", args[0])
	}

	var startPort uint8
	var i int
	if port == 0xFF {
		startPort = 1
		i = 1
	} else {
		if len(args) < 2 {
			return nil, fmt.Errorf("protocol: port-enumeration body missing start-port override")
		}
		startPort = args[1]
		i = 2
	}

	var records []portEnumerationRecord
	nextPort := startPort
	for i+6 <= len(args) {
		portType := binary.BigEndian.Uint32(args[i : i+4])
		portOpt := binary.BigEndian.Uint16(args[i+4 : i+6])
		i += 6

		nameEnd := i
		for nameEnd < len(args) && args[nameEnd] != 0 {
			nameEnd++
		}
		name := string(args[i:nameEnd])
		if nameEnd < len(args) {
			nameEnd++ // consume the NUL
		}
		i = nameEnd

		records = append(records, portEnumerationRecord{
			Port:     nextPort,
			PortType: portType,
			PortOpt:  portOpt,
			Name:     name,
		})
		nextPort++
	}
	return records, nil
}
