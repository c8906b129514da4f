// Package payload handles the structured record carried in a tag URL.
//
// Base stations embed a protocol buffer message with their reset and
// failure counters. The message is small and fixed, so it is read and
// written directly with protowire rather than through generated code.
package payload

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/yndnr/tagurl-go/internal/core/codec"
)

// MaxStationSize is the space a base station reserves for the payload.
const MaxStationSize = 28

// Field numbers of the base station message.
const (
	fieldWatchdog       protowire.Number = 1
	fieldExternalReset  protowire.Number = 2
	fieldPowerReset     protowire.Number = 3
	fieldSerialFailure  protowire.Number = 4
	fieldBrownOut       protowire.Number = 5
	fieldBatteryVoltage protowire.Number = 6
)

// ErrWireType is returned when a known field has an unexpected wire type.
var ErrWireType = errors.New("payload: unexpected wire type")

// StationInfo is the diagnostic record a base station appends to each URL.
type StationInfo struct {
	Watchdog      uint32 `json:"number_watchdog" yaml:"number_watchdog"`
	ExternalReset uint32 `json:"number_external_reset" yaml:"number_external_reset"`
	PowerReset    uint32 `json:"number_power_reset" yaml:"number_power_reset"`
	SerialFailure uint32 `json:"number_serial_failure" yaml:"number_serial_failure"`
	BrownOut      uint32 `json:"number_brown_out" yaml:"number_brown_out"`

	// BatteryVoltage is omitted from the wire when zero.
	BatteryVoltage uint32 `json:"battery_voltage,omitempty" yaml:"battery_voltage,omitempty"`
}

// Marshal encodes s. The five counters are always written, matching what
// the station firmware emits.
func Marshal(s StationInfo) []byte {
	var b []byte
	b = appendVarint(b, fieldWatchdog, s.Watchdog)
	b = appendVarint(b, fieldExternalReset, s.ExternalReset)
	b = appendVarint(b, fieldPowerReset, s.PowerReset)
	b = appendVarint(b, fieldSerialFailure, s.SerialFailure)
	b = appendVarint(b, fieldBrownOut, s.BrownOut)
	if s.BatteryVoltage > 0 {
		b = appendVarint(b, fieldBatteryVoltage, s.BatteryVoltage)
	}
	return b
}

// Parse decodes a base station record. Unknown fields are skipped.
// Truncated or invalid wire data is an error.
func Parse(b []byte) (*StationInfo, error) {
	s := &StationInfo{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]

		dst := s.field(num)
		if dst == nil {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
			continue
		}

		if typ != protowire.VarintType {
			return nil, fmt.Errorf("%w: field %d has type %d", ErrWireType, num, typ)
		}
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		*dst = uint32(v)
	}
	return s, nil
}

func (s *StationInfo) field(num protowire.Number) *uint32 {
	switch num {
	case fieldWatchdog:
		return &s.Watchdog
	case fieldExternalReset:
		return &s.ExternalReset
	case fieldPowerReset:
		return &s.PowerReset
	case fieldSerialFailure:
		return &s.SerialFailure
	case fieldBrownOut:
		return &s.BrownOut
	case fieldBatteryVoltage:
		return &s.BatteryVoltage
	}
	return nil
}

func appendVarint(b []byte, num protowire.Number, v uint32) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

// Station parses payloads as StationInfo. An empty payload parses to a
// zero record, as it would for any proto message.
var Station codec.PayloadParser = codec.PayloadParserFunc(func(b []byte) (any, error) {
	return Parse(b)
})

// Raw leaves payloads unparsed.
var Raw = codec.RawPayload

// ParserByName returns the parser registered under name: "raw" or "station".
func ParserByName(name string) (codec.PayloadParser, error) {
	switch name {
	case "", "raw":
		return Raw, nil
	case "station":
		return Station, nil
	default:
		return nil, fmt.Errorf("unknown payload parser %q", name)
	}
}
