package framer

import (
	"bytes"

	"github.com/nerrad567/homenet-bridge/internal/entity"
)

// mode names the framing strategy selected from a port's ProtocolDefaults.
type mode int

const (
	modeFixed mode = iota
	modeDelimited
	modeProbed
)

// Framer accumulates bytes fed via Feed and emits zero or more validated
// Packets per call, per spec §4.1.
type Framer struct {
	defaults entity.ProtocolDefaults
	mode     mode
	probes   []Probe
	buf      []byte
}

// New selects a framing mode from defaults: fixed length takes priority if
// rx_length is set; otherwise header+footer both present selects delimited;
// otherwise schema-probed using probes built from the port's entity catalog
// (see BuildProbes).
func New(defaults entity.ProtocolDefaults, probes []Probe) *Framer {
	f := &Framer{defaults: defaults, probes: probes}
	switch {
	case defaults.RXLength > 0:
		f.mode = modeFixed
	case len(defaults.RXHeader) > 0 && len(defaults.RXFooter) > 0:
		f.mode = modeDelimited
	default:
		f.mode = modeProbed
	}
	return f
}

// Feed appends chunk to the internal buffer and extracts every complete,
// valid packet it now contains. Invalid candidates are dropped by
// advancing the buffer exactly one byte (spec §4.1: "On resync after
// invalid packet, always advance by exactly one byte").
func (f *Framer) Feed(chunk []byte) []Packet {
	f.buf = append(f.buf, chunk...)

	var out []Packet
	switch f.mode {
	case modeFixed:
		out = f.feedFixed()
	case modeDelimited:
		out = f.feedDelimited()
	default:
		out = f.feedProbed()
	}
	return out
}

func (f *Framer) feedFixed() []Packet {
	var out []Packet
	n := f.defaults.RXLength
	for len(f.buf) >= n {
		candidate := f.buf[:n]
		if body, ok := validateAndStrip(candidate, f.defaults); ok {
			out = append(out, Packet{Raw: clone(candidate), Body: body})
			f.buf = f.buf[n:]
			continue
		}
		f.buf = f.buf[1:]
	}
	return out
}

// feedDelimited locates the header, then the first footer occurrence after
// it, and validates the span from header through footer as one candidate.
// A second header before the footer gets no special handling: it stays
// inside that candidate, and a packet never ends at a following header.
// Only when validation fails does the buffer advance one byte, after which
// the next header is searched for again.
func (f *Framer) feedDelimited() []Packet {
	var out []Packet
	for {
		idx := bytes.Index(f.buf, f.defaults.RXHeader)
		if idx < 0 {
			f.buf = nil
			return out
		}
		if idx > 0 {
			f.buf = f.buf[idx:]
		}

		search := f.buf[len(f.defaults.RXHeader):]
		footerIdx := bytes.Index(search, f.defaults.RXFooter)
		if footerIdx < 0 {
			return out // wait for more data
		}

		total := len(f.defaults.RXHeader) + footerIdx + len(f.defaults.RXFooter)
		candidate := f.buf[:total]
		if body, ok := validateAndStrip(candidate, f.defaults); ok {
			out = append(out, Packet{Raw: clone(candidate), Body: body})
			f.buf = f.buf[total:]
			continue
		}
		f.buf = f.buf[1:]
	}
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
