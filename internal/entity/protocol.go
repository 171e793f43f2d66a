package entity

import (
	"time"

	"github.com/nerrad567/homenet-bridge/internal/checksum"
)

// ProtocolDefaults are the per-port framing parameters from spec §3
// ("ProtocolDefaults (per port)"). An Entity may override any subset via
// its own PacketParameters, merged onto the port's defaults.
type ProtocolDefaults struct {
	RXLength    int
	RXHeader    []byte
	RXFooter    []byte
	RXChecksum  checksum.Mode
	RXChecksum2 checksum.Mode2

	TXLength    int
	TXHeader    []byte
	TXFooter    []byte
	TXChecksum  checksum.Mode
	TXChecksum2 checksum.Mode2

	TXDelay      time.Duration
	TXTimeout    time.Duration
	TXRetryCount int
}

// Merge returns a copy of d with every non-zero field of override applied
// on top. A nil override returns d unchanged.
func (d ProtocolDefaults) Merge(override *ProtocolDefaults) ProtocolDefaults {
	if override == nil {
		return d
	}
	out := d
	if override.RXLength != 0 {
		out.RXLength = override.RXLength
	}
	if override.RXHeader != nil {
		out.RXHeader = override.RXHeader
	}
	if override.RXFooter != nil {
		out.RXFooter = override.RXFooter
	}
	if override.RXChecksum != "" {
		out.RXChecksum = override.RXChecksum
	}
	if override.RXChecksum2 != "" {
		out.RXChecksum2 = override.RXChecksum2
	}
	if override.TXLength != 0 {
		out.TXLength = override.TXLength
	}
	if override.TXHeader != nil {
		out.TXHeader = override.TXHeader
	}
	if override.TXFooter != nil {
		out.TXFooter = override.TXFooter
	}
	if override.TXChecksum != "" {
		out.TXChecksum = override.TXChecksum
	}
	if override.TXChecksum2 != "" {
		out.TXChecksum2 = override.TXChecksum2
	}
	if override.TXDelay != 0 {
		out.TXDelay = override.TXDelay
	}
	if override.TXTimeout != 0 {
		out.TXTimeout = override.TXTimeout
	}
	if override.TXRetryCount != 0 {
		out.TXRetryCount = override.TXRetryCount
	}
	return out
}
