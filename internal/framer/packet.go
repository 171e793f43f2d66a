package framer

import (
	"bytes"

	"github.com/nerrad567/homenet-bridge/internal/checksum"
	"github.com/nerrad567/homenet-bridge/internal/entity"
)

// Packet is a framed, checksum-valid byte sequence (glossary: "Packet").
type Packet struct {
	// Raw is the complete on-wire bytes (header, body, checksum, footer).
	Raw []byte
	// Body is Raw with header/footer/checksum stripped; Schema offsets in
	// spec §3 are relative to Body.
	Body []byte
}

// validateAndStrip checks raw against d's header/footer/checksum
// expectations and, on success, returns the body (header/footer/checksum
// removed). It never panics on short input; any bound violation is simply
// a non-match.
func validateAndStrip(raw []byte, d entity.ProtocolDefaults) ([]byte, bool) {
	if len(d.RXHeader) > 0 {
		if len(raw) < len(d.RXHeader) || !bytes.Equal(raw[:len(d.RXHeader)], d.RXHeader) {
			return nil, false
		}
	}
	rest := raw[len(d.RXHeader):]

	if len(d.RXFooter) > 0 {
		if len(rest) < len(d.RXFooter) || !bytes.Equal(rest[len(rest)-len(d.RXFooter):], d.RXFooter) {
			return nil, false
		}
		rest = rest[:len(rest)-len(d.RXFooter)]
	}

	csLen := d.RXChecksum.Len()
	cs2Len := d.RXChecksum2.Len()
	total := csLen + cs2Len
	if len(rest) < total {
		return nil, false
	}
	body := rest[:len(rest)-total]
	tail := rest[len(rest)-total:]

	if csLen == 1 {
		if !checksum.Verify(d.RXChecksum, d.RXHeader, body, tail[0]) {
			return nil, false
		}
		tail = tail[1:]
	}
	if cs2Len == 2 {
		if !checksum.Verify2(d.RXChecksum2, d.RXHeader, body, tail) {
			return nil, false
		}
	}
	return body, true
}
