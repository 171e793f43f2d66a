// Package checksum implements the homenet wire checksum modes.
//
// Each mode computes a checksum over a "header || body" window (or body
// only, for the "no_header" variants) and appends it to the outgoing frame.
// Verify re-derives the same checksum from a received frame and compares it
// against the trailing byte(s). See spec §3/§6 for the authoritative
// per-mode reference.
package checksum

import "fmt"

// Mode identifies one of the checksum algorithms a port may use for its
// rx/tx framing. The zero value ("") is not ModeNone: Len, Compute and
// Verify treat only ModeNone ("none") as "no checksum byte present".
type Mode string

// Single-byte checksum modes.
const (
	ModeNone        Mode = "none"
	ModeAdd         Mode = "add"
	ModeAddNoHeader Mode = "add_no_header"
	ModeXOR         Mode = "xor"
	ModeXORNoHeader Mode = "xor_no_header"
	ModeSamsungRX   Mode = "samsung_rx"
	ModeSamsungTX   Mode = "samsung_tx"
)

// Mode2 identifies a two-byte checksum trailer, used by rx_checksum2 /
// tx_checksum2. Only xor_add is currently defined by the protocol.
type Mode2 string

const (
	Mode2None   Mode2 = "none"
	Mode2XORAdd Mode2 = "xor_add"
)

// samsungSeed is the fixed starting accumulator for samsung_rx.
const samsungSeed = 0xB0

// samsungToggleThreshold is the body[0] threshold that flips bit 0x80 in
// samsung_rx: the toggle fires when the first body byte is below this value.
const samsungToggleThreshold = 0x7C

// toggleBit is the bit samsung_rx/samsung_tx XOR into the running checksum.
const toggleBit = 0x80

// Compute returns the single checksum byte for mode over header||body (or
// body alone for the _no_header variants). ModeNone always yields 0 and
// should not be appended to the frame by the caller.
func Compute(mode Mode, header, body []byte) byte {
	switch mode {
	case ModeAdd:
		return sum(header, body)
	case ModeAddNoHeader:
		return sum(nil, body)
	case ModeXOR:
		return xor(header, body)
	case ModeXORNoHeader:
		return xor(nil, body)
	case ModeSamsungRX:
		return samsungRX(body)
	case ModeSamsungTX:
		return samsungTX(body)
	case ModeNone:
		return 0
	default:
		return 0
	}
}

// Verify reports whether got matches the checksum Compute would produce for
// mode over header||body.
func Verify(mode Mode, header, body []byte, got byte) bool {
	if mode == ModeNone {
		return true
	}
	return Compute(mode, header, body) == got
}

// Compute2 returns the two-byte xor_add trailer: [xor, sum+xor], each
// truncated to 8 bits. Mode2None returns a nil slice.
func Compute2(mode Mode2, header, body []byte) []byte {
	if mode != Mode2XORAdd {
		return nil
	}
	t := xor(header, body)
	s := int(sum(header, body)) + int(t)
	return []byte{t, byte(s)}
}

// Verify2 reports whether got (exactly 2 bytes) matches Compute2's output.
func Verify2(mode Mode2, header, body []byte, got []byte) bool {
	if mode == Mode2None {
		return true
	}
	want := Compute2(mode, header, body)
	return len(got) == 2 && len(want) == 2 && got[0] == want[0] && got[1] == want[1]
}

// Len returns the number of trailing bytes mode appends to a frame (0 or 1).
func (m Mode) Len() int {
	if m == ModeNone {
		return 0
	}
	return 1
}

// Len returns the number of trailing bytes mode appends to a frame (0 or 2).
func (m Mode2) Len() int {
	if m == Mode2None {
		return 0
	}
	return 2
}

// ValidMode reports whether s names a recognised single-byte checksum mode.
func ValidMode(s string) bool {
	switch Mode(s) {
	case ModeNone, ModeAdd, ModeAddNoHeader, ModeXOR, ModeXORNoHeader, ModeSamsungRX, ModeSamsungTX:
		return true
	default:
		return false
	}
}

// ValidMode2 reports whether s names a recognised two-byte checksum mode.
func ValidMode2(s string) bool {
	switch Mode2(s) {
	case Mode2None, Mode2XORAdd:
		return true
	default:
		return false
	}
}

// ParseMode validates and converts s to a Mode.
func ParseMode(s string) (Mode, error) {
	if !ValidMode(s) {
		return "", fmt.Errorf("checksum: unknown mode %q", s)
	}
	return Mode(s), nil
}

// ParseMode2 validates and converts s to a Mode2.
func ParseMode2(s string) (Mode2, error) {
	if !ValidMode2(s) {
		return "", fmt.Errorf("checksum: unknown two-byte mode %q", s)
	}
	return Mode2(s), nil
}

func sum(header, body []byte) byte {
	var total int
	for _, b := range header {
		total += int(b)
	}
	for _, b := range body {
		total += int(b)
	}
	return byte(total)
}

func xor(header, body []byte) byte {
	var acc byte
	for _, b := range header {
		acc ^= b
	}
	for _, b := range body {
		acc ^= b
	}
	return acc
}

// samsungRX implements: c=0xB0; for b in body: c^=b; if body[0]<0x7C: c^=0x80.
func samsungRX(body []byte) byte {
	c := byte(samsungSeed)
	for _, b := range body {
		c ^= b
	}
	if len(body) > 0 && body[0] < samsungToggleThreshold {
		c ^= toggleBit
	}
	return c
}

// samsungTX implements: c=0; for b in body: c^=b; c^=0x80.
func samsungTX(body []byte) byte {
	var c byte
	for _, b := range body {
		c ^= b
	}
	c ^= toggleBit
	return c
}
