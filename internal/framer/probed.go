package framer

import (
	"bytes"
	"sort"

	"github.com/nerrad567/homenet-bridge/internal/entity"
)

// Probe is one entity's candidate packet shape for schema-probed framing
// (spec §4.1 mode 3): its primary state schema's leading byte prefix, the
// total body length implied by that schema, and the (possibly
// entity-overridden) ProtocolDefaults to validate against.
type Probe struct {
	Prefix   []byte
	BodyLen  int
	Defaults entity.ProtocolDefaults
}

// BuildProbes derives one Probe per entity whose primary "state" rule is a
// schema with a non-empty byte pattern, merging the port's defaults with
// any per-entity packet_parameters override.
func BuildProbes(entities []*entity.Entity, portDefaults entity.ProtocolDefaults) []Probe {
	var probes []Probe
	for _, e := range entities {
		r, ok := e.Rule("state")
		if !ok || r.Schema == nil || len(r.Schema.Data) == 0 {
			continue
		}
		d := portDefaults.Merge(e.PacketParameters)
		bodyLen := d.RXLength
		if bodyLen == 0 {
			bodyLen = r.Schema.Offset + len(r.Schema.Data)
		}
		probes = append(probes, Probe{Prefix: r.Schema.Data, BodyLen: bodyLen, Defaults: d})
	}
	return probes
}

type probedCandidate struct {
	total int
	defs  entity.ProtocolDefaults
}

// feedProbed tries every probe against the buffer; the shortest total
// length among entities whose checksum/framing actually validates wins,
// ties broken by probe declaration order (spec §9 Open Question: "shortest
// wins", documented as the deterministic tie-break for ambiguous prefixes).
func (f *Framer) feedProbed() []Packet {
	var out []Packet
	for {
		pkt, total, ok := f.tryProbed()
		if !ok {
			if f.probedExhausted() {
				if len(f.buf) == 0 {
					return out
				}
				f.buf = f.buf[1:]
				continue
			}
			return out // wait for more data
		}
		out = append(out, pkt)
		f.buf = f.buf[total:]
	}
}

func (f *Framer) tryProbed() (Packet, int, bool) {
	header := f.defaults.RXHeader
	if len(header) > 0 && (len(f.buf) < len(header) || !bytes.Equal(f.buf[:len(header)], header)) {
		return Packet{}, 0, false
	}
	bodyStart := len(header)

	var candidates []probedCandidate
	for _, p := range f.probes {
		total := bodyStart + p.BodyLen + p.Defaults.RXChecksum.Len() + p.Defaults.RXChecksum2.Len() + len(p.Defaults.RXFooter)
		if len(f.buf) < total {
			continue
		}
		bodyWindow := f.buf[bodyStart : bodyStart+p.BodyLen]
		if !bytes.HasPrefix(bodyWindow, p.Prefix) {
			continue
		}
		if _, ok := validateAndStrip(f.buf[:total], p.Defaults); ok {
			candidates = append(candidates, probedCandidate{total: total, defs: p.Defaults})
		}
	}
	if len(candidates) == 0 {
		return Packet{}, 0, false
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].total < candidates[j].total })

	best := candidates[0]
	raw := f.buf[:best.total]
	body, _ := validateAndStrip(raw, best.defs)
	return Packet{Raw: clone(raw), Body: body}, best.total, true
}

// probedExhausted reports whether the buffer already holds enough bytes to
// have satisfied the longest possible probe candidate, meaning no amount
// of additional data would turn the current leading bytes into a match —
// the leading byte is genuinely garbage and must be dropped to resync.
func (f *Framer) probedExhausted() bool {
	max := 0
	header := len(f.defaults.RXHeader)
	for _, p := range f.probes {
		total := header + p.BodyLen + p.Defaults.RXChecksum.Len() + p.Defaults.RXChecksum2.Len() + len(p.Defaults.RXFooter)
		if total > max {
			max = total
		}
	}
	return len(f.buf) >= max
}
