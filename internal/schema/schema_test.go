package schema

import "testing"

func TestSchema_Matches_EzvilleLightOn(t *testing.T) {
	// spec §8 scenario 1: state_on = {offset:0, data:[0x30,0x01], mask:[0xFF,0x01]}
	s := Schema{Offset: 0, Data: []byte{0x30, 0x01}, Mask: []byte{0xFF, 0x01}}
	body := []byte{0x30, 0x01, 0x00, 0x25}
	if !s.Matches(body) {
		t.Fatalf("Matches(%x) = false, want true", body)
	}
	off := []byte{0x30, 0x00, 0x00, 0x25}
	if s.Matches(off) {
		t.Fatalf("Matches(%x) = true, want false (masked bit clear)", off)
	}
}

func TestSchema_Matches_OutOfRange(t *testing.T) {
	s := Schema{Offset: 5, Data: []byte{0x01}}
	if s.Matches([]byte{0x01, 0x02}) {
		t.Fatal("Matches() with out-of-range offset should be false")
	}
}

func TestSchema_Matches_Inverted(t *testing.T) {
	s := Schema{Offset: 0, Data: []byte{0xFF}, Inverted: true}
	if s.Matches([]byte{0xFF}) {
		t.Fatal("inverted schema should not match when bytes are equal")
	}
	if !s.Matches([]byte{0x01}) {
		t.Fatal("inverted schema should match when bytes differ")
	}
}

func TestSchema_Matches_Except(t *testing.T) {
	s := Schema{
		Offset: 0,
		Data:   []byte{0x30},
		Except: []Schema{{Offset: 1, Data: []byte{0xFF}}},
	}
	if s.Matches([]byte{0x30, 0xFF}) {
		t.Fatal("match should fail because except sub-schema matched")
	}
	if !s.Matches([]byte{0x30, 0x00}) {
		t.Fatal("match should succeed because except sub-schema did not match")
	}
}

func TestSchema_Extract_ValvePosition(t *testing.T) {
	// spec §8 scenario 5: state_position = {offset:1, length:1} over 50 32 01.
	s := Schema{Offset: 1, Length: 1}
	v, ok := s.Extract([]byte{0x50, 0x32, 0x01})
	if !ok {
		t.Fatal("Extract() ok = false, want true")
	}
	if v.(int64) != 0x32 {
		t.Fatalf("Extract() = %v, want 50", v)
	}
}

func TestSchema_Extract_OutOfRange(t *testing.T) {
	s := Schema{Offset: 10, Length: 2}
	if _, ok := s.Extract([]byte{0x01, 0x02}); ok {
		t.Fatal("Extract() ok = true for out-of-range window, want false")
	}
}

func TestSchema_Extract_BigEndianSigned(t *testing.T) {
	s := Schema{Offset: 0, Length: 2, Endian: EndianBig, Signed: true}
	v, ok := s.Extract([]byte{0xFF, 0xFF}) // -1 as int16
	if !ok || v.(int64) != -1 {
		t.Fatalf("Extract() = %v, %v, want -1, true", v, ok)
	}
}

func TestSchema_Extract_LittleEndianUnsigned(t *testing.T) {
	s := Schema{Offset: 0, Length: 2, Endian: EndianLittle}
	v, ok := s.Extract([]byte{0x01, 0x02}) // 0x0201
	if !ok || v.(int64) != 0x0201 {
		t.Fatalf("Extract() = %v, %v, want 0x0201, true", v, ok)
	}
}

func TestSchema_Extract_Precision(t *testing.T) {
	s := Schema{Offset: 0, Length: 1, Precision: 10}
	v, ok := s.Extract([]byte{235})
	if !ok || v.(float64) != 23.5 {
		t.Fatalf("Extract() = %v, %v, want 23.5, true", v, ok)
	}
}

func TestSchema_Extract_Mapping(t *testing.T) {
	s := Schema{Offset: 0, Mapping: map[byte]string{0x01: "heat", 0x02: "cool"}}
	v, ok := s.Extract([]byte{0x02})
	if !ok || v.(string) != "cool" {
		t.Fatalf("Extract() = %v, %v, want cool, true", v, ok)
	}
	if _, ok := s.Extract([]byte{0x99}); ok {
		t.Fatal("Extract() with unmapped byte should return ok=false")
	}
}

func TestSchema_Extract_BCD(t *testing.T) {
	s := Schema{Offset: 0, Length: 2, Decode: DecodeBCD}
	v, ok := s.Extract([]byte{0x23, 0x59})
	if !ok || v.(int64) != 2359 {
		t.Fatalf("Extract() = %v, %v, want 2359, true", v, ok)
	}
}

func TestSchema_Extract_SignedByteHalfDegree(t *testing.T) {
	s := Schema{Offset: 0, Decode: DecodeSignedByteHalfDeg}
	v, ok := s.Extract([]byte{0x2F}) // 47 * 0.5 = 23.5
	if !ok || v.(float64) != 23.5 {
		t.Fatalf("Extract() = %v, %v, want 23.5, true", v, ok)
	}
}

func TestSchema_BuildCommandBody_FanSpeed(t *testing.T) {
	// spec §8 scenario 4: command_speed = {data:[0x30,0x71,0x01,0x12,0x00], value_offset:4}
	s := Schema{
		Data:        []byte{0x30, 0x71, 0x01, 0x12, 0x00},
		ValueOffset: 4,
		ValueEncode: ValueEncode{Length: 1},
	}
	body, err := s.BuildCommandBody(50)
	if err != nil {
		t.Fatalf("BuildCommandBody() error = %v", err)
	}
	want := []byte{0x30, 0x71, 0x01, 0x12, 0x32}
	if string(body) != string(want) {
		t.Fatalf("BuildCommandBody() = %x, want %x", body, want)
	}
}

func TestSchema_BuildCommandBody_BCD(t *testing.T) {
	s := Schema{
		Data:        []byte{0x00, 0x00},
		ValueOffset: 0,
		ValueEncode: ValueEncode{Length: 2, BCD: true},
	}
	body, err := s.BuildCommandBody(2359)
	if err != nil {
		t.Fatalf("BuildCommandBody() error = %v", err)
	}
	want := []byte{0x23, 0x59}
	if string(body) != string(want) {
		t.Fatalf("BuildCommandBody() = %x, want %x", body, want)
	}
}

func TestSchema_BuildCommandBody_OutOfRange(t *testing.T) {
	s := Schema{Data: []byte{0x00}, ValueOffset: 5, ValueEncode: ValueEncode{Length: 1}}
	if _, err := s.BuildCommandBody(1); err == nil {
		t.Fatal("BuildCommandBody() error = nil, want out-of-range error")
	}
}

func TestSchema_Validate(t *testing.T) {
	valid := Schema{Offset: 0, Decode: DecodeBCD, Endian: EndianBig}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}

	invalid := Schema{Offset: -1}
	if err := invalid.Validate(); err == nil {
		t.Fatal("Validate() error = nil, want error for negative offset")
	}

	badDecode := Schema{Decode: "bogus"}
	if err := badDecode.Validate(); err == nil {
		t.Fatal("Validate() error = nil, want error for bad decode")
	}
}
