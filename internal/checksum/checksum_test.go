package checksum

import "testing"

func TestComputeAndVerify_RoundTrip(t *testing.T) {
	header := []byte{0xF7}
	body := []byte{0x30, 0x01, 0x00}

	modes := []Mode{ModeAdd, ModeAddNoHeader, ModeXOR, ModeXORNoHeader, ModeSamsungRX, ModeSamsungTX}
	for _, m := range modes {
		t.Run(string(m), func(t *testing.T) {
			got := Compute(m, header, body)
			if !Verify(m, header, body, got) {
				t.Fatalf("Verify(%s, %x, %x, %#x) = false, want true", m, header, body, got)
			}
			if Verify(m, header, body, got+1) {
				t.Fatalf("Verify(%s, ..., %#x) = true, want false for a corrupted byte", m, got+1)
			}
		})
	}
}

func TestCompute_SamsungRX_Example(t *testing.T) {
	// From spec §8 scenario 2: body 30 01 00 00 00 -> checksum 0x01.
	body := []byte{0x30, 0x01, 0x00, 0x00, 0x00}
	got := Compute(ModeSamsungRX, nil, body)
	if got != 0x01 {
		t.Fatalf("Compute(samsung_rx, %x) = %#x, want 0x01", body, got)
	}
}

func TestCompute_Add_SumsHeaderAndBody(t *testing.T) {
	// add = Sigma(header U body) mod 256, per spec §6 checksum reference.
	header := []byte{0xF7}
	body := []byte{0x30, 0x01, 0x00}
	got := Compute(ModeAdd, header, body)
	want := byte((0xF7 + 0x30 + 0x01 + 0x00) & 0xFF)
	if got != want {
		t.Fatalf("Compute(add, %x, %x) = %#x, want %#x", header, body, got, want)
	}
}

func TestCompute2_XORAdd(t *testing.T) {
	header := []byte{0xAA}
	body := []byte{0x01, 0x02, 0x03}
	got := Compute2(Mode2XORAdd, header, body)
	if len(got) != 2 {
		t.Fatalf("Compute2 returned %d bytes, want 2", len(got))
	}
	if !Verify2(Mode2XORAdd, header, body, got) {
		t.Fatalf("Verify2(%x) = false, want true", got)
	}
	corrupted := []byte{got[0] ^ 0x01, got[1]}
	if Verify2(Mode2XORAdd, header, body, corrupted) {
		t.Fatalf("Verify2(%x) = true, want false", corrupted)
	}
}

func TestCompute_NoneMode(t *testing.T) {
	if got := Compute(ModeNone, nil, []byte{1, 2, 3}); got != 0 {
		t.Fatalf("Compute(none) = %#x, want 0", got)
	}
	if !Verify(ModeNone, nil, []byte{1, 2, 3}, 0xFF) {
		t.Fatal("Verify(none) should always succeed regardless of trailing byte")
	}
}

func TestModeLen(t *testing.T) {
	if ModeNone.Len() != 0 {
		t.Errorf("ModeNone.Len() = %d, want 0", ModeNone.Len())
	}
	if ModeAdd.Len() != 1 {
		t.Errorf("ModeAdd.Len() = %d, want 1", ModeAdd.Len())
	}
	if Mode2None.Len() != 0 {
		t.Errorf("Mode2None.Len() = %d, want 0", Mode2None.Len())
	}
	if Mode2XORAdd.Len() != 2 {
		t.Errorf("Mode2XORAdd.Len() = %d, want 2", Mode2XORAdd.Len())
	}
}

// TestModeLen_EmptyStringIsNotNone documents that Mode's Go zero value
// ("") is distinct from ModeNone ("none"): Len/Compute/Verify only treat
// the latter as "no checksum byte". Callers that decode an omitted
// rx/tx_checksum field as "" (config.ProtocolDefaultsConfig.toDomain) must
// normalize it to ModeNone themselves before it reaches this package.
func TestModeLen_EmptyStringIsNotNone(t *testing.T) {
	if Mode("").Len() != 1 {
		t.Fatalf(`Mode("").Len() = %d, want 1 (the zero value is NOT ModeNone)`, Mode("").Len())
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"add", false},
		{"xor_add", true}, // valid as Mode2, not as Mode
		{"bogus", true},
	}
	for _, tt := range tests {
		_, err := ParseMode(tt.in)
		if tt.in == "xor_add" {
			if err == nil {
				t.Errorf("ParseMode(%q) error = nil, want error (not a single-byte mode)", tt.in)
			}
			continue
		}
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}

	if _, err := ParseMode2("xor_add"); err != nil {
		t.Errorf("ParseMode2(xor_add) error = %v, want nil", err)
	}
	if _, err := ParseMode2("bogus"); err == nil {
		t.Error("ParseMode2(bogus) error = nil, want error")
	}
}
