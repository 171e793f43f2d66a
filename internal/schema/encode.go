package schema

import "fmt"

// BuildCommandBody starts from a copy of s.Data and writes value at
// s.ValueOffset using s.ValueEncode, per spec §4.3: "start from
// command.data, write value at value_offset applying value_encode".
//
// value must be numeric (int, int64, float64) or a bool (encoded as 0/1).
// Returns ErrNoValueOffset if s.Data is empty (nothing to start from).
func (s Schema) BuildCommandBody(value any) ([]byte, error) {
	if len(s.Data) == 0 {
		return nil, ErrNoValueOffset
	}

	body := make([]byte, len(s.Data))
	copy(body, s.Data)

	raw, err := toFloat(value)
	if err != nil {
		return nil, err
	}

	enc := s.ValueEncode
	mult := enc.Multiply
	if mult == 0 {
		mult = 1
	}
	scaled := raw * mult

	length := enc.Length
	if length <= 0 {
		length = 1
	}

	end := s.ValueOffset + length
	if s.ValueOffset < 0 || end > len(body) {
		return nil, fmt.Errorf("%w: value_offset %d + length %d exceeds body length %d",
			ErrValueOutOfRange, s.ValueOffset, length, len(body))
	}

	if enc.BCD {
		encoded, err := encodeBCD(int64(scaled), length)
		if err != nil {
			return nil, err
		}
		copy(body[s.ValueOffset:end], encoded)
		return body, nil
	}

	encoded := encodeInt(int64(scaled), length, enc.Endian, enc.Signed)
	copy(body[s.ValueOffset:end], encoded)
	return body, nil
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("schema: cannot encode command value of type %T", value)
	}
}

func encodeInt(v int64, length int, endian Endian, signed bool) []byte {
	u := uint64(v)
	out := make([]byte, length)
	if endian == EndianLittle {
		for i := 0; i < length; i++ {
			out[i] = byte(u)
			u >>= 8
		}
	} else {
		for i := length - 1; i >= 0; i-- {
			out[i] = byte(u)
			u >>= 8
		}
	}
	_ = signed // two's complement fallout is already correct via uint64(v) wraparound
	return out
}

func encodeBCD(v int64, length int) ([]byte, error) {
	if v < 0 {
		return nil, fmt.Errorf("%w: negative value %d cannot be BCD-encoded", ErrValueOutOfRange, v)
	}
	out := make([]byte, length)
	for i := length - 1; i >= 0; i-- {
		digitLo := v % bcdDecimalBase
		v /= bcdDecimalBase
		digitHi := v % bcdDecimalBase
		v /= bcdDecimalBase
		out[i] = byte(digitHi<<bcdNibbleShift | digitLo)
	}
	if v != 0 {
		return nil, fmt.Errorf("%w: value too large for %d BCD byte(s)", ErrValueOutOfRange, length)
	}
	return out, nil
}
