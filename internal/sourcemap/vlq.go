package sourcemap

const base64Digits = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

var base64Values = func() (table [128]int8) {
	for i := range table {
		table[i] = -1
	}
	for i := 0; i < len(base64Digits); i++ {
		table[base64Digits[i]] = int8(i)
	}
	return
}()

// Values are stored sign-magnitude with the sign in the lowest bit, then cut
// into five-bit groups starting from the least significant one. Each group is
// one base64 digit, and the digit's sixth bit says that another one follows.
func encodeVLQ(encoded []byte, value int) []byte {
	vlq := value << 1
	if value < 0 {
		vlq = (-value)<<1 | 1
	}
	for {
		digit := vlq & 31
		vlq >>= 5
		if vlq != 0 {
			digit |= 32
		}
		encoded = append(encoded, base64Digits[digit])
		if vlq == 0 {
			return encoded
		}
	}
}

// Reads the value that starts at "encoded[start]" and returns it along with
// the index just past it. Fails when the input ends in the middle of a value
// or holds something that isn't a base64 digit.
func decodeVLQ[T byte | uint16](encoded []T, start int) (int, int, bool) {
	vlq := 0
	shift := 0
	for i := start; i < len(encoded); i++ {
		c := int(encoded[i])
		if c >= len(base64Values) || base64Values[c] < 0 {
			return 0, i, false
		}
		digit := int(base64Values[c])
		vlq |= (digit & 31) << shift
		shift += 5

		if digit&32 == 0 {
			value := vlq >> 1
			if vlq&1 != 0 {
				value = -value
			}
			return value, i + 1, true
		}
	}
	return 0, len(encoded), false
}

// Decodes the first value of a "mappings" string held as UTF-16
func DecodeVLQUTF16(encoded []uint16) (int32, int, bool) {
	value, next, ok := decodeVLQ(encoded, 0)
	if !ok {
		return 0, 0, false
	}
	return int32(value), next, true
}
