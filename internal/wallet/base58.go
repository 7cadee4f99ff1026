package wallet

import (
	"fmt"
	"math/big"
)

// Monero's base58 is not Bitcoin's whole-integer base58: it encodes
// fixed 8-byte blocks independently (a trailing partial block uses a
// shorter fixed output width), which is what lets it preserve leading
// zero bytes without the string getting longer than a plain big-integer
// encoding would need. btcutil's base58.Encode implements the
// whole-integer scheme and would silently produce the wrong string
// here, so this block codec is hand-rolled against the alphabet
// the wider pack already uses for base58 address work.
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

const fullBlockSize = 8
const fullEncodedBlockSize = 11

// encodedBlockSizes[n] is the base58 character width of an n-byte block.
var encodedBlockSizes = [fullBlockSize + 1]int{0, 2, 3, 5, 6, 7, 9, 10, 11}

var base58DigitValue = func() map[byte]int {
	m := make(map[byte]int, len(base58Alphabet))
	for i := 0; i < len(base58Alphabet); i++ {
		m[base58Alphabet[i]] = i
	}
	return m
}()

func base58EncodeBlock(data []byte) string {
	width := encodedBlockSizes[len(data)]
	num := new(big.Int).SetBytes(data)
	base := big.NewInt(58)
	rem := new(big.Int)
	out := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		num.DivMod(num, base, rem)
		out[i] = base58Alphabet[rem.Int64()]
	}
	return string(out)
}

func base58DecodeBlock(s string, byteLen int) ([]byte, error) {
	expectedWidth := encodedBlockSizes[byteLen]
	if len(s) != expectedWidth {
		return nil, fmt.Errorf("%w: base58 block width %d, want %d", ErrInvalidData, len(s), expectedWidth)
	}
	num := new(big.Int)
	base := big.NewInt(58)
	for i := 0; i < len(s); i++ {
		v, ok := base58DigitValue[s[i]]
		if !ok {
			return nil, fmt.Errorf("%w: invalid base58 character %q", ErrInvalidData, s[i])
		}
		num.Mul(num, base)
		num.Add(num, big.NewInt(int64(v)))
	}
	full := num.Bytes()
	if len(full) > byteLen {
		return nil, fmt.Errorf("%w: base58 block overflow", ErrInvalidData)
	}
	out := make([]byte, byteLen)
	copy(out[byteLen-len(full):], full)
	return out, nil
}

// Base58Encode encodes data in 8-byte blocks, as Monero addresses do.
func Base58Encode(data []byte) string {
	var out []byte
	for len(data) >= fullBlockSize {
		out = append(out, base58EncodeBlock(data[:fullBlockSize])...)
		data = data[fullBlockSize:]
	}
	if len(data) > 0 {
		out = append(out, base58EncodeBlock(data)...)
	}
	return string(out)
}

// Base58Decode reverses Base58Encode.
func Base58Decode(s string) ([]byte, error) {
	var out []byte
	for len(s) >= fullEncodedBlockSize {
		block, err := base58DecodeBlock(s[:fullEncodedBlockSize], fullBlockSize)
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
		s = s[fullEncodedBlockSize:]
	}
	if len(s) > 0 {
		byteLen := -1
		for n, w := range encodedBlockSizes {
			if w == len(s) {
				byteLen = n
				break
			}
		}
		if byteLen < 0 {
			return nil, fmt.Errorf("%w: invalid trailing base58 block length %d", ErrInvalidData, len(s))
		}
		block, err := base58DecodeBlock(s, byteLen)
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
	}
	return out, nil
}
