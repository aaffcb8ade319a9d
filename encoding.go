package snowflake

import (
	"errors"
	"math"
)

// Encoding errors returned by the Parse* functions.
var (
	ErrInvalidEncoding = errors.New("invalid character for encoding")
	ErrEmptyEncoding   = errors.New("empty encoded id")
	ErrStringTooLong   = errors.New("encoded id exceeds maximum length")
	ErrIntegerOverflow = errors.New("decoded value overflows int64")
)

// alphabet is a positional number system over a fixed character set.
// Decoding tables are built once and read-only afterwards.
type alphabet struct {
	name    string
	chars   string
	maxLen  int // longest encoding of a non-negative int64
	decode  [256]byte
	foldHex bool // accept upper-case a-f
}

const invalidDigit = 0xFF

func newAlphabet(name, chars string, foldHex bool) *alphabet {
	a := &alphabet{name: name, chars: chars, foldHex: foldHex}
	for i := range a.decode {
		a.decode[i] = invalidDigit
	}
	for i := 0; i < len(chars); i++ {
		a.decode[chars[i]] = byte(i)
		if foldHex && chars[i] >= 'a' && chars[i] <= 'f' {
			a.decode[chars[i]-'a'+'A'] = byte(i)
		}
	}
	a.maxLen = len(a.encode(math.MaxInt64))
	return a
}

var (
	// z-base-32: avoids 0/O and 1/I/l.
	base32Alphabet = newAlphabet("base32", "ybndrfg8ejkmcpqxot1uwisza345h769", false)
	// Bitcoin alphabet: no 0, O, I or l.
	base58Alphabet = newAlphabet("base58", "123456789abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ", false)
	// URL-safe alphanumerics.
	base62Alphabet = newAlphabet("base62", "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ", false)
	hexAlphabet    = newAlphabet("hex", "0123456789abcdef", true)
)

// encode renders a non-negative value. IDs never have the sign bit set; a
// negative input is encoded via its unsigned bit pattern's low 63 bits.
func (a *alphabet) encode(v int64) string {
	u := uint64(v) & math.MaxInt64
	if u == 0 {
		return a.chars[:1]
	}
	base := uint64(len(a.chars))
	var buf [64]byte
	i := len(buf)
	for u > 0 {
		i--
		buf[i] = a.chars[u%base]
		u /= base
	}
	return string(buf[i:])
}

func (a *alphabet) parse(s string) (int64, error) {
	if s == "" {
		return 0, ErrEmptyEncoding
	}
	if len(s) > a.maxLen {
		return 0, ErrStringTooLong
	}
	base := uint64(len(a.chars))
	var u uint64
	for i := 0; i < len(s); i++ {
		d := a.decode[s[i]]
		if d == invalidDigit {
			return 0, ErrInvalidEncoding
		}
		if u > (math.MaxInt64-uint64(d))/base {
			return 0, ErrIntegerOverflow
		}
		u = u*base + uint64(d)
	}
	return int64(u), nil
}
