// Package snowflake - id.go provides the ID type, its decoded Components and
// the conversions used at API and storage boundaries.

package snowflake

import (
	"database/sql/driver"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ID is a generated identifier. The sign bit is always zero, so an ID orders
// the same whether compared as int64 or as uint64.
//
// ID implements fmt.Stringer, json.Marshaler (as a decimal string, since IDs
// exceed JavaScript's 2^53 safe integer range), encoding.TextMarshaler,
// encoding.BinaryMarshaler (8 bytes big-endian), sql.Scanner and
// driver.Valuer.
type ID int64

// Int64 returns the ID as an int64.
func (id ID) Int64() int64 { return int64(id) }

// Uint64 returns the ID as a uint64.
func (id ID) Uint64() uint64 { return uint64(id) }

// String returns the decimal representation.
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Base32 returns the z-base-32 representation.
func (id ID) Base32() string { return base32Alphabet.encode(int64(id)) }

// Base58 returns the Bitcoin-alphabet base58 representation.
func (id ID) Base58() string { return base58Alphabet.encode(int64(id)) }

// Base62 returns the URL-safe base62 representation.
func (id ID) Base62() string { return base62Alphabet.encode(int64(id)) }

// Hex returns the lower-case hexadecimal representation without leading zeros.
func (id ID) Hex() string { return hexAlphabet.encode(int64(id)) }

// Format renders the ID in a named encoding: "decimal" (or ""), "base32",
// "base58", "base62", "hex", "binary". Short forms "dec", "b32", "b58", "b62",
// "x" and "bin" are accepted. Unknown names fall back to decimal.
func (id ID) Format(name string) string {
	switch strings.ToLower(name) {
	case "base32", "b32":
		return id.Base32()
	case "base58", "b58":
		return id.Base58()
	case "base62", "b62":
		return id.Base62()
	case "hex", "x":
		return id.Hex()
	case "binary", "bin":
		return strconv.FormatInt(int64(id), 2)
	default:
		return id.String()
	}
}

// MarshalJSON encodes the ID as a quoted decimal string.
func (id ID) MarshalJSON() ([]byte, error) {
	b := make([]byte, 0, 22)
	b = append(b, '"')
	b = strconv.AppendInt(b, int64(id), 10)
	return append(b, '"'), nil
}

// UnmarshalJSON accepts a quoted decimal string or a bare JSON number.
func (id *ID) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := ParseString(s)
	if err != nil {
		return fmt.Errorf("invalid snowflake ID %s: %w", data, err)
	}
	*id = v
	return nil
}

// MarshalText encodes the ID in decimal.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses a decimal ID.
func (id *ID) UnmarshalText(text []byte) error {
	v, err := ParseString(string(text))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// MarshalBinary encodes the ID as 8 bytes big-endian, which preserves order
// under byte-wise comparison.
func (id ID) MarshalBinary() ([]byte, error) {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b, nil
}

// UnmarshalBinary decodes 8 bytes big-endian.
func (id *ID) UnmarshalBinary(data []byte) error {
	if len(data) != 8 {
		return fmt.Errorf("invalid binary snowflake ID length: %d", len(data))
	}
	*id = ID(binary.BigEndian.Uint64(data))
	return nil
}

// Scan implements sql.Scanner for INTEGER and text columns. NULL scans as 0.
func (id *ID) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*id = 0
	case int64:
		*id = ID(v)
	case []byte:
		return id.UnmarshalText(v)
	case string:
		return id.UnmarshalText([]byte(v))
	default:
		return fmt.Errorf("cannot scan %T into snowflake.ID", value)
	}
	return nil
}

// Value implements driver.Valuer, storing the ID as an integer.
func (id ID) Value() (driver.Value, error) {
	return int64(id), nil
}

// ParseString parses a decimal ID.
func ParseString(s string) (ID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ID(v), nil
}

// ParseBase32 parses a z-base-32 ID.
func ParseBase32(s string) (ID, error) {
	v, err := base32Alphabet.parse(s)
	return ID(v), err
}

// ParseBase58 parses a base58 ID.
func ParseBase58(s string) (ID, error) {
	v, err := base58Alphabet.parse(s)
	return ID(v), err
}

// ParseBase62 parses a base62 ID.
func ParseBase62(s string) (ID, error) {
	v, err := base62Alphabet.parse(s)
	return ID(v), err
}

// ParseHex parses a hexadecimal ID; either case is accepted.
func ParseHex(s string) (ID, error) {
	v, err := hexAlphabet.parse(s)
	return ID(v), err
}

// ParseAny parses s as decimal, then base62, base58, hex and base32, returning
// the first success. Strings valid in more than one encoding resolve to the
// earliest in that order, so use the specific parser when the encoding is known.
func ParseAny(s string) (ID, error) {
	if id, err := ParseString(s); err == nil {
		return id, nil
	}
	for _, parse := range []func(string) (ID, error){ParseBase62, ParseBase58, ParseHex, ParseBase32} {
		if id, err := parse(s); err == nil {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unrecognized snowflake ID %q", s)
}

// Components is the decoded view of an ID.
type Components struct {
	Timestamp int64 // Absolute Unix milliseconds (epoch + time offset)
	NodeID    int64
	Sequence  int64
}

// Time converts Timestamp to a time.Time in UTC.
func (c Components) Time() time.Time {
	return time.UnixMilli(c.Timestamp).UTC()
}

// Decompose decodes id, adding epoch back onto the time offset.
func Decompose(id ID, epoch int64) Components {
	offset, nodeID, sequence := Decode(id)
	return Components{
		Timestamp: epoch + offset,
		NodeID:    nodeID,
		Sequence:  sequence,
	}
}
