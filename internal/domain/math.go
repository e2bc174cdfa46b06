package domain

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places carried by a Scaled value.
const Scale = 18

// ScaleFactor is the multiplier between external and internal representation (10^18).
var ScaleFactor = decimal.New(1, Scale)

// Scaled is an internal fixed-point value: an external decimal multiplied by ScaleFactor
// and truncated to an integer.
type Scaled struct {
	v decimal.Decimal
}

// ToInternal multiplies an external value by ScaleFactor.
// Digits beyond the 18th fractional place are truncated toward zero.
func ToInternal(external decimal.Decimal) Scaled {
	return Scaled{v: external.Shift(Scale).Truncate(0)}
}

// ToExternal divides an internal value by ScaleFactor.
func ToExternal(s Scaled) decimal.Decimal {
	return s.v.Shift(-Scale)
}

// MulScaled multiplies two pre-scaled values and divides once by ScaleFactor,
// so that amount*price stays in internal representation.
func MulScaled(a, b Scaled) Scaled {
	return Scaled{v: a.v.Mul(b.v).Shift(-Scale).Truncate(0)}
}

// ParseScaled parses the integer string form produced by Scaled.String.
func ParseScaled(s string) (Scaled, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Scaled{}, fmt.Errorf("parsing scaled value %q: %w", s, err)
	}
	if !d.Equal(d.Truncate(0)) {
		return Scaled{}, fmt.Errorf("scaled value %q is not an integer", s)
	}
	return Scaled{v: d}, nil
}

// ParseExternal parses a decimal string as supplied by callers.
func ParseExternal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty value")
	}
	return decimal.NewFromString(s)
}

// Add returns s + o.
func (s Scaled) Add(o Scaled) Scaled {
	return Scaled{v: s.v.Add(o.v)}
}

// Sign returns -1, 0 or 1.
func (s Scaled) Sign() int {
	return s.v.Sign()
}

// IsZero reports whether s is zero.
func (s Scaled) IsZero() bool {
	return s.v.IsZero()
}

// Equal reports whether s and o hold the same value.
func (s Scaled) Equal(o Scaled) bool {
	return s.v.Equal(o.v)
}

// String returns the integer form of the internal value.
func (s Scaled) String() string {
	return s.v.String()
}

// MarshalJSON encodes the internal value as a quoted integer string.
func (s Scaled) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.v.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted and bare integers.
func (s *Scaled) UnmarshalJSON(data []byte) error {
	parsed, err := ParseScaled(string(bytes.Trim(data, `"`)))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
