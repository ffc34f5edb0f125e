// Package units converts between base units and display decimals.
package units

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Decimals is the number of decimal places between the display unit and the
// base unit (1 unit = 10^18 base units).
const Decimals = 18

// ParseAmount parses a decimal display amount such as "0.01" into base units.
func ParseAmount(s string) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return ToBaseUnits(d)
}

// ToBaseUnits converts a display amount into base units. Negative amounts,
// amounts with more than Decimals fractional digits and amounts that do not
// fit in 256 bits are rejected.
func ToBaseUnits(d decimal.Decimal) (*uint256.Int, error) {
	if d.IsNegative() {
		return nil, fmt.Errorf("amount %s is negative", d)
	}
	shifted := d.Shift(Decimals)
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", d, Decimals)
	}
	v, overflow := uint256.FromBig(shifted.BigInt())
	if overflow {
		return nil, fmt.Errorf("amount %s overflows 256 bits", d)
	}
	return v, nil
}

// FromBaseUnits converts base units into a display amount. A nil value is
// treated as zero.
func FromBaseUnits(v *uint256.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v.ToBig(), -Decimals)
}

// FormatAmount renders base units as a display decimal string.
func FormatAmount(v *uint256.Int) string {
	return FromBaseUnits(v).String()
}

// BaseUnitsToDecimal converts base units into a decimal still denominated in
// base units, for storage in signed double-entry columns.
func BaseUnitsToDecimal(v *uint256.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v.ToBig(), 0)
}

// DecimalToBaseUnits is the inverse of BaseUnitsToDecimal. Negative values
// are clamped to zero.
func DecimalToBaseUnits(d decimal.Decimal) *uint256.Int {
	if d.Sign() <= 0 {
		return new(uint256.Int)
	}
	v, overflow := uint256.FromBig(d.Truncate(0).BigInt())
	if overflow {
		return new(uint256.Int).SetAllOne()
	}
	return v
}

// Time converts a ledger timestamp into a time.Time in loc.
func Time(ts uint64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(int64(ts), 0).In(loc)
}

// FormatTimestamp renders a ledger timestamp with layout in loc.
func FormatTimestamp(ts uint64, layout string, loc *time.Location) string {
	return Time(ts, loc).Format(layout)
}
