package enums

import "fmt"

// Unit maps to the unit_enum enum in Postgres.
type Unit string

const (
	UnitKilogram   Unit = "KG"
	UnitGram       Unit = "G"
	UnitLiter      Unit = "L"
	UnitMilliliter Unit = "ML"
	UnitPiece      Unit = "PC"
	UnitDozen      Unit = "DZ"
	UnitPound      Unit = "LB"
	UnitOunce      Unit = "OZ"
)

var validUnits = []Unit{
	UnitKilogram,
	UnitGram,
	UnitLiter,
	UnitMilliliter,
	UnitPiece,
	UnitDozen,
	UnitPound,
	UnitOunce,
}

// String implements fmt.Stringer.
func (u Unit) String() string {
	return string(u)
}

// IsValid reports whether the value is a known Unit.
func (u Unit) IsValid() bool {
	for _, candidate := range validUnits {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUnit converts raw input into a Unit.
func ParseUnit(value string) (Unit, error) {
	for _, candidate := range validUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid unit %q", value)
}
