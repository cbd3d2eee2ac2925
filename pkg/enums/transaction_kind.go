package enums

import "fmt"

// TransactionKind maps to the transaction_kind_enum enum in Postgres. Every stock
// balance change is recorded with exactly one of these causes.
type TransactionKind string

const (
	TransactionKindRestock    TransactionKind = "RESTOCK"
	TransactionKindUsage      TransactionKind = "USAGE"
	TransactionKindAdjustment TransactionKind = "ADJUSTMENT"
	TransactionKindWaste      TransactionKind = "WASTE"
	TransactionKindReturn     TransactionKind = "RETURN"
)

var validTransactionKinds = []TransactionKind{
	TransactionKindRestock,
	TransactionKindUsage,
	TransactionKindAdjustment,
	TransactionKindWaste,
	TransactionKindReturn,
}

// String implements fmt.Stringer.
func (k TransactionKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known TransactionKind.
func (k TransactionKind) IsValid() bool {
	for _, candidate := range validTransactionKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseTransactionKind converts raw input into a TransactionKind.
func ParseTransactionKind(value string) (TransactionKind, error) {
	for _, candidate := range validTransactionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction kind %q", value)
}
