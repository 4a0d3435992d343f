package transaction

import (
	"github.com/google/uuid"
)

// TxnID identifies a transaction. It is minted when the transaction begins and is only used as an opaque token
// for lock ownership and dirty page attribution.
type TxnID uuid.UUID

// Nil is the id of no transaction. Clean pages report it as their dirtier.
var Nil = TxnID(uuid.Nil)

// New mints a fresh, globally unique transaction id.
func New() TxnID {
	return TxnID(uuid.New())
}

func (t TxnID) String() string {
	return uuid.UUID(t).String()
}

func (t TxnID) IsNil() bool {
	return t == Nil
}

// Parse reads a transaction id back from its string form.
func Parse(s string) (TxnID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return Nil, err
	}
	return TxnID(id), nil
}
