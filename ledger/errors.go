package ledger

import "errors"

var (
	ErrUnauthorized            = errors.New("authorization does not satisfy account permissions")
	ErrInvalidSignature        = errors.New("invalid signature")
	ErrInvalidProof            = errors.New("invalid proof")
	ErrPreconditionUnsatisfied = errors.New("precondition unsatisfied")
	ErrInsufficientBalance     = errors.New("insufficient balance")
	ErrUnbalanced              = errors.New("balance changes do not sum to zero")
	ErrAccountNotFound         = errors.New("account not found")
	ErrNonceMismatch           = errors.New("nonce mismatch")
	ErrTransactionLimit        = errors.New("transaction exceeds cost limit")
	ErrMalformed               = errors.New("malformed transaction")
)
