package ledger

import "errors"

var (
	ErrUnauthorized            = errors.New("ledger: unauthorized")
	ErrInvalidApp              = errors.New("ledger: invalid app address")
	ErrInvalidReceiver         = errors.New("ledger: invalid reward receiver")
	ErrInvalidDescription      = errors.New("ledger: invalid description length")
	ErrInvalidPercentage       = errors.New("ledger: invalid percentage")
	ErrInvalidAmount           = errors.New("ledger: invalid amount")
	ErrAppNotRegistered        = errors.New("ledger: app not registered")
	ErrSignatureExpired        = errors.New("Signature expired")
	ErrSignatureTooFarInFuture = errors.New("Signature too far in future")
	ErrInvalidSignature        = errors.New("ledger: invalid signature")
	ErrAppExpired              = errors.New("ledger: app expired")
	ErrInsufficientPool        = errors.New("ledger: insufficient reward pool")
	ErrUnknownEventKind        = errors.New("ledger: unknown event kind")
	ErrRequestReplayed         = errors.New("ledger: request already used")
)
