package errorx

type Code int

var Unknown = Error{Code: 100000, Message: "Request failed"}

const (
	// Common codes
	BadRequest       Code = 100001
	BadResponse      Code = 100002
	PermissionDenied Code = 100003
	NotFound         Code = 100004
	AlreadyExists    Code = 100006
	Internal         Code = 100007
	Unavailable      Code = 100008
	Misconfigured    Code = 100012

	// Identity codes
	NotWhitelisted       Code = 200001
	RequiresVerification Code = 200002

	// Claim codes
	NothingToClaim  Code = 300001
	InsufficientGas Code = 300002
	ClaimFailed     Code = 300003
)
