package unlock

import "errors"

// Sentinel errors for key-file parsing and validation.
var (
	ErrKeyFileInvalid   = errors.New("invalid key file format")
	ErrSignatureInvalid = errors.New("signature verification failed")
	ErrPublicKeyInvalid = errors.New("invalid public key")
	ErrProductMismatch  = errors.New("key is for a different product")
	ErrMachineMismatch  = errors.New("key is bound to a different machine")
)

// Sentinel errors for the webserver unlock exchange.
var (
	ErrConnectionFailed = errors.New("could not connect to the server")
	ErrReplyInvalid     = errors.New("invalid server reply")
)
