package profile

import "errors"

var (
	// ErrNotAuthorized means the operation needs key material the profile
	// does not hold (typically the private key).
	ErrNotAuthorized = errors.New("credentials are not authorized for this operation")
	// ErrPermissionDenied means the caller identity has no grant on the field.
	ErrPermissionDenied = errors.New("caller is not permitted to read this field")
	// ErrInvalidSignature means the stored signature does not verify
	// against the body.
	ErrInvalidSignature = errors.New("profile signature is invalid")
	// ErrMalformedField means a field's stored shape contradicts its
	// declared visibility.
	ErrMalformedField = errors.New("field shape does not match its visibility")
	// ErrUnknownVisibility means a field declares a visibility mode this
	// implementation does not recognize.
	ErrUnknownVisibility = errors.New("unrecognized visibility mode")

	ErrNoIdentity     = errors.New("profile does not have an id")
	ErrFieldNotFound  = errors.New("field is not set")
	ErrFriendNotFound = errors.New("friend is not on the friend list")

	ErrVisibilityRequired = errors.New("visibility was not specified and cannot be inferred")
	ErrCallerRequired     = errors.New("a caller identity is required to read friends fields")
	ErrNoPublicKey        = errors.New("profile does not have a public key")
)
