package domain

import "errors"

var (
	// ErrInvalidSession signals that the upstream identity provider did not
	// confirm the claimed (session, user) pair, or that the inputs were missing.
	ErrInvalidSession = errors.New("invalid session")

	// ErrInvalidToken covers every refresh failure: bad signature, expired,
	// wrong type claim, malformed payload, or a rotated-out token id.
	ErrInvalidToken = errors.New("invalid refresh token")
)
