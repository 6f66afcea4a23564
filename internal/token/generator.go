// Package token generates the opaque single-use identifiers stored on the
// user record for email confirmation and password reset.
package token

import "github.com/google/uuid"

// NewOpaque returns a fresh opaque token value. Tokens carry no meaning;
// they only have to be unguessable and unique.
func NewOpaque() string {
	return uuid.NewString()
}
