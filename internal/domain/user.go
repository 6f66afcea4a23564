package domain

import "time"

// User is the credential record for an account holder.
//
// Token doubles as the pending email-confirmation token and the pending
// password-reset token; it is nil whenever no action is outstanding, and a
// value is nulled the moment it is consumed. Whichever flow writes the field
// last wins.
type User struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Token        *string
	Confirmed    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPendingToken reports whether a confirmation or reset is outstanding.
func (u *User) HasPendingToken() bool {
	return u.Token != nil && *u.Token != ""
}
