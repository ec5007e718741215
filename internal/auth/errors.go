package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("email or password wrong")
	ErrOAuthAccount       = errors.New("this account signs in with an external provider")
	ErrInvalidToken       = errors.New("token not valid")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrUserGone           = errors.New("user no longer exists, please login again")
	ErrPasswordChanged    = errors.New("user recently changed password, please login again")
	ErrPasswordMismatch   = errors.New("wrong password")
	ErrOAuthRejected      = errors.New("oauth credential rejected")
	ErrUnknownProvider    = errors.New("unknown oauth provider")
)
