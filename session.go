package auth

import "time"

// Session is the request scoped view of who is signed in. A nil User
// means the request is anonymous.
type Session struct {
	User      *Identity `json:"user"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// Anonymous returns a session with no user
func Anonymous() Session {
	return Session{}
}

// IsAuthenticated reports whether the session carries a user
func (s Session) IsAuthenticated() bool {
	return s.User != nil
}

// UserID returns the signed in user ID or an empty string
func (s Session) UserID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}

// Materialize builds a session from the result of TokenCodec.Decode. A
// decode failure of any kind, including an absent token, yields an
// anonymous session. The identity is copied from the claims as is, the
// store is never consulted.
func Materialize(claims *Claims, err error) Session {
	if err != nil || claims == nil {
		return Anonymous()
	}

	identity := claims.Identity()
	if identity.IsZero() {
		return Anonymous()
	}

	return Session{
		User:      &identity,
		ExpiresAt: claims.Expires(),
	}
}
