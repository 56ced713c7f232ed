package session

// Claims is the identity carried by a session token. It never holds secret material.
//
// IssuedAt and ExpiresAt are Unix seconds. Claims are immutable once issued.
type Claims struct {
	UserID   string
	Username string

	IssuedAt  int64
	ExpiresAt int64
}
