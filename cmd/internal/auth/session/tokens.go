package session

// Token lifetimes in seconds. Compiled constants: there is deliberately no
// runtime configuration surface for these.
const (
	// RequestTokenTTL is the starting lifetime of a request token.
	RequestTokenTTL = 600

	// RefreshTokenTTL is the starting lifetime of a refresh token.
	RefreshTokenTTL = 86400
)

// Tokens is the transport-facing token pair for one session.
//
// TTLs are remaining whole seconds; -1 marks an absent or invalid token.
type Tokens struct {
	RequestToken string `json:"request_token" msgpack:"request_token"`
	RefreshToken string `json:"refresh_token" msgpack:"refresh_token"`
	RequestTTL   int32  `json:"request_ttl" msgpack:"request_ttl"`
	RefreshTTL   int32  `json:"refresh_ttl" msgpack:"refresh_ttl"`
}

// Scrub clears the token material after transmission.
func (t *Tokens) Scrub() {
	if t == nil {
		return
	}
	t.RequestToken = ""
	t.RefreshToken = ""
	t.RequestTTL = -1
	t.RefreshTTL = -1
}
