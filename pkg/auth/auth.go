package auth

// Identity is the caller identity recovered from a JWT, used only for
// logging and metrics. The proxy never authorizes or scopes anything on
// it; only the upstream owns credential acceptance.
type Identity struct {
	// Subject is the JWT's subject claim.
	Subject string

	// Scopes lists the authorization scopes named by the token, if any.
	Scopes []string
}
