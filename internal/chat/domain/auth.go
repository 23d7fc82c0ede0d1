package domain

// AuthContext is the outcome of resolving a bearer token. A zero value is
// unauthenticated.
type AuthContext struct {
	Session       Session
	Authenticated bool
}

// Foundation is returned from a primary session bootstrap.
type Foundation struct {
	Session      Session `json:"session"`
	User         Profile `json:"user"`
	RequiresTOTP bool    `json:"requiresTotp"`
}
