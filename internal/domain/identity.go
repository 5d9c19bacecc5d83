package domain

// Identity is a verified external identity: an email proven by code, or a Google/Apple
// ID token. It travels inside self-issued tokens until a user record exists for it.
type Identity struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Provider      string `json:"provider"`
	Subject       string `json:"subject,omitempty"`
	Name          string `json:"name,omitempty"`
	Picture       string `json:"picture,omitempty"`
}
