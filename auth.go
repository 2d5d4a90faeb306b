package respwire

// Authenticator supplies commands that must run on a fresh connection
// before any user traffic, typically AUTH or SELECT. The connection sends
// them once, consumes their replies off the stream, and fails the
// connection if any reply is an error.
type Authenticator interface {
	Commands() (*Request, error)
}

type passwordAuthenticator struct {
	password string
}

// NewPasswordAuthenticator returns an Authenticator that sends a single
// AUTH command with the given password.
func NewPasswordAuthenticator(password string) Authenticator {
	return &passwordAuthenticator{password: password}
}

func (a *passwordAuthenticator) Commands() (*Request, error) {
	req := NewRequest()
	if err := req.AddCommandByComponents("AUTH", a.password); err != nil {
		return nil, err
	}
	return req, nil
}
