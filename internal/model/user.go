package model

// Role is constrained to a closed set at the client boundary; the
// backend never sees anything else.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// Valid reports whether the role is one of the accepted values.
func (r Role) Valid() bool {
	return r == RoleBuyer || r == RoleSeller
}

// User is an account as returned by the auth endpoints.
type User struct {
	ID       string `json:"_id,omitempty"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// LoginResult is the successful login response.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Credentials is the login request payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the register request payload.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}
