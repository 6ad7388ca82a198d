package dto

// SignUpRequest payload for new accounts.
type SignUpRequest struct {
	Username   string            `json:"username"`
	Email      string            `json:"email"`
	Password   string            `json:"password"`
	RePassword string            `json:"re_password"`
	Attributes map[string]string `json:"attributes"`
}

// SignInRequest payload for sign-in.
type SignInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SetRoleRequest payload for role assignment.
type SetRoleRequest struct {
	Role string `json:"role"`
}

// AuthResponse carries an issued API key.
type AuthResponse struct {
	Token string `json:"token"`
}
