package dto

// AuthRequest describes login/password payload.
type AuthRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is returned after a successful login.
type TokenResponse struct {
	Token   string `json:"token"`
	ActorID string `json:"actor_id"`
	Role    string `json:"role"`
}

// CreateUserRequest registers a staff account.
type CreateUserRequest struct {
	Login    string `json:"login" binding:"required,max=100"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Role     string `json:"role" binding:"required,oneof=admin staff viewer"`
}

// UserResponse describes a staff account without credentials.
type UserResponse struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Role  string `json:"role"`
}
