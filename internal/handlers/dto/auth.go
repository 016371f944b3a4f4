package dto

type TokenResponse struct {
	PublicID string `json:"public_id"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

type ResetPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

type NewPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}
