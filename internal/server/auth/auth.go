package auth

// LoginRequest is submitted by the frontend to obtain a JWT token.
type LoginRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

// AuthorizedUser is the identity carried by the claims of a valid token.
type AuthorizedUser struct {
	Username string
}
