package models

// TokenRequest is the body of POST /api/v1/auth/token.
type TokenRequest struct {
	APIKey  string `json:"api_key" validate:"required"`
	Subject string `json:"subject,omitempty" validate:"omitempty,max=128"`
}

// Validate checks that a key was supplied.
func (r TokenRequest) Validate() error {
	return ValidateStruct(r)
}

// TokenResponse carries an issued access token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	ExpiresAt   string `json:"expires_at"`
}
