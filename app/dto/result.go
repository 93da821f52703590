package dto

// TokenPair is the result of login and refresh: a short-lived access token and
// the single active refresh token for the user.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
}
