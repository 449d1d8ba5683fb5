package request

// RegisterAccountRequest is the request body for registering an account
type RegisterAccountRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// IssueTokenRequest is the request body for exchanging credentials for a
// login token
type IssueTokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
