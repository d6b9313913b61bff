package request

// LoginRequest is the request body for logging in. Username is either one of
// the fixed operator accounts or a stall id.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreatePlayerRequest is the request body for registering a player
type CreatePlayerRequest struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

// AwardRequest is the request body for awarding points to a player
type AwardRequest struct {
	StallID string `json:"stall_id"`
	Amount  int    `json:"amount"`
}

// DeductRequest is the request body for deducting points from a balance
type DeductRequest struct {
	Amount int `json:"amount"`
}

// RegisterStallRequest is the request body for registering a stall
type RegisterStallRequest struct {
	StallID     string `json:"stall_id"`
	DisplayName string `json:"display_name"`
	Incharge    string `json:"incharge"`
	Credential  string `json:"credential"`
}

// UpdateStallRequest is the request body for updating a stall. Credential is
// optional; empty leaves the existing credential in place.
type UpdateStallRequest struct {
	DisplayName string `json:"display_name"`
	Incharge    string `json:"incharge"`
	Credential  string `json:"credential,omitempty"`
}
