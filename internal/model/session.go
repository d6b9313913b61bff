package model

import "time"

// Role is the capability class granted to an operator session at login.
type Role string

const (
	RoleAnonymous   Role = "anonymous"
	RoleAdmin       Role = "admin"
	RoleStall       Role = "stall"
	RoleGiftCounter Role = "gift_counter"
)

// Session carries the acting operator's identity and capabilities. Every
// ledger and registry operation takes one explicitly; there is no ambient
// "current stall" state anywhere in the system.
type Session struct {
	Token     string    `json:"token"`
	Role      Role      `json:"role"`
	StallID   StallID   `json:"stall_id,omitempty"` // set only for RoleStall
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Authenticated reports whether the session belongs to a logged-in operator.
func (s Session) Authenticated() bool {
	return s.Role != RoleAnonymous && s.Role != ""
}

// CanAward reports whether the session may award points on behalf of stall.
// A stall operator may only award for its own stall.
func (s Session) CanAward(stall StallID) bool {
	switch s.Role {
	case RoleAdmin:
		return true
	case RoleStall:
		return s.StallID == stall
	default:
		return false
	}
}

// CanDeduct reports whether the session may deduct from a player's balance.
func (s Session) CanDeduct() bool {
	return s.Role == RoleAdmin || s.Role == RoleGiftCounter
}

// CanManage reports whether the session may create/delete players and stalls.
func (s Session) CanManage() bool {
	return s.Role == RoleAdmin
}

// CanView reports whether the session may read records and rankings.
func (s Session) CanView() bool {
	return s.Authenticated()
}
