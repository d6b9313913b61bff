package model

import (
	"regexp"
	"strings"
	"time"
)

// StallID identifies a point-awarding station. It doubles as the per-stall
// counter key on every player record, so it must be identifier-safe.
type StallID string

// Stall is the identity record for a collection station.
type Stall struct {
	ID             StallID   `json:"id"`
	DisplayName    string    `json:"display_name"`
	Incharge       string    `json:"incharge"`
	CredentialHash string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

var stallIDPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Reserved login names that can never be stall identifiers.
var reservedStallIDs = map[string]bool{
	"admin":       true,
	"giftcounter": true,
}

// Validate checks that the id is usable as a counter field name and does not
// collide with a reserved operator login.
func (id StallID) Validate() error {
	if !stallIDPattern.MatchString(string(id)) {
		return ErrInvalidStallID
	}
	if reservedStallIDs[strings.ToLower(string(id))] {
		return ErrInvalidStallID
	}
	return nil
}
