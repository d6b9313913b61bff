package redis

import (
	"fmt"

	"github.com/openkermesse/stallpoints/internal/model"
)

// Key prefix for all ledger data
const keyPrefix = "stallpoints"

// playerKey returns the Redis key for a PlayerRecord
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// playersIndexKey returns the Redis key for the SET of all player ids
func playersIndexKey() string {
	return fmt.Sprintf("%s:idx:players", keyPrefix)
}

// stallKey returns the Redis key for a Stall
func stallKey(id model.StallID) string {
	return fmt.Sprintf("%s:stall:%s", keyPrefix, id)
}

// stallsIndexKey returns the Redis key for the SET of all stall ids
func stallsIndexKey() string {
	return fmt.Sprintf("%s:idx:stalls", keyPrefix)
}

// changeChannel returns the pub/sub channel carrying change signals for a
// collection
func changeChannel(collection string) string {
	return fmt.Sprintf("%s:changes:%s", keyPrefix, collection)
}
