// Package rollout provides deterministic entity bucketing for percentage
// rollouts. It hashes the flag id and entity id into a bucket (0-99) so the
// same entity always lands in the same bucket for a given flag, across
// process restarts and across SDK instances evaluating the same snapshot.
package rollout

import (
	"github.com/cespare/xxhash/v2"
)

// Bucket returns a deterministic bucket (0-99) for the given entity and flag.
//
// The construction is frozen: xxhash64 of "flagID:entityID" reduced modulo
// 100. Changing it would move entities between buckets and is a breaking
// change for every consumer relying on stable rollout assignment.
func Bucket(entityID, flagID string) int {
	if entityID == "" {
		return -1 // No entity context, cannot bucket
	}
	key := flagID + ":" + entityID
	return int(xxhash.Sum64String(key) % 100)
}
