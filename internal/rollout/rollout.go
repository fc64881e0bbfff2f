package rollout

import "errors"

// ErrInvalidRollout is returned when the rollout percentage is not in the valid range (0-100).
var ErrInvalidRollout = errors.New("rollout must be between 0 and 100")

// IsRolledOut determines whether an entity is included in a rollout.
//
// Algorithm:
//  1. Bucket(entityID, flagID) -> bucket (0-99)
//  2. The entity is included when bucket < pct.
//
// Special cases:
//   - pct=0: always false
//   - pct=100: always true, even without an entity id
//   - entityID="": false (no entity context means no targeting)
//
// Increasing pct only ever adds entities to the rollout, never removes any:
// the set matched at a lower percentage is a subset of the set matched at a
// higher one.
func IsRolledOut(entityID, flagID string, pct uint32) (bool, error) {
	if pct > 100 {
		return false, ErrInvalidRollout
	}
	if pct == 0 {
		return false, nil
	}
	if pct == 100 {
		return true, nil
	}
	bucket := Bucket(entityID, flagID)
	if bucket < 0 {
		return false, nil
	}
	return bucket < int(pct), nil
}
