package quota

import (
	"errors"
	"fmt"

	"codeberg.org/luchgpt/server/luchgpt/users"
)

// FreeDailyLimit is the default shared daily ceiling for free users.
const FreeDailyLimit int64 = 5

var ErrQuotaExceeded = errors.New("quota exceeded")

// returned when a request would go past its ceiling
type ExceededError struct {
	Limit    int64
	Used     int64
	ModelKey string
	Tier     users.Tier
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("%s quota exceeded for model %s: %d of %d used today", e.Tier, e.ModelKey, e.Used, e.Limit)
}

func (e *ExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// usage snapshot for one model
type Status struct {
	ModelKey string `json:"model_key"`
	Used     int64  `json:"used"`
	Limit    int64  `json:"limit"`

	// true when Used counts every model of the day
	Pooled bool `json:"pooled"`
}

// requests left before the ceiling
func (s Status) Remaining() int64 {
	if s.Used >= s.Limit {
		return 0
	}

	return s.Limit - s.Used
}
