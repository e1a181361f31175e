package store

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// ErrUsageLimit is returned when a free account has no requests left.
var ErrUsageLimit = errors.New("usage_limit_reached")

// IsLimitError reports whether err is the quota outcome rather than a
// storage failure. Errors raised by the stored procedure only carry the
// condition in their message.
func IsLimitError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUsageLimit) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && isLimitMessage(pqErr.Message+" "+pqErr.Detail) {
		return true
	}
	return isLimitMessage(err.Error())
}

func isLimitMessage(msg string) bool {
	msg = strings.ToLower(msg)
	if strings.Contains(msg, "usage_limit_reached") {
		return true
	}
	return strings.Contains(msg, "usage") && strings.Contains(msg, "limit")
}
