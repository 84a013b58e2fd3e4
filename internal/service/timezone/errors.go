package timezone

import (
	"errors"
	"fmt"
)

var (
	errNoEndpoint = errors.New("no lookup endpoint configured")
	errNoZone     = errors.New("lookup response has no timezone")
)

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("lookup returned status %d", e.code)
}
