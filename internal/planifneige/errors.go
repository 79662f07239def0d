package planifneige

import (
	"errors"
	"fmt"
)

// ErrMissingToken indicates no API token was configured. Fatal at startup.
var ErrMissingToken = errors.New("planifneige: missing API token (set TokenString or PLANIF_NEIGE_TOKEN)")

// UpstreamError is a non-zero responseStatus from the InfoNeige service.
// It aborts the whole fetch; there is nothing per-record to salvage.
type UpstreamError struct {
	Status int
	Desc   string
}

func (e *UpstreamError) Error() string {
	if e.Desc != "" {
		return fmt.Sprintf("planifneige: upstream status %d: %s", e.Status, e.Desc)
	}
	return fmt.Sprintf("planifneige: upstream status %d", e.Status)
}
