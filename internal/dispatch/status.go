package dispatch

import "github.com/koustreak/DatAct/internal/errs"

// Status codes returned to callers that want a plain integer outcome.
const (
	StatusOK     = 0  // success, or a row is available
	StatusNoData = 36 // normal end of rows
	StatusError  = -1 // anything else
)

// Status maps a Perform error to its status code. A duplicate open reuses
// the existing connection and counts as success.
func Status(err error) int {
	switch {
	case err == nil, errs.IsDuplicateOpen(err):
		return StatusOK
	case errs.IsNoData(err):
		return StatusNoData
	default:
		return StatusError
	}
}
