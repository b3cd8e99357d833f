package cli

import (
	"errors"

	isolateerrors "github.com/isidentical/isolate/internal/pkg/errors"
)

// exitCodeFor classifies a returned error into the exit codes of the
// external interface: a caught user exception exits 1, a provisioning
// failure exits 3, and everything else bridge- or infra-shaped exits 2.
func exitCodeFor(err error) int {
	var ue *isolateerrors.UserException
	if errors.As(err, &ue) {
		return ExitUserException
	}

	var provisionFailed *isolateerrors.ProvisionFailed
	var alreadyExists *isolateerrors.AlreadyExists
	var busy *isolateerrors.Busy
	switch {
	case errors.As(err, &provisionFailed), errors.As(err, &alreadyExists), errors.As(err, &busy):
		return ExitProvisionFailed
	}

	return ExitInfraFailure
}
