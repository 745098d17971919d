package steinmetz

import (
	"errors"

	"github.com/RMahshie/corefit/pkg/models"
)

var (
	// ErrEmptyWindow means the frequency filter selected no points
	ErrEmptyWindow = errors.New("no measurement points in window")
	// ErrInsufficientPoints means the window has no more points than fitted unknowns
	ErrInsufficientPoints = errors.New("too few points for fit")
	// ErrNonConvergence means the optimizer gave up on the window
	ErrNonConvergence = errors.New("fit did not converge")
	// ErrInvalidCoefficients means a converged fit broke the sign constraints
	ErrInvalidCoefficients = errors.New("fitted coefficients are not physical")
	// ErrNoValidPartition means every candidate partition was discarded
	ErrNoValidPartition = errors.New("no valid partition")
	// ErrBelowAcceptanceThreshold means the best fit is not accurate enough to commit
	ErrBelowAcceptanceThreshold = errors.New("fit error not below acceptance threshold")
	// ErrNoRanges means a coefficient lookup was given nothing to look in
	ErrNoRanges = errors.New("no steinmetz ranges")
	// ErrNoSteinmetzMethod means a material has nowhere to commit coefficients
	ErrNoSteinmetzMethod = models.ErrNoSteinmetzMethod
)
