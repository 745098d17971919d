package steinmetz

import "github.com/RMahshie/corefit/pkg/models"

// IsValid accepts a coefficient set only when k, alpha and beta are all non-negative
func IsValid(set models.CoefficientSet) bool {
	return set.K >= 0 && set.Alpha >= 0 && set.Beta >= 0
}
