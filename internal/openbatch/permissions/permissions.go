// Package permissions defines the admission rules for restricted signals.
package permissions

import (
	"github.com/openbatch/openbatch/pkg/api"
)

// IsRestrictedSignal returns true for the pseudo-signals that require
// operator or manager privilege. Plain signals are governed only by normal
// job-ownership rules, which are enforced upstream.
func IsRestrictedSignal(signal string) bool {
	return api.IsSuspend(signal) || api.IsResume(signal)
}

// CanAdministerJobs returns true if the caller holds any operator or manager
// read/write privilege.
func CanAdministerJobs(perm api.Perm) bool {
	return perm&(api.PermOperatorRead|api.PermOperatorWrite|api.PermManagerRead|api.PermManagerWrite) != 0
}
