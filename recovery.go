package gatehouse

import "crypto/subtle"

// verifyRecoveryCode checks candidate against the stored one-time set. Every
// stored code is compared so the work done does not depend on where (or
// whether) a match sits in the set. Empty sets never match.
//
// The verifier only answers yes or no; the orchestrator owns the policy that
// a consumed code clears the entire set and the TOTP secret.
func verifyRecoveryCode(storedCodes []string, candidate string) bool {
	if len(storedCodes) == 0 || candidate == "" {
		return false
	}

	matched := 0
	for _, code := range storedCodes {
		if len(code) == len(candidate) {
			matched |= subtle.ConstantTimeCompare([]byte(code), []byte(candidate))
		}
	}

	return matched == 1
}
