// internal/auth/policy.go
package auth

// RootUserID is the account that bypasses every ownership check.
const RootUserID uint = 1

// IsRoot reports whether userID is the root account.
func IsRoot(userID uint) bool {
	return userID == RootUserID
}

// CanAccess is the single ownership rule: owners see their own rows, root
// sees everything.
func CanAccess(ownerID, requesterID uint) bool {
	return requesterID != 0 && (ownerID == requesterID || IsRoot(requesterID))
}
