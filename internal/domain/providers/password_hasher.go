package providers

// PasswordHasher hashes and verifies user passwords
type PasswordHasher interface {
	Hash(password string) (string, error)

	// Compare reports whether password matches the stored value
	Compare(stored, password string) bool
}
