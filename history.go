package identity

import "time"

// isReusedPassword reports whether candidate matches the active credential
// hash or any retired hash in the bounded history. Every comparison goes
// through the constant-time Argon2 verifier; the first match wins.
func (e *Engine) isReusedPassword(candidate, currentHash string, history []CredentialEntry) (bool, error) {
	if currentHash != "" {
		ok, err := e.hasher.Verify(candidate, currentHash)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}

	for _, entry := range history {
		ok, err := e.hasher.Verify(candidate, entry.Hash)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}

	return false, nil
}

// recordCredential appends the retired hash to the history and evicts the
// oldest entries once the depth is exceeded. Eviction is strictly FIFO on
// insertion order, never on entry age.
func recordCredential(history []CredentialEntry, retiredHash string, at time.Time, depth int) []CredentialEntry {
	if retiredHash == "" || depth < 1 {
		return history
	}

	updated := append(history, CredentialEntry{Hash: retiredHash, AddedAt: at})
	if overflow := len(updated) - depth; overflow > 0 {
		updated = append([]CredentialEntry(nil), updated[overflow:]...)
	}
	return updated
}
