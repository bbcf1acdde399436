package engine

import "github.com/dmitrijs2005/cloudpool/internal/server/models"

// KeySet holds provider:accountEmail keys of linked accounts.
type KeySet map[string]struct{}

func AccountKeys(accounts []models.Account) KeySet {
	keys := make(KeySet, len(accounts))
	for _, a := range accounts {
		keys[a.Key()] = struct{}{}
	}
	return keys
}

func (k KeySet) Has(key string) bool {
	_, ok := k[key]
	return ok
}

// InaccessibleParts returns the parts whose account is not in keys.
func InaccessibleParts(keys KeySet, m *models.FileManifest) []models.FilePart {
	var out []models.FilePart
	for _, p := range m.Parts {
		if !keys.Has(p.Key()) {
			out = append(out, p)
		}
	}
	return out
}

func FullyAccessible(keys KeySet, m *models.FileManifest) bool {
	for _, p := range m.Parts {
		if !keys.Has(p.Key()) {
			return false
		}
	}
	return true
}

// Orphaned reports whether at least one part of m is unreachable.
func Orphaned(keys KeySet, m *models.FileManifest) bool {
	return !FullyAccessible(keys, m)
}

// MissingAccounts lists the distinct keys of unreachable parts in part order.
func MissingAccounts(keys KeySet, m *models.FileManifest) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range InaccessibleParts(keys, m) {
		if _, ok := seen[p.Key()]; ok {
			continue
		}
		seen[p.Key()] = struct{}{}
		out = append(out, p.Key())
	}
	return out
}

// UsesAccount reports whether any part of m is stored on the account key.
func UsesAccount(key string, m *models.FileManifest) bool {
	for _, p := range m.Parts {
		if p.Key() == key {
			return true
		}
	}
	return false
}
