package models

import "time"

// FilePart identifies exactly one remote object holding one chunk.
// Size is the stored size, which includes codec overhead when encryption is on.
type FilePart struct {
	Provider     string
	AccountEmail string
	RemoteID     string
	Size         int64
	Order        int
}

func (p FilePart) Key() string {
	return AccountKey(p.Provider, p.AccountEmail)
}

// FileManifest describes how to rebuild one logical file from its parts.
// TeamID is empty for personal files.
type FileManifest struct {
	ID             string
	OwnerID        string
	FileName       string
	TotalSize      int64
	MimeType       string
	Parts          []FilePart
	TeamID         string
	TargetProfiles []string
	CreatedAt      time.Time
}

func (m *FileManifest) IsTeam() bool { return m.TeamID != "" }

// AllocationEntry assigns ByteLength bytes at position Order to Account.
type AllocationEntry struct {
	Account    Account
	ByteLength int64
	Order      int
}

type AllocationPlan []AllocationEntry

// Total returns the number of bytes the plan covers.
func (p AllocationPlan) Total() int64 {
	var n int64
	for _, e := range p {
		n += e.ByteLength
	}
	return n
}
