package api

import "time"

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Salt     []byte `json:"salt"`
	Verifier []byte `json:"verifier"`
}

type RegisterResponse struct {
	UserID string `json:"user_id"`
}

type GetSaltRequest struct {
	Username string `json:"username"`
}

type GetSaltResponse struct {
	Salt []byte `json:"salt"`
}

type LoginRequest struct {
	Username          string `json:"username"`
	VerifierCandidate []byte `json:"verifier_candidate"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse answers Login and RefreshToken.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// FileInfo describes a stored file without its content.
type FileInfo struct {
	ID             string    `json:"id"`
	FileName       string    `json:"file_name"`
	TotalSize      int64     `json:"total_size"`
	MimeType       string    `json:"mime_type"`
	CreatedAt      time.Time `json:"created_at"`
	TeamID         string    `json:"team_id,omitempty"`
	TargetProfiles []string  `json:"target_profiles,omitempty"`
	IsOwner        bool      `json:"is_owner"`
	Parts          int       `json:"parts,omitempty"`
}

type UploadRequest struct {
	FileName       string   `json:"file_name"`
	MimeType       string   `json:"mime_type,omitempty"`
	Data           []byte   `json:"data"`
	TeamID         string   `json:"team_id,omitempty"`
	TargetProfiles []string `json:"target_profiles,omitempty"`
}

type UploadResponse struct {
	File FileInfo `json:"file"`
}

type ListRequest struct {
	TeamID string `json:"team_id,omitempty"`
}

type ListResponse struct {
	Files []FileInfo `json:"files"`
}

type GetRequest struct {
	FileID string `json:"file_id"`
}

type GetResponse struct {
	File FileInfo `json:"file"`
	Data []byte   `json:"data"`
}

type DeleteRequest struct {
	FileID string `json:"file_id"`
}

type DeleteResponse struct {
	Deleted      int    `json:"deleted"`
	Failed       int    `json:"failed"`
	Inaccessible int    `json:"inaccessible"`
	DeletedBy    string `json:"deleted_by"`
}

type OrphanedRequest struct{}

type OrphanedFile struct {
	ID              string    `json:"id"`
	FileName        string    `json:"file_name"`
	TotalSize       int64     `json:"total_size"`
	CreatedAt       time.Time `json:"created_at"`
	TotalParts      int       `json:"total_parts"`
	MissingParts    int       `json:"missing_parts"`
	MissingAccounts []string  `json:"missing_accounts"`
}

type OrphanedResponse struct {
	Files      []OrphanedFile `json:"files"`
	TotalFiles int            `json:"total_files"`
}

type ShareRequest struct {
	FileID   string   `json:"file_id"`
	Profiles []string `json:"profiles"`
}

type ShareResponse struct {
	File FileInfo `json:"file"`
}

type StorageStatsRequest struct {
	TeamID string `json:"team_id,omitempty"`
}

type AccountStats struct {
	Provider     string    `json:"provider"`
	AccountEmail string    `json:"account_email"`
	Available    int64     `json:"available"`
	Used         int64     `json:"used"`
	Total        int64     `json:"total"`
	ExpiresAt    time.Time `json:"expires_at,omitzero"`
	Error        string    `json:"error,omitempty"`
}

type StorageStatsResponse struct {
	TotalAvailable int64          `json:"total_available"`
	TotalUsed      int64          `json:"total_used"`
	Accounts       []AccountStats `json:"accounts"`
}

type LinkedAccountsRequest struct {
	TeamID string `json:"team_id,omitempty"`
}

type LinkedAccount struct {
	Provider     string    `json:"provider"`
	AccountEmail string    `json:"account_email"`
	ExpiresAt    time.Time `json:"expires_at,omitzero"`
}

type LinkedAccountsResponse struct {
	Accounts []LinkedAccount `json:"accounts"`
}

// LinkAccountRequest carries credentials obtained by an external
// authorization flow. For object stores AccountEmail is the bucket,
// AccessToken the access key id and RefreshToken the secret key.
type LinkAccountRequest struct {
	TeamID       string    `json:"team_id,omitempty"`
	Provider     string    `json:"provider"`
	AccountEmail string    `json:"account_email"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitzero"`
}

type LinkAccountResponse struct{}

// UnlinkAccountRequest removes every account of Provider when
// AccountEmail is empty.
type UnlinkAccountRequest struct {
	TeamID       string `json:"team_id,omitempty"`
	Provider     string `json:"provider"`
	AccountEmail string `json:"account_email,omitempty"`
}

type UnlinkAccountResponse struct {
	Removed   int64 `json:"removed"`
	Remaining int   `json:"remaining"`
}

type DisconnectImpactRequest struct {
	Provider     string `json:"provider"`
	AccountEmail string `json:"account_email"`
}

type DisconnectImpactResponse struct {
	Provider          string   `json:"provider"`
	AccountEmail      string   `json:"account_email"`
	TotalFiles        int      `json:"total_files"`
	AffectedFiles     int      `json:"affected_files"`
	AffectedFileNames []string `json:"affected_file_names"`
}
