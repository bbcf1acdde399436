package grpc

import (
	"context"

	"github.com/dmitrijs2005/cloudpool/internal/api"
	"github.com/dmitrijs2005/cloudpool/internal/common"
	"github.com/dmitrijs2005/cloudpool/internal/server/models"
	"github.com/dmitrijs2005/cloudpool/internal/server/services"
	"github.com/google/uuid"
)

// checkFileID maps ids that are not UUIDs to ErrorNotFound; files.id is a
// UUID column.
func checkFileID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.ErrorNotFound
	}
	return nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *api.PingRequest) (*api.PingResponse, error) {
	return &api.PingResponse{Status: "OK"}, nil
}

func (s *GRPCServer) Register(ctx context.Context, req *api.RegisterRequest) (*api.RegisterResponse, error) {
	s.logger.Info(ctx, "Registration request")

	user, err := s.users.Register(ctx, req.Username, req.Salt, req.Verifier)
	if err != nil {
		return nil, s.fail(ctx, "register", err)
	}

	s.logger.Info(ctx, "Registered", "username", req.Username)
	return &api.RegisterResponse{UserID: user.ID}, nil
}

func (s *GRPCServer) GetSalt(ctx context.Context, req *api.GetSaltRequest) (*api.GetSaltResponse, error) {
	salt, err := s.users.GetSalt(ctx, req.Username)
	if err != nil {
		return nil, s.fail(ctx, "get_salt", err)
	}
	return &api.GetSaltResponse{Salt: salt}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *api.LoginRequest) (*api.TokenResponse, error) {
	tokens, err := s.users.Login(ctx, req.Username, req.VerifierCandidate)
	if err != nil {
		return nil, s.fail(ctx, "login", err)
	}
	return &api.TokenResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *api.RefreshTokenRequest) (*api.TokenResponse, error) {
	tokens, err := s.users.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.fail(ctx, "refresh_token", err)
	}
	return &api.TokenResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) Upload(ctx context.Context, req *api.UploadRequest) (*api.UploadResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	m, err := s.files.Upload(ctx, userID, services.UploadInput{
		FileName:       req.FileName,
		MimeType:       req.MimeType,
		Data:           req.Data,
		TeamID:         req.TeamID,
		TargetProfiles: req.TargetProfiles,
	})
	if err != nil {
		return nil, s.fail(ctx, "upload", err)
	}
	return &api.UploadResponse{File: manifestInfo(m, userID)}, nil
}

func (s *GRPCServer) List(ctx context.Context, req *api.ListRequest) (*api.ListResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	files, err := s.files.List(ctx, userID, req.TeamID)
	if err != nil {
		return nil, s.fail(ctx, "list", err)
	}

	resp := &api.ListResponse{Files: make([]api.FileInfo, 0, len(files))}
	for _, f := range files {
		resp.Files = append(resp.Files, api.FileInfo{
			ID:             f.ID,
			FileName:       f.FileName,
			TotalSize:      f.TotalSize,
			MimeType:       f.MimeType,
			CreatedAt:      f.CreatedAt,
			TeamID:         f.TeamID,
			TargetProfiles: f.TargetProfiles,
			IsOwner:        f.IsOwner,
		})
	}
	return resp, nil
}

func (s *GRPCServer) Get(ctx context.Context, req *api.GetRequest) (*api.GetResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := checkFileID(req.FileID); err != nil {
		return nil, s.fail(ctx, "get", err)
	}

	m, data, err := s.files.Get(ctx, userID, req.FileID)
	if err != nil {
		return nil, s.fail(ctx, "get", err)
	}
	return &api.GetResponse{File: manifestInfo(m, userID), Data: data}, nil
}

func (s *GRPCServer) Delete(ctx context.Context, req *api.DeleteRequest) (*api.DeleteResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := checkFileID(req.FileID); err != nil {
		return nil, s.fail(ctx, "delete", err)
	}

	res, err := s.files.Delete(ctx, userID, req.FileID)
	if err != nil {
		return nil, s.fail(ctx, "delete", err)
	}
	return &api.DeleteResponse{
		Deleted:      res.Deleted,
		Failed:       res.Failed,
		Inaccessible: res.Inaccessible,
		DeletedBy:    res.DeletedBy,
	}, nil
}

func (s *GRPCServer) Orphaned(ctx context.Context, req *api.OrphanedRequest) (*api.OrphanedResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	report, err := s.files.Orphaned(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, "orphaned", err)
	}

	resp := &api.OrphanedResponse{TotalFiles: report.TotalFiles, Files: make([]api.OrphanedFile, 0, len(report.Files))}
	for _, f := range report.Files {
		resp.Files = append(resp.Files, api.OrphanedFile{
			ID:              f.ID,
			FileName:        f.FileName,
			TotalSize:       f.TotalSize,
			CreatedAt:       f.CreatedAt,
			TotalParts:      f.TotalParts,
			MissingParts:    f.MissingParts,
			MissingAccounts: f.MissingAccounts,
		})
	}
	return resp, nil
}

func (s *GRPCServer) Share(ctx context.Context, req *api.ShareRequest) (*api.ShareResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := checkFileID(req.FileID); err != nil {
		return nil, s.fail(ctx, "share", err)
	}

	m, err := s.files.Share(ctx, userID, req.FileID, req.Profiles)
	if err != nil {
		return nil, s.fail(ctx, "share", err)
	}
	return &api.ShareResponse{File: manifestInfo(m, userID)}, nil
}

func (s *GRPCServer) StorageStats(ctx context.Context, req *api.StorageStatsRequest) (*api.StorageStatsResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := s.accounts.StorageStats(ctx, userID, req.TeamID)
	if err != nil {
		return nil, s.fail(ctx, "storage_stats", err)
	}

	resp := &api.StorageStatsResponse{
		TotalAvailable: stats.TotalAvailable,
		TotalUsed:      stats.TotalUsed,
		Accounts:       make([]api.AccountStats, 0, len(stats.Accounts)),
	}
	for _, a := range stats.Accounts {
		resp.Accounts = append(resp.Accounts, api.AccountStats{
			Provider:     a.Provider,
			AccountEmail: a.AccountEmail,
			Available:    a.Available,
			Used:         a.Used,
			Total:        a.Total,
			ExpiresAt:    a.ExpiresAt,
			Error:        a.Error,
		})
	}
	return resp, nil
}

func (s *GRPCServer) LinkedAccounts(ctx context.Context, req *api.LinkedAccountsRequest) (*api.LinkedAccountsResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	accounts, err := s.accounts.Status(ctx, userID, req.TeamID)
	if err != nil {
		return nil, s.fail(ctx, "linked_accounts", err)
	}

	resp := &api.LinkedAccountsResponse{Accounts: make([]api.LinkedAccount, 0, len(accounts))}
	for _, a := range accounts {
		resp.Accounts = append(resp.Accounts, api.LinkedAccount{
			Provider:     a.Provider,
			AccountEmail: a.AccountEmail,
			ExpiresAt:    a.ExpiresAt,
		})
	}
	return resp, nil
}

func (s *GRPCServer) LinkAccount(ctx context.Context, req *api.LinkAccountRequest) (*api.LinkAccountResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	err = s.accounts.Link(ctx, userID, services.LinkInput{
		TeamID:       req.TeamID,
		Provider:     req.Provider,
		AccountEmail: req.AccountEmail,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		ExpiresAt:    req.ExpiresAt,
	})
	if err != nil {
		return nil, s.fail(ctx, "link_account", err)
	}
	return &api.LinkAccountResponse{}, nil
}

func (s *GRPCServer) UnlinkAccount(ctx context.Context, req *api.UnlinkAccountRequest) (*api.UnlinkAccountResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.accounts.Unlink(ctx, userID, req.TeamID, req.Provider, req.AccountEmail)
	if err != nil {
		return nil, s.fail(ctx, "unlink_account", err)
	}
	return &api.UnlinkAccountResponse{Removed: res.Removed, Remaining: res.Remaining}, nil
}

func (s *GRPCServer) DisconnectImpact(ctx context.Context, req *api.DisconnectImpactRequest) (*api.DisconnectImpactResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	impact, err := s.accounts.DisconnectImpact(ctx, userID, req.Provider, req.AccountEmail)
	if err != nil {
		return nil, s.fail(ctx, "disconnect_impact", err)
	}
	return &api.DisconnectImpactResponse{
		Provider:          impact.Provider,
		AccountEmail:      impact.AccountEmail,
		TotalFiles:        impact.TotalFiles,
		AffectedFiles:     impact.AffectedFiles,
		AffectedFileNames: impact.AffectedFileNames,
	}, nil
}

func manifestInfo(m *models.FileManifest, userID string) api.FileInfo {
	return api.FileInfo{
		ID:             m.ID,
		FileName:       m.FileName,
		TotalSize:      m.TotalSize,
		MimeType:       m.MimeType,
		CreatedAt:      m.CreatedAt,
		TeamID:         m.TeamID,
		TargetProfiles: m.TargetProfiles,
		IsOwner:        m.OwnerID == userID,
		Parts:          len(m.Parts),
	}
}
