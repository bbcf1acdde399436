package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/cloudpool/internal/api"
	"github.com/dmitrijs2005/cloudpool/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var _ Client = (*GRPCClient)(nil)

type GRPCClient struct {
	endpointURL    string
	maxMessageSize int
	dialOptions    []grpc.DialOption

	conn   *grpc.ClientConn
	client *api.FileServiceClient

	mu     sync.Mutex
	tokens Tokens
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if api.IsPublic(method) {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	current := s.Tokens()
	err := invoker(withAccessToken(ctx, current.AccessToken), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}
	if current.RefreshToken == "" {
		return err
	}

	resp, err := s.client.RefreshToken(ctx, &api.RefreshTokenRequest{RefreshToken: current.RefreshToken})
	if err != nil {
		return err
	}
	s.SetTokens(Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken})

	return invoker(withAccessToken(ctx, resp.AccessToken), method, req, reply, cc, opts...)
}

// NewGRPCClient connects lazily to endpointURL. maxMessageSize of zero keeps
// the grpc defaults.
func NewGRPCClient(endpointURL string, maxMessageSize int, tokens Tokens, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, maxMessageSize: maxMessageSize, tokens: tokens, dialOptions: opts}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}
	if s.maxMessageSize > 0 {
		opts = append(opts, grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(s.maxMessageSize),
			grpc.MaxCallSendMsgSize(s.maxMessageSize)))
	}
	opts = append(opts, s.dialOptions...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = api.NewFileServiceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) Tokens() Tokens {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens
}

func (s *GRPCClient) SetTokens(t Tokens) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = t
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &api.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Register(ctx context.Context, userName string, salt []byte, verifier []byte) error {
	_, err := s.client.Register(ctx, &api.RegisterRequest{Username: userName, Salt: salt, Verifier: verifier})
	return s.mapError(err)
}

func (s *GRPCClient) GetSalt(ctx context.Context, userName string) ([]byte, error) {
	resp, err := s.client.GetSalt(ctx, &api.GetSaltRequest{Username: userName})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Salt, nil
}

func (s *GRPCClient) Login(ctx context.Context, userName string, verifier []byte) (Tokens, error) {
	resp, err := s.client.Login(ctx, &api.LoginRequest{Username: userName, VerifierCandidate: verifier})
	if err != nil {
		return Tokens{}, s.mapError(err)
	}

	t := Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	s.SetTokens(t)
	return t, nil
}

func (s *GRPCClient) Upload(ctx context.Context, req *api.UploadRequest) (api.FileInfo, error) {
	resp, err := s.client.Upload(ctx, req)
	if err != nil {
		return api.FileInfo{}, s.mapError(err)
	}
	return resp.File, nil
}

func (s *GRPCClient) List(ctx context.Context, teamID string) ([]api.FileInfo, error) {
	resp, err := s.client.List(ctx, &api.ListRequest{TeamID: teamID})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Files, nil
}

func (s *GRPCClient) Get(ctx context.Context, fileID string) (*api.GetResponse, error) {
	resp, err := s.client.Get(ctx, &api.GetRequest{FileID: fileID})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) Delete(ctx context.Context, fileID string) (*api.DeleteResponse, error) {
	resp, err := s.client.Delete(ctx, &api.DeleteRequest{FileID: fileID})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) Orphaned(ctx context.Context) (*api.OrphanedResponse, error) {
	resp, err := s.client.Orphaned(ctx, &api.OrphanedRequest{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) Share(ctx context.Context, fileID string, profiles []string) (api.FileInfo, error) {
	resp, err := s.client.Share(ctx, &api.ShareRequest{FileID: fileID, Profiles: profiles})
	if err != nil {
		return api.FileInfo{}, s.mapError(err)
	}
	return resp.File, nil
}

func (s *GRPCClient) StorageStats(ctx context.Context, teamID string) (*api.StorageStatsResponse, error) {
	resp, err := s.client.StorageStats(ctx, &api.StorageStatsRequest{TeamID: teamID})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) LinkedAccounts(ctx context.Context, teamID string) ([]api.LinkedAccount, error) {
	resp, err := s.client.LinkedAccounts(ctx, &api.LinkedAccountsRequest{TeamID: teamID})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Accounts, nil
}

func (s *GRPCClient) LinkAccount(ctx context.Context, req *api.LinkAccountRequest) error {
	_, err := s.client.LinkAccount(ctx, req)
	return s.mapError(err)
}

func (s *GRPCClient) UnlinkAccount(ctx context.Context, req *api.UnlinkAccountRequest) (*api.UnlinkAccountResponse, error) {
	resp, err := s.client.UnlinkAccount(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) DisconnectImpact(ctx context.Context, provider, accountEmail string) (*api.DisconnectImpactResponse, error) {
	resp, err := s.client.DisconnectImpact(ctx, &api.DisconnectImpactRequest{Provider: provider, AccountEmail: accountEmail})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrForbidden, st.Message())
	case codes.NotFound:
		return ErrNotFound
	case codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", ErrFailedPrecondition, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	default:
		return fmt.Errorf("rpc error: %s", st.Message())
	}
}
