// Package grpc exposes the CloudPool services over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/cloudpool/internal/api"
	"github.com/dmitrijs2005/cloudpool/internal/logging"
	"github.com/dmitrijs2005/cloudpool/internal/metrics"
	"github.com/dmitrijs2005/cloudpool/internal/server/models"
	"github.com/dmitrijs2005/cloudpool/internal/server/services"
	"google.golang.org/grpc"
)

type userService interface {
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Register(ctx context.Context, username string, salt, verifier []byte) (*models.User, error)
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Login(ctx context.Context, username string, verifierCandidate []byte) (*services.TokenPair, error)
}

type fileService interface {
	Upload(ctx context.Context, userID string, in services.UploadInput) (*models.FileManifest, error)
	List(ctx context.Context, userID, teamID string) ([]services.FileInfo, error)
	Get(ctx context.Context, userID, fileID string) (*models.FileManifest, []byte, error)
	Delete(ctx context.Context, userID, fileID string) (services.DeleteResult, error)
	Orphaned(ctx context.Context, userID string) (services.OrphanReport, error)
	Share(ctx context.Context, userID, fileID string, profiles []string) (*models.FileManifest, error)
}

type accountService interface {
	Status(ctx context.Context, userID, teamID string) ([]models.Account, error)
	Link(ctx context.Context, userID string, in services.LinkInput) error
	Unlink(ctx context.Context, userID, teamID, provider, accountEmail string) (services.UnlinkResult, error)
	DisconnectImpact(ctx context.Context, userID, provider, accountEmail string) (services.DisconnectImpact, error)
	StorageStats(ctx context.Context, userID, teamID string) (services.StorageStats, error)
}

var _ api.FileServiceServer = (*GRPCServer)(nil)

type GRPCServer struct {
	address        string
	users          userService
	files          fileService
	accounts       accountService
	logger         logging.Logger
	metrics        *metrics.Metrics
	jwtSecret      []byte
	maxMessageSize int
}

// Options configures NewGRPCServer. Metrics may be nil; a zero
// MaxMessageSize keeps the grpc defaults.
type Options struct {
	Address        string
	SecretKey      string
	MaxMessageSize int
	Metrics        *metrics.Metrics
}

func NewGRPCServer(opts Options, l logging.Logger, us userService, fs fileService, as accountService) *GRPCServer {
	return &GRPCServer{
		address:        opts.Address,
		logger:         l.With("module", "grpc_server"),
		metrics:        opts.Metrics,
		users:          us,
		files:          fs,
		accounts:       as,
		jwtSecret:      []byte(opts.SecretKey),
		maxMessageSize: opts.MaxMessageSize,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	opts := []grpc.ServerOption{
		grpc.ForceServerCodec(api.Codec()),
		grpc.ChainUnaryInterceptor(s.requestInterceptor, s.accessTokenInterceptor),
	}
	if s.maxMessageSize > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(s.maxMessageSize), grpc.MaxSendMsgSize(s.maxMessageSize))
	}

	srv := grpc.NewServer(opts...)
	api.RegisterFileServiceServer(srv, s)
	return srv
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
