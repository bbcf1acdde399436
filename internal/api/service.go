package api

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "cloudpool.FileService"

const (
	MethodPing             = "Ping"
	MethodRegister         = "Register"
	MethodGetSalt          = "GetSalt"
	MethodLogin            = "Login"
	MethodRefreshToken     = "RefreshToken"
	MethodUpload           = "Upload"
	MethodList             = "List"
	MethodGet              = "Get"
	MethodDelete           = "Delete"
	MethodOrphaned         = "Orphaned"
	MethodShare            = "Share"
	MethodStorageStats     = "StorageStats"
	MethodLinkedAccounts   = "LinkedAccounts"
	MethodLinkAccount      = "LinkAccount"
	MethodUnlinkAccount    = "UnlinkAccount"
	MethodDisconnectImpact = "DisconnectImpact"
)

// FullMethod returns the gRPC path of method, e.g. "/cloudpool.FileService/Upload".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

var publicMethods = map[string]bool{
	FullMethod(MethodPing):         true,
	FullMethod(MethodRegister):     true,
	FullMethod(MethodGetSalt):      true,
	FullMethod(MethodLogin):        true,
	FullMethod(MethodRefreshToken): true,
}

// IsPublic reports whether fullMethod may be called without an access token.
func IsPublic(fullMethod string) bool {
	return publicMethods[fullMethod]
}

// FileServiceServer is implemented by the CloudPool server.
type FileServiceServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	GetSalt(context.Context, *GetSaltRequest) (*GetSaltResponse, error)
	Login(context.Context, *LoginRequest) (*TokenResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*TokenResponse, error)

	Upload(context.Context, *UploadRequest) (*UploadResponse, error)
	List(context.Context, *ListRequest) (*ListResponse, error)
	Get(context.Context, *GetRequest) (*GetResponse, error)
	Delete(context.Context, *DeleteRequest) (*DeleteResponse, error)
	Orphaned(context.Context, *OrphanedRequest) (*OrphanedResponse, error)
	Share(context.Context, *ShareRequest) (*ShareResponse, error)

	StorageStats(context.Context, *StorageStatsRequest) (*StorageStatsResponse, error)
	LinkedAccounts(context.Context, *LinkedAccountsRequest) (*LinkedAccountsResponse, error)
	LinkAccount(context.Context, *LinkAccountRequest) (*LinkAccountResponse, error)
	UnlinkAccount(context.Context, *UnlinkAccountRequest) (*UnlinkAccountResponse, error)
	DisconnectImpact(context.Context, *DisconnectImpactRequest) (*DisconnectImpactResponse, error)
}

// unary builds the method descriptor for one request/response call.
func unary[Req, Resp any](name string, call func(FileServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(FileServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FileServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodPing, FileServiceServer.Ping),
		unary(MethodRegister, FileServiceServer.Register),
		unary(MethodGetSalt, FileServiceServer.GetSalt),
		unary(MethodLogin, FileServiceServer.Login),
		unary(MethodRefreshToken, FileServiceServer.RefreshToken),
		unary(MethodUpload, FileServiceServer.Upload),
		unary(MethodList, FileServiceServer.List),
		unary(MethodGet, FileServiceServer.Get),
		unary(MethodDelete, FileServiceServer.Delete),
		unary(MethodOrphaned, FileServiceServer.Orphaned),
		unary(MethodShare, FileServiceServer.Share),
		unary(MethodStorageStats, FileServiceServer.StorageStats),
		unary(MethodLinkedAccounts, FileServiceServer.LinkedAccounts),
		unary(MethodLinkAccount, FileServiceServer.LinkAccount),
		unary(MethodUnlinkAccount, FileServiceServer.UnlinkAccount),
		unary(MethodDisconnectImpact, FileServiceServer.DisconnectImpact),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cloudpool/api",
}

func RegisterFileServiceServer(s grpc.ServiceRegistrar, srv FileServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
