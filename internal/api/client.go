package api

import (
	"context"

	"google.golang.org/grpc"
)

// FileServiceClient calls the CloudPool service over cc using the JSON codec.
type FileServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewFileServiceClient(cc grpc.ClientConnInterface) *FileServiceClient {
	return &FileServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *FileServiceClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, MethodPing, in, opts)
}

func (c *FileServiceClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	return invoke[RegisterResponse](ctx, c.cc, MethodRegister, in, opts)
}

func (c *FileServiceClient) GetSalt(ctx context.Context, in *GetSaltRequest, opts ...grpc.CallOption) (*GetSaltResponse, error) {
	return invoke[GetSaltResponse](ctx, c.cc, MethodGetSalt, in, opts)
}

func (c *FileServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*TokenResponse, error) {
	return invoke[TokenResponse](ctx, c.cc, MethodLogin, in, opts)
}

func (c *FileServiceClient) RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*TokenResponse, error) {
	return invoke[TokenResponse](ctx, c.cc, MethodRefreshToken, in, opts)
}

func (c *FileServiceClient) Upload(ctx context.Context, in *UploadRequest, opts ...grpc.CallOption) (*UploadResponse, error) {
	return invoke[UploadResponse](ctx, c.cc, MethodUpload, in, opts)
}

func (c *FileServiceClient) List(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListResponse, error) {
	return invoke[ListResponse](ctx, c.cc, MethodList, in, opts)
}

func (c *FileServiceClient) Get(ctx context.Context, in *GetRequest, opts ...grpc.CallOption) (*GetResponse, error) {
	return invoke[GetResponse](ctx, c.cc, MethodGet, in, opts)
}

func (c *FileServiceClient) Delete(ctx context.Context, in *DeleteRequest, opts ...grpc.CallOption) (*DeleteResponse, error) {
	return invoke[DeleteResponse](ctx, c.cc, MethodDelete, in, opts)
}

func (c *FileServiceClient) Orphaned(ctx context.Context, in *OrphanedRequest, opts ...grpc.CallOption) (*OrphanedResponse, error) {
	return invoke[OrphanedResponse](ctx, c.cc, MethodOrphaned, in, opts)
}

func (c *FileServiceClient) Share(ctx context.Context, in *ShareRequest, opts ...grpc.CallOption) (*ShareResponse, error) {
	return invoke[ShareResponse](ctx, c.cc, MethodShare, in, opts)
}

func (c *FileServiceClient) StorageStats(ctx context.Context, in *StorageStatsRequest, opts ...grpc.CallOption) (*StorageStatsResponse, error) {
	return invoke[StorageStatsResponse](ctx, c.cc, MethodStorageStats, in, opts)
}

func (c *FileServiceClient) LinkedAccounts(ctx context.Context, in *LinkedAccountsRequest, opts ...grpc.CallOption) (*LinkedAccountsResponse, error) {
	return invoke[LinkedAccountsResponse](ctx, c.cc, MethodLinkedAccounts, in, opts)
}

func (c *FileServiceClient) LinkAccount(ctx context.Context, in *LinkAccountRequest, opts ...grpc.CallOption) (*LinkAccountResponse, error) {
	return invoke[LinkAccountResponse](ctx, c.cc, MethodLinkAccount, in, opts)
}

func (c *FileServiceClient) UnlinkAccount(ctx context.Context, in *UnlinkAccountRequest, opts ...grpc.CallOption) (*UnlinkAccountResponse, error) {
	return invoke[UnlinkAccountResponse](ctx, c.cc, MethodUnlinkAccount, in, opts)
}

func (c *FileServiceClient) DisconnectImpact(ctx context.Context, in *DisconnectImpactRequest, opts ...grpc.CallOption) (*DisconnectImpactResponse, error) {
	return invoke[DisconnectImpactResponse](ctx, c.cc, MethodDisconnectImpact, in, opts)
}
