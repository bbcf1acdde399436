// Package dropbox stores chunks as files in the root of a Dropbox account
// using the v2 HTTP API.
package dropbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/cloudpool/internal/server/models"
	"github.com/dmitrijs2005/cloudpool/internal/server/providers"
	"github.com/hashicorp/go-retryablehttp"
)

// DefaultLimit is the capacity assumed for every Dropbox account; the
// allocation reported by the API is not used.
const DefaultLimit int64 = 2 << 30

type Dropbox struct {
	client      *retryablehttp.Client
	apiBase     string
	contentBase string
	limit       int64
}

// New returns a Dropbox transport. apiBase is usually
// https://api.dropboxapi.com/2 and contentBase https://content.dropboxapi.com/2.
func New(client *retryablehttp.Client, apiBase, contentBase string) *Dropbox {
	return &Dropbox{
		client:      client,
		apiBase:     strings.TrimRight(apiBase, "/"),
		contentBase: strings.TrimRight(contentBase, "/"),
		limit:       DefaultLimit,
	}
}

var _ providers.Transport = (*Dropbox)(nil)

type spaceUsage struct {
	Used int64 `json:"used"`
}

func (d *Dropbox) Quota(ctx context.Context, account models.Account) (models.Quota, error) {
	req, err := d.rpc(ctx, account, "/users/get_space_usage", nil)
	if err != nil {
		return models.Quota{}, err
	}

	var usage spaceUsage
	if err := d.doJSON(req, &usage); err != nil {
		return models.Quota{}, fmt.Errorf("dropbox quota: %w", err)
	}
	return models.Quota{
		Available: max(d.limit-usage.Used, 0),
		Used:      usage.Used,
		Total:     d.limit,
	}, nil
}

type uploadArg struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
}

type fileMetadata struct {
	ID   string `json:"id"`
	Size int64  `json:"size"`
}

// UploadChunk writes /{name} in overwrite mode. The mime type is not sent;
// Dropbox infers content types itself.
func (d *Dropbox) UploadChunk(ctx context.Context, account models.Account, data []byte, name, _ string) (providers.UploadedChunk, error) {
	req, err := d.content(ctx, account, "/files/upload", uploadArg{Path: "/" + name, Mode: "overwrite"}, data)
	if err != nil {
		return providers.UploadedChunk{}, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	var meta fileMetadata
	if err := d.doJSON(req, &meta); err != nil {
		return providers.UploadedChunk{}, fmt.Errorf("dropbox upload %s: %w", name, err)
	}
	return providers.UploadedChunk{RemoteID: meta.ID, Size: int64(len(data))}, nil
}

// DownloadChunk fetches the content directly; remoteID is a Dropbox file id
// ("id:...") or path, both accepted by the API.
func (d *Dropbox) DownloadChunk(ctx context.Context, account models.Account, remoteID string) ([]byte, error) {
	req, err := d.content(ctx, account, "/files/download", map[string]string{"path": remoteID}, nil)
	if err != nil {
		return nil, err
	}

	resp, err := providers.Do(d.client, req)
	if err != nil {
		return nil, fmt.Errorf("dropbox download %s: %w", remoteID, err)
	}
	defer providers.DrainClose(resp.Body)

	if err := providers.CheckResponse(resp); err != nil {
		return nil, fmt.Errorf("dropbox download %s: %w", remoteID, err)
	}
	return io.ReadAll(resp.Body)
}

func (d *Dropbox) DeleteChunk(ctx context.Context, account models.Account, remoteID string) error {
	body, err := json.Marshal(map[string]string{"path": remoteID})
	if err != nil {
		return err
	}
	req, err := d.rpc(ctx, account, "/files/delete_v2", body)
	if err != nil {
		return err
	}

	resp, err := providers.Do(d.client, req)
	if err != nil {
		return fmt.Errorf("dropbox delete %s: %w", remoteID, err)
	}
	defer providers.DrainClose(resp.Body)

	if err := providers.CheckResponse(resp); err != nil {
		return fmt.Errorf("dropbox delete %s: %w", remoteID, err)
	}
	return nil
}

// rpc builds an RPC-style call; a nil body is sent as JSON null, which the
// argument-less endpoints require.
func (d *Dropbox) rpc(ctx context.Context, account models.Account, path string, body []byte) (*retryablehttp.Request, error) {
	if body == nil {
		body = []byte("null")
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, d.apiBase+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+account.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// content builds a content-endpoint call with arguments in Dropbox-API-Arg.
func (d *Dropbox) content(ctx context.Context, account models.Account, path string, arg any, body []byte) (*retryablehttp.Request, error) {
	a, err := json.Marshal(arg)
	if err != nil {
		return nil, err
	}

	var raw interface{}
	if body != nil {
		raw = body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, d.contentBase+path, raw)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+account.AccessToken)
	req.Header.Set("Dropbox-API-Arg", string(a))
	return req, nil
}

func (d *Dropbox) doJSON(req *retryablehttp.Request, v any) error {
	resp, err := providers.Do(d.client, req)
	if err != nil {
		return err
	}
	defer providers.DrainClose(resp.Body)

	if err := providers.CheckResponse(resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
