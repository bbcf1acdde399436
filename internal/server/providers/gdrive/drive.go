// Package gdrive stores chunks as files in a Google Drive account using the
// Drive v3 REST API.
package gdrive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/cloudpool/internal/server/models"
	"github.com/dmitrijs2005/cloudpool/internal/server/providers"
	"github.com/hashicorp/go-retryablehttp"
)

type Drive struct {
	client     *retryablehttp.Client
	apiBase    string
	uploadBase string
}

// New returns a Drive transport. apiBase is usually
// https://www.googleapis.com/drive/v3 and uploadBase
// https://www.googleapis.com/upload/drive/v3.
func New(client *retryablehttp.Client, apiBase, uploadBase string) *Drive {
	return &Drive{
		client:     client,
		apiBase:    strings.TrimRight(apiBase, "/"),
		uploadBase: strings.TrimRight(uploadBase, "/"),
	}
}

var _ providers.Transport = (*Drive)(nil)

type aboutResponse struct {
	StorageQuota struct {
		Limit int64 `json:"limit,string"`
		Usage int64 `json:"usage,string"`
	} `json:"storageQuota"`
}

// Quota reports limit minus usage. Accounts without a limit report 0
// available, so the planner never prefers them blindly.
func (d *Drive) Quota(ctx context.Context, account models.Account) (models.Quota, error) {
	req, err := d.newRequest(ctx, http.MethodGet, d.apiBase+"/about?fields=storageQuota", account, nil)
	if err != nil {
		return models.Quota{}, err
	}

	var about aboutResponse
	if err := d.doJSON(req, &about); err != nil {
		return models.Quota{}, fmt.Errorf("drive quota: %w", err)
	}

	q := models.Quota{Used: about.StorageQuota.Usage, Total: about.StorageQuota.Limit}
	if q.Total > 0 {
		q.Available = max(q.Total-q.Used, 0)
	}
	return q, nil
}

type fileResponse struct {
	ID   string `json:"id"`
	Size int64  `json:"size,string"`
}

func (d *Drive) UploadChunk(ctx context.Context, account models.Account, data []byte, name, mimeType string) (providers.UploadedChunk, error) {
	body, contentType, err := multipartRelated(name, mimeType, data)
	if err != nil {
		return providers.UploadedChunk{}, err
	}

	req, err := d.newRequest(ctx, http.MethodPost, d.uploadBase+"/files?uploadType=multipart&fields=id,size", account, body)
	if err != nil {
		return providers.UploadedChunk{}, err
	}
	req.Header.Set("Content-Type", contentType)

	var f fileResponse
	if err := d.doJSON(req, &f); err != nil {
		return providers.UploadedChunk{}, fmt.Errorf("drive upload %s: %w", name, err)
	}
	return providers.UploadedChunk{RemoteID: f.ID, Size: f.Size}, nil
}

func (d *Drive) DownloadChunk(ctx context.Context, account models.Account, remoteID string) ([]byte, error) {
	req, err := d.newRequest(ctx, http.MethodGet, d.fileURL(remoteID)+"?alt=media", account, nil)
	if err != nil {
		return nil, err
	}

	resp, err := providers.Do(d.client, req)
	if err != nil {
		return nil, fmt.Errorf("drive download %s: %w", remoteID, err)
	}
	defer providers.DrainClose(resp.Body)

	if err := providers.CheckResponse(resp); err != nil {
		return nil, fmt.Errorf("drive download %s: %w", remoteID, err)
	}
	return io.ReadAll(resp.Body)
}

// DeleteChunk treats a missing file as already deleted.
func (d *Drive) DeleteChunk(ctx context.Context, account models.Account, remoteID string) error {
	req, err := d.newRequest(ctx, http.MethodDelete, d.fileURL(remoteID), account, nil)
	if err != nil {
		return err
	}

	resp, err := providers.Do(d.client, req)
	if err != nil {
		return fmt.Errorf("drive delete %s: %w", remoteID, err)
	}
	defer providers.DrainClose(resp.Body)

	if err := providers.CheckResponse(resp); err != nil && !providers.IsStatus(err, http.StatusNotFound) {
		return fmt.Errorf("drive delete %s: %w", remoteID, err)
	}
	return nil
}

func (d *Drive) fileURL(remoteID string) string {
	return d.apiBase + "/files/" + url.PathEscape(remoteID)
}

func (d *Drive) newRequest(ctx context.Context, method, u string, account models.Account, body []byte) (*retryablehttp.Request, error) {
	var rawBody interface{}
	if body != nil {
		rawBody = body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u, rawBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+account.AccessToken)
	return req, nil
}

func (d *Drive) doJSON(req *retryablehttp.Request, v any) error {
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

// multipartRelated builds the metadata+media body of a Drive multipart upload.
func multipartRelated(name, mimeType string, data []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	meta, err := json.Marshal(map[string]string{"name": name, "mimeType": mimeType})
	if err != nil {
		return nil, "", err
	}

	metaPart, err := w.CreatePart(textproto.MIMEHeader{"Content-Type": {"application/json; charset=UTF-8"}})
	if err != nil {
		return nil, "", err
	}
	if _, err := metaPart.Write(meta); err != nil {
		return nil, "", err
	}

	mediaPart, err := w.CreatePart(textproto.MIMEHeader{"Content-Type": {mimeType}})
	if err != nil {
		return nil, "", err
	}
	if _, err := mediaPart.Write(data); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "multipart/related; boundary=" + w.Boundary(), nil
}
