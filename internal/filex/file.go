// Package filex reads local files for upload and writes downloaded files
// back to disk for the CloudPool client.
package filex

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/cloudpool/internal/common"
)

// LocalFile is a file read from disk ready to be uploaded.
type LocalFile struct {
	Name     string
	MimeType string
	Data     []byte
}

// ReadForUpload loads path into memory. The MIME type comes from the file
// extension, then from content sniffing, then falls back to
// common.DefaultMimeType.
func ReadForUpload(path string) (*LocalFile, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	name := filepath.Base(path)
	return &LocalFile{Name: name, MimeType: DetectMimeType(name, data), Data: data}, nil
}

// DetectMimeType guesses the content type of data named name.
func DetectMimeType(name string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	if len(data) > 0 {
		if t := http.DetectContentType(data); t != "" && !strings.HasPrefix(t, common.DefaultMimeType) {
			return t
		}
	}
	return common.DefaultMimeType
}

// EnsureDir creates dir (relative paths are resolved against the working
// directory) and returns its absolute path.
func EnsureDir(dir string) (string, error) {
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = filepath.Join(cwd, dir)
	}

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// WriteDownload stores data as name inside dir and returns the written path.
// Only the base of name is used so a stored file name cannot escape dir.
func WriteDownload(dir, name string, data []byte) (string, error) {
	dir, err := EnsureDir(dir)
	if err != nil {
		return "", err
	}

	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." {
		return "", fmt.Errorf("invalid file name %q", name)
	}

	path := filepath.Join(dir, base)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
