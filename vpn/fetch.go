package vpn

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/yllada/vpnonline/common"
)

// maxDefinitionSize bounds a single extracted definition.
const maxDefinitionSize = 1 << 20

// HTTPFetcher downloads a zip archive of definitions in a single attempt.
type HTTPFetcher struct {
	client     *resty.Client
	url        string
	extensions []string
}

// NewHTTPFetcher creates a fetcher for the archive at url.
func NewHTTPFetcher(url, userAgent string, timeout time.Duration, extensions []string) *HTTPFetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", userAgent)

	return &HTTPFetcher{
		client:     client,
		url:        url,
		extensions: extensions,
	}
}

// Fetch downloads the archive and extracts the definition files from it.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]File, error) {
	common.LogInfo("Downloading definitions from %s", f.url)

	resp, err := f.client.R().
		SetContext(ctx).
		Get(f.url)
	if err != nil {
		return nil, common.KindError(common.ErrFetch, err, "GET %s", f.url)
	}

	if !resp.IsSuccess() {
		common.LogError("Definition download failed - URL: %s, Status: %d", f.url, resp.StatusCode())
		return nil, common.KindError(common.ErrFetch, nil, "GET %s: status %d", f.url, resp.StatusCode())
	}

	common.LogDebug("Downloaded %d bytes", len(resp.Body()))
	return ExtractArchive(resp.Body(), f.extensions)
}

// ExtractArchive returns the definition files in a zip archive. Directory
// structure is flattened to base names and entries without a definition
// extension are skipped.
func ExtractArchive(data []byte, extensions []string) ([]File, error) {
	// names are flattened below, so insecure paths are harmless
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, common.KindError(common.ErrFetch, err, "malformed archive")
	}

	files := make([]File, 0, len(r.File))
	for _, zf := range r.File {
		if zf.FileInfo().IsDir() {
			continue
		}

		name := path.Base(strings.ReplaceAll(zf.Name, `\`, "/"))
		if !hasExtension(name, extensions) {
			continue
		}

		content, err := readZipFile(zf)
		if err != nil {
			return nil, common.KindError(common.ErrFetch, err, "malformed archive entry %s", zf.Name)
		}
		files = append(files, File{Name: name, Data: content})
	}

	if len(files) == 0 {
		return nil, common.KindError(common.ErrFetch, nil, "archive contains no definitions")
	}
	return files, nil
}

func readZipFile(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxDefinitionSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxDefinitionSize {
		return nil, fmt.Errorf("definition larger than %d bytes", maxDefinitionSize)
	}
	return data, nil
}
