package github

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zip"
)

const (
	maxArchiveBytes = 512 << 20
	maxEntryBytes   = 256 << 20
)

// ErrEmptyArchive is returned when an archive holds no non-empty regular file.
var ErrEmptyArchive = errors.New("artifact archive has no non-empty file")

// DownloadArtifact fetches the zip archive of an artifact, following the
// redirect to storage, and returns the text of its first non-empty file.
func (c *Client) DownloadArtifact(ctx context.Context, artifactID int64) (string, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/actions/artifacts/%d/zip", c.baseURL, c.repo, artifactID)

	resp, err := c.get(ctx, EndpointArchive, endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to download artifact %d: %w", artifactID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxArchiveBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read artifact %d: %w", artifactID, err)
	}
	if len(body) > maxArchiveBytes {
		return "", fmt.Errorf("artifact %d exceeds %d bytes", artifactID, maxArchiveBytes)
	}
	return FirstNonEmptyFile(body)
}

// FirstNonEmptyFile returns the decompressed content of the first regular
// file in the zip archive whose content is not empty. Entries are visited in
// archive order; nothing else is used to choose between them.
func FirstNonEmptyFile(archive []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return "", fmt.Errorf("failed to open artifact archive: %w", err)
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		content, err := readEntry(f)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		if len(content) > 0 {
			return string(content), nil
		}
	}
	return "", ErrEmptyArchive
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, maxEntryBytes))
}
