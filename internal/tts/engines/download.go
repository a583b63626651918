package engines

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
)

// fileExists reports whether path names a non-empty regular file.
func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular() && st.Size() > 0
}

// downloadFile fetches url into dest unless dest already exists. The body is
// written to a temp file next to dest and renamed into place, so a failed
// download never leaves a truncated model behind.
func downloadFile(ctx context.Context, client *http.Client, url, dest, token string) error {
	if fileExists(dest) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil { //nolint:gosec
		return fmt.Errorf("create model directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: %w", url, &statusError{Status: resp.StatusCode})
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+"-*.part")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	_, err = io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if err = errors.Join(err, closeErr); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("download %s: %w", url, err)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		if errors.Is(err, fs.ErrExist) && fileExists(dest) {
			return nil
		}
		return err
	}
	return nil
}
