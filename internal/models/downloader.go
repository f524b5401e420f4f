package models

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Progress reports download state to the caller's callback.
type Progress struct {
	Downloaded int64
	Total      int64
	SpeedMBps  float64
	ETA        time.Duration
}

type ProgressFunc func(Progress)

// Downloader fetches model archives and installs them atomically: download
// to a temp dir, verify the checksum, extract, validate, then rename into
// place. A failed install never leaves a partial model at the final path.
type Downloader struct {
	Client    *http.Client
	Retries   int
	RetryWait time.Duration
	Log       *zap.Logger

	mu sync.Mutex
}

func NewDownloader(log *zap.Logger) *Downloader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Downloader{
		Client:    &http.Client{},
		Retries:   2,
		RetryWait: 500 * time.Millisecond,
		Log:       log,
	}
}

// Install downloads m into root, replacing any previous version of the same
// model. The previous install is restored if the swap fails.
func (d *Downloader) Install(ctx context.Context, m Spec, root string, onProgress ProgressFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}
	tmp, err := os.MkdirTemp(root, m.Name+"-download-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	archive := filepath.Join(tmp, m.Name+".tar.gz")
	if err := d.fetchWithRetry(ctx, m.URL, archive, onProgress); err != nil {
		return err
	}
	if err := VerifyChecksum(archive, m.Checksum); err != nil {
		return err
	}

	extracted := filepath.Join(tmp, "extract")
	if err := os.MkdirAll(extracted, 0o755); err != nil {
		return err
	}
	if err := extractTarGz(archive, extracted); err != nil {
		return err
	}
	if err := ValidateDir(extracted); err != nil {
		return err
	}

	final := InstallPath(root, m.Name)
	backup := final + ".bak"
	_ = os.RemoveAll(backup)
	if _, err := os.Stat(final); err == nil {
		if err := os.Rename(final, backup); err != nil {
			return err
		}
	}
	if err := os.Rename(extracted, final); err != nil {
		_ = os.Rename(backup, final)
		return err
	}
	if err := os.WriteFile(filepath.Join(final, ".checksum"), []byte(m.Checksum+"\n"), 0o644); err != nil {
		return err
	}
	_ = os.RemoveAll(backup)
	d.Log.Info("model installed", zap.String("model", m.Name), zap.String("path", final))
	return nil
}

func (d *Downloader) fetchWithRetry(ctx context.Context, url, dest string, onProgress ProgressFunc) error {
	var lastErr error
	for attempt := 0; attempt <= d.Retries; attempt++ {
		if attempt > 0 {
			d.Log.Warn("download retry", zap.Int("attempt", attempt), zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.RetryWait):
			}
		}
		lastErr = d.fetch(ctx, url, dest, onProgress)
		if lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("download failed after %d attempts: %w", d.Retries+1, lastErr)
}

func (d *Downloader) fetch(ctx context.Context, url, dest string, onProgress ProgressFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download status %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	w := &progressWriter{dst: out, total: resp.ContentLength, started: time.Now(), onProgress: onProgress}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return err
	}
	return out.Sync()
}

type progressWriter struct {
	dst        io.Writer
	total      int64
	written    int64
	started    time.Time
	onProgress ProgressFunc
}

func (w *progressWriter) Write(p []byte) (int, error) {
	n, err := w.dst.Write(p)
	w.written += int64(n)
	if w.onProgress != nil && n > 0 {
		elapsed := time.Since(w.started).Seconds()
		speed := 0.0
		if elapsed > 0 {
			speed = float64(w.written) / elapsed / (1 << 20)
		}
		eta := time.Duration(0)
		if w.total > 0 && speed > 0 {
			remaining := float64(w.total-w.written) / (1 << 20)
			eta = time.Duration(remaining / speed * float64(time.Second))
		}
		w.onProgress(Progress{Downloaded: w.written, Total: w.total, SpeedMBps: speed, ETA: eta})
	}
	return n, err
}

// VerifyChecksum compares the sha256 of file against an expected value of
// the form "sha256:<hex>".
func VerifyChecksum(file, expected string) error {
	if strings.TrimSpace(expected) == "" {
		return fmt.Errorf("registry entry has no checksum")
	}
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}
	actual := "sha256:" + hex.EncodeToString(h.Sum(nil))
	if actual != expected {
		return fmt.Errorf("checksum mismatch: want %s, got %s", expected, actual)
	}
	return nil
}

// extractTarGz unpacks the archive into dest, refusing entries that would
// escape it.
func extractTarGz(archive, dest string) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		name := strings.TrimPrefix(filepath.Clean(hdr.Name), "./")
		if name == "." || strings.HasPrefix(name, "../") {
			continue
		}
		target := filepath.Join(dest, name)
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			continue
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
		}
	}
}
