package vm

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/javanstorm/sve/internal/model"
)

// PortPlaceholder is replaced by the local port in the base image filename.
const PortPlaceholder = "XXXX"

// Image pairs a read-only base image with its per-port working copy.
type Image struct {
	BasePath    string
	WorkingPath string
}

// ImageManager derives and materializes working images under the sve home.
type ImageManager struct {
	homeDir string
	logger  model.Logger
}

// NewImageManager creates an image manager rooted at homeDir.
func NewImageManager(homeDir string, logger model.Logger) *ImageManager {
	if logger == nil {
		logger = log.Log
	}
	return &ImageManager{homeDir: homeDir, logger: logger}
}

// Resolve returns the image descriptor for a port. It is a pure function of
// basePath and port.
func (m *ImageManager) Resolve(basePath, port string) Image {
	name := strings.ReplaceAll(filepath.Base(basePath), PortPlaceholder, port)
	return Image{
		BasePath:    basePath,
		WorkingPath: filepath.Join(m.homeDir, name),
	}
}

// Exists reports whether the working copy is already present.
func (m *ImageManager) Exists(img Image) bool {
	_, err := os.Stat(img.WorkingPath)
	return err == nil
}

// EnsureWorkingCopy copies the base image to the working path unless the
// working copy already exists, in which case it is reused as is. The home
// directory must exist. Returns true if a copy was made.
func (m *ImageManager) EnsureWorkingCopy(img Image) (bool, error) {
	info, err := os.Stat(img.BasePath)
	if img.BasePath == "" || err != nil || info.IsDir() {
		return false, fmt.Errorf("%w: %q", ErrImageMissing, img.BasePath)
	}

	if m.Exists(img) {
		m.logger.Debugf("reusing working image %s", img.WorkingPath)
		return false, nil
	}

	m.logger.Infof("Copying %s to %s...", img.BasePath, img.WorkingPath)
	if err := m.copyFile(img.BasePath, img.WorkingPath, info.Size()); err != nil {
		return false, fmt.Errorf("copy base image: %w", err)
	}
	m.logger.Info("... done")

	return true, nil
}

// copyFile copies through a temp file so an interrupted copy never leaves
// a truncated working image behind.
func (m *ImageManager) copyFile(src, dst string, size int64) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmpPath := dst + ".tmp"
	out, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	pw := &progressWriter{total: size, logger: m.logger}
	if _, err := io.Copy(io.MultiWriter(out, pw), in); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, dst)
}

// progressWriter logs copy progress in 10% steps.
type progressWriter struct {
	total   int64
	written int64
	step    int64
	logger  model.Logger
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	if p.total > 0 {
		step := p.written * 10 / p.total
		if step > p.step {
			p.step = step
			p.logger.Debugf("copied %d%%", step*10)
		}
	}
	return len(b), nil
}
