// Package artifacts writes the debugging evidence of a check to disk.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const stampLayout = "20060102_150405"

// Store saves screenshots and page dumps under one directory.
type Store struct {
	dir    string
	now    func() time.Time
	logger *zap.Logger
}

func NewStore(dir string, now func() time.Time, logger *zap.Logger) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{dir: dir, now: now, logger: logger}
}

// SaveScreenshot writes <label>_screenshot_<stamp>.png and returns its path.
func (s *Store) SaveScreenshot(label string, png []byte) (string, error) {
	return s.write(fmt.Sprintf("%s_screenshot_%s.png", label, s.now().Format(stampLayout)), png)
}

// SaveHTML writes <label>_content_<stamp>.html and returns its path.
func (s *Store) SaveHTML(label, html string) (string, error) {
	return s.write(fmt.Sprintf("%s_content_%s.html", label, s.now().Format(stampLayout)), []byte(html))
}

func (s *Store) write(name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifacts dir: %w", err)
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	s.logger.Debug("artifact saved", zap.String("path", path), zap.Int("bytes", len(data)))
	return path, nil
}
