package artifacts

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestStoreNames(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	now := func() time.Time { return time.Date(2025, 8, 1, 9, 5, 7, 0, time.UTC) }
	store := NewStore(dir, now, zaptest.NewLogger(t))

	path, err := store.SaveScreenshot("pre_submit", []byte("png"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "pre_submit_screenshot_20250801_090507.png"), path)

	path, err = store.SaveHTML("results", "<html></html>")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "results_content_20250801_090507.html"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "<html></html>", string(raw))
}
