package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	require.Equal(t, "Troon", cfg.DeparturePort)
	require.Equal(t, "Brodick", cfg.ArrivalPort)
	require.Equal(t, 2, cfg.MaxAttempts)
	require.Equal(t, 2, cfg.MinStructural)
	require.Equal(t, 3, cfg.MinLexical)
	require.True(t, cfg.Headless)
	require.True(t, cfg.Exhaustive)
	require.False(t, cfg.NegativeKeywordVeto)

	criteria := cfg.Criteria()
	require.Equal(t, time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC), criteria.OutboundDate)
	require.Equal(t, time.Date(2025, 8, 5, 0, 0, 0, 0, time.UTC), criteria.ReturnDate)
	require.Equal(t, []string{"Medium Car", "Large Car"}, criteria.VehicleSizes)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("MAX_ATTEMPTS", "3")
	t.Setenv("HEADLESS", "false")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, "123:abc", cfg.TelegramBotToken)
	require.Equal(t, "42", cfg.TelegramChatID)
	require.Equal(t, 3, cfg.MaxAttempts)
	require.False(t, cfg.Headless)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DEPARTURE_PORT=Ardrossan\nMIN_LEXICAL=5\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "Ardrossan", cfg.DeparturePort)
	require.Equal(t, 5, cfg.MinLexical)
}

func TestValidate(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	bad := *cfg
	bad.ReturnDate = "2025-08-01"
	require.ErrorContains(t, bad.Validate(), "before OUTBOUND_DATE")

	bad = *cfg
	bad.OutboundDate = "03/08/2025"
	require.ErrorContains(t, bad.Validate(), "OUTBOUND_DATE")

	bad = *cfg
	bad.MaxAttempts = 0
	require.ErrorContains(t, bad.Validate(), "MAX_ATTEMPTS")
}

func TestSplitList(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, SplitList(" a, ,b,"))
	require.Nil(t, SplitList(""))
}
