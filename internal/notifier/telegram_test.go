package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/user/ferry-watch/internal/domain"
)

const testToken = "123456:secret-token"

func TestNotifySendsMessage(t *testing.T) {
	var got sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/bot"+testToken+"/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram(srv.URL, testToken, "42", 5*time.Second, zaptest.NewLogger(t))
	require.NoError(t, tg.Notify(context.Background(), "ferry <b>found</b>"))
	require.Equal(t, sendMessageRequest{ChatID: "42", Text: "ferry <b>found</b>", ParseMode: "HTML"}, got)
}

func TestNotifyMissingCredentials(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	for _, tg := range []*Telegram{
		NewTelegram(srv.URL, "", "42", time.Second, zaptest.NewLogger(t)),
		NewTelegram(srv.URL, testToken, "", time.Second, zaptest.NewLogger(t)),
	} {
		require.ErrorIs(t, tg.Notify(context.Background(), "hello"), ErrMissingCredentials)
	}
	require.Zero(t, calls.Load())
}

func TestNotifyRejectedByAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	err := NewTelegram(srv.URL, testToken, "42", time.Second, zaptest.NewLogger(t)).Notify(context.Background(), "hello")
	require.ErrorIs(t, err, ErrDelivery)
	require.Contains(t, err.Error(), "chat not found")
}

func TestNotifyTransportErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewTelegram(url, testToken, "42", time.Second, zaptest.NewLogger(t)).Notify(context.Background(), "hello")
	require.ErrorIs(t, err, ErrDelivery)
	require.NotContains(t, err.Error(), "secret-token")
}

func TestFormatAvailability(t *testing.T) {
	c := domain.SearchCriteria{
		DeparturePort: "Troon",
		ArrivalPort:   "Brodick",
		OutboundDate:  time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC),
		ReturnDate:    time.Date(2025, 8, 5, 0, 0, 0, 0, time.UTC),
		OutboundTime:  "07:45",
		ReturnTime:    "15:30",
	}
	msg := FormatAvailability("CalMac", "https://ticketing.calmac.co.uk/B2C-Calmac/", c, time.Date(2025, 8, 1, 6, 30, 0, 0, time.UTC))

	require.Equal(t, "🚢 CalMac Alert! Your ferry is now available:\n\n"+
		"Outbound: Troon → Brodick on Sun 03 Aug @ 07:45\n"+
		"Return: Brodick → Troon on Tue 05 Aug @ 15:30\n\n"+
		"Book now: https://ticketing.calmac.co.uk/B2C-Calmac/\n\n"+
		"Checked at: 2025-08-01 06:30:00 UTC", msg)

	c.DeparturePort = "Troon <Pier>"
	require.Contains(t, FormatAvailability("CalMac", "x", c, time.Now()), "Troon &lt;Pier&gt;")
}
