package inspect

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/user/ferry-watch/internal/browser/browsertest"
)

const bookingPage = `<html><head><title>CalMac Ferries</title></head><body>
<form class="booking">
	<select name="departure_port"><option>Troon</option></select>
	<input name="outbound-date"><input name="return-date">
	<button>Search</button>
</form>
<p>Sailings from Troon</p>
</body></html>`

type memStore struct{ saved []string }

func (m *memStore) SaveScreenshot(label string, _ []byte) (string, error) {
	m.saved = append(m.saved, label+".png")
	return "logs/" + label + ".png", nil
}

func (m *memStore) SaveHTML(label, _ string) (string, error) {
	m.saved = append(m.saved, label+".html")
	return "logs/" + label + ".html", nil
}

func TestRun(t *testing.T) {
	fake := browsertest.New(bookingPage)
	store := &memStore{}
	cfg := Config{URL: "https://booking.example/", Ports: []string{"Troon", "Brodick"}}

	report, err := Run(context.Background(), fake, cfg, store, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Equal(t, "CalMac Ferries", report.Title)
	require.Equal(t, "https://booking.example/", report.URL)
	require.Equal(t, map[string]int{"forms": 1, "inputs": 2, "selects": 1, "buttons": 1}, report.Elements)
	require.Equal(t, map[string]bool{"Troon": true, "Brodick": false}, report.PortsSeen)
	require.Equal(t, []string{"inspect.html", "inspect.png"}, store.saved)
	require.Equal(t, "logs/inspect.png", report.ScreenshotPath)

	counts := map[string]int{}
	for _, p := range report.Probes {
		counts[p.Selector] = p.Count
	}
	require.Equal(t, 1, counts[`select[name*="port"]`])
	require.Equal(t, 2, counts[`input[name*="date"]`])
	require.Equal(t, 1, counts[`button:has-text("Search")`])
	require.Equal(t, 1, counts[`select[name*="departure"]`])
	require.Zero(t, counts[`input[name*="departure"]`])
	require.Equal(t, 1, counts[".booking"])
	require.Zero(t, counts[".ferry"])

	var out bytes.Buffer
	Render(&out, report)
	require.Contains(t, out.String(), "CalMac Ferries")
	require.Contains(t, out.String(), `select[name*="port"]`)
}

func TestRunNavigationFailure(t *testing.T) {
	fake := browsertest.New(bookingPage)
	fake.Faults["navigate"] = errors.New("net::ERR_CONNECTION_REFUSED")

	_, err := Run(context.Background(), fake, Config{URL: "https://booking.example/"}, nil, zaptest.NewLogger(t))
	require.ErrorContains(t, err, "open booking page")
}
