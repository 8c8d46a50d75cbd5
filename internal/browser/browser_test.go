package browser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/aleister1102/designdiff/internal/config"
	"github.com/aleister1102/designdiff/internal/page"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contactForm = `<!doctype html>
<html><body style="margin:0">
<form style="width:420px;height:420px">
  <div style="background-color: rgb(226, 232, 240)">
    <label for="name">Name</label>
    <input id="name" placeholder="Full Name">
    <label>Address <input placeholder="Full Address"></label>
    <small>USA address only</small>
    <button type="submit">Send Form</button>
  </div>
</form>
</body></html>`

// Needs a local Chromium; run with DESIGNDIFF_BROWSER_TESTS=1
func startManager(t *testing.T) *Manager {
	t.Helper()
	if os.Getenv("DESIGNDIFF_BROWSER_TESTS") == "" {
		t.Skip("DESIGNDIFF_BROWSER_TESTS not set")
	}

	cfg := config.NewDefaultBrowserConfig()
	cfg.PoolSize = 1
	cfg.LocateTimeoutSecs = 1
	m := NewManager(cfg, zerolog.Nop())
	require.NoError(t, m.Start())
	t.Cleanup(m.Stop)
	return m
}

func openContactForm(t *testing.T, m *Manager) page.Page {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(contactForm))
	}))
	t.Cleanup(server.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	p, err := m.NewPage(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	require.NoError(t, p.Navigate(ctx, server.URL))
	require.NoError(t, p.WaitNetworkIdle(ctx))
	return p
}

func TestRodPage_Locators(t *testing.T) {
	m := startManager(t)
	p := openContactForm(t, m)
	ctx := context.Background()

	el, err := p.GetByLabel(ctx, "Name")
	require.NoError(t, err)
	visible, err := el.Visible(ctx)
	require.NoError(t, err)
	assert.True(t, visible)

	_, err = p.GetByPlaceholder(ctx, "Full Address")
	assert.NoError(t, err)
	_, err = p.GetByText(ctx, "USA address only")
	assert.NoError(t, err)
	_, err = p.GetByRole(ctx, "button", "Send Form")
	assert.NoError(t, err)

	_, err = p.GetByLabel(ctx, "Tel")
	var notFound *page.ElementNotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestRodPage_LayoutAndScreenshot(t *testing.T) {
	m := startManager(t)
	p := openContactForm(t, m)
	ctx := context.Background()

	form, err := p.Locate(ctx, "form")
	require.NoError(t, err)

	box, err := form.BoundingBox(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 420, box.Width, 0.5)

	inner, err := p.Locate(ctx, "form > div")
	require.NoError(t, err)
	bg, err := inner.ComputedStyle(ctx, "background-color")
	require.NoError(t, err)
	assert.Equal(t, "rgb(226, 232, 240)", bg)

	png, err := form.Screenshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(png[:4]))
}
