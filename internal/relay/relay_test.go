package relay

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRelay(t *testing.T, upstream http.HandlerFunc) *httptest.Server {
	t.Helper()
	upstreamServer := httptest.NewServer(upstream)
	t.Cleanup(upstreamServer.Close)

	handler := NewHandler(map[string]string{"testnet": upstreamServer.URL}, zap.NewNop())
	relayServer := httptest.NewServer(handler.SetupRouter())
	t.Cleanup(relayServer.Close)
	return relayServer
}

func TestForwardPassesBodyAndStatusThrough(t *testing.T) {
	var received string
	relayServer := newTestRelay(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received = string(body)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusTeapot)
		io.WriteString(w, `{"jsonrpc":"2.0","result":"ok"}`)
	})

	payload := `{"jsonrpc":"2.0","method":"getLatestBlockhash","id":1}`
	resp, err := http.Post(relayServer.URL+"/api/rpc/testnet", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, payload, received)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"jsonrpc":"2.0","result":"ok"}`, string(body))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestUnknownNetworkIs404(t *testing.T) {
	relayServer := newTestRelay(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called")
	})

	resp, err := http.Post(relayServer.URL+"/api/rpc/localnet", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Unknown network\n", string(body))
}

func TestPreflight(t *testing.T) {
	relayServer := newTestRelay(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called")
	})

	req, err := http.NewRequest(http.MethodOptions, relayServer.URL+"/api/rpc/testnet", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))
}

func TestUpstreamFailureIsBadGateway(t *testing.T) {
	handler := NewHandler(map[string]string{"testnet": "http://127.0.0.1:1"}, zap.NewNop())
	relayServer := httptest.NewServer(handler.SetupRouter())
	t.Cleanup(relayServer.Close)

	resp, err := http.Post(relayServer.URL+"/api/rpc/testnet", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}
