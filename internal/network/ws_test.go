package network

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"imbridge/contracts/events"
	"imbridge/pkg/rbac"
)

const testSecret = "test-secret"

func dial(t *testing.T, srv *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return websocket.DefaultDialer.Dial(url, header)
}

func TestWSServerRejectsUnauthenticated(t *testing.T) {
	ws := NewWSServer(testSecret, time.Second, zaptest.NewLogger(t))
	srv := httptest.NewServer(ws)
	defer srv.Close()

	_, resp, err := dial(t, srv, "")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	bad, err := GenerateClientToken("c-1", rbac.RoleSubscriber, "other-secret", time.Minute)
	require.NoError(t, err)
	_, resp, err = dial(t, srv, bad)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	unknownRole, err := GenerateClientToken("c-1", "ghost", testSecret, time.Minute)
	require.NoError(t, err)
	_, resp, err = dial(t, srv, unknownRole)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWSServerPushesEnvelopes(t *testing.T) {
	ws := NewWSServer(testSecret, time.Second, zaptest.NewLogger(t))
	srv := httptest.NewServer(ws)
	defer srv.Close()
	defer ws.Close()

	token, err := GenerateClientToken("c-1", rbac.RoleSubscriber, testSecret, time.Minute)
	require.NoError(t, err)
	conn, _, err := dial(t, srv, token)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return ws.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	sent := NewEnvelope(events.GroupRecall{GroupCode: "100", OperatorUin: "1", MessageID: "m-1"})
	require.NoError(t, ws.Send(context.Background(), sent))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Envelope
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, sent.EventID, got.EventID)
	recall, ok := got.Event.(*events.GroupRecall)
	require.True(t, ok)
	assert.Equal(t, "m-1", recall.MessageID)
}

func TestWSServerDropsClosedClients(t *testing.T) {
	ws := NewWSServer(testSecret, time.Second, zaptest.NewLogger(t))
	srv := httptest.NewServer(ws)
	defer srv.Close()

	token, err := GenerateClientToken("c-1", rbac.RoleSubscriber, testSecret, time.Minute)
	require.NoError(t, err)
	conn, _, err := dial(t, srv, token)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return ws.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return ws.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestParseClientToken(t *testing.T) {
	token, err := GenerateClientToken("c-9", rbac.RoleAdmin, testSecret, time.Minute)
	require.NoError(t, err)

	client, err := ParseClientToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "c-9", client.ID)
	assert.Equal(t, rbac.RoleAdmin, client.Role)

	noRole, err := GenerateClientToken("c-9", "", testSecret, time.Minute)
	require.NoError(t, err)
	client, err = ParseClientToken(noRole, testSecret)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleSubscriber, client.Role)

	expired, err := GenerateClientToken("c-9", "", testSecret, -time.Minute)
	require.NoError(t, err)
	_, err = ParseClientToken(expired, testSecret)
	assert.Error(t, err)

	_, err = ParseClientToken("", testSecret)
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/events?access_token=q", nil)
	assert.Equal(t, "q", ExtractToken(r))

	r.Header.Set("Authorization", "Bearer h")
	assert.Equal(t, "h", ExtractToken(r))

	r.Header.Set("Authorization", "Basic h")
	assert.Equal(t, "", ExtractToken(r))
}
