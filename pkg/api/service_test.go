package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NotCoffee418/uniden_interface/pkg/scannersim"
	"github.com/NotCoffee418/uniden_interface/pkg/uniden"
)

func newTestServer(t *testing.T) (*httptest.Server, *uniden.Scanner, *scannersim.Scanner) {
	t.Helper()
	sim := scannersim.New()
	sc := uniden.NewScanner(sim.Open, uniden.Options{})
	require.NoError(t, sc.Connect("/dev/sim0"))
	sim.ResetReceived()

	srv := httptest.NewServer(NewServer(sc).Handler())
	t.Cleanup(func() {
		srv.Close()
		sc.Disconnect()
	})
	return srv, sc, sim
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestStatusAndIdentity(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var status StatusResponse
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/", nil, &status))
	assert.True(t, status.Connected)
	assert.Equal(t, "normal", status.Mode)

	var identity uniden.Identity
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/identity", nil, &identity))
	assert.Equal(t, "BCD396XT", identity.Model)

	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodGet, srv.URL+"/nothing", nil, nil))
}

func TestVolumeRoundTrip(t *testing.T) {
	srv, _, sim := newTestServer(t)

	var level LevelResponse
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/volume", nil, &level))
	assert.Equal(t, 8, level.Value)

	five := 5
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodPut, srv.URL+"/volume", LevelRequest{Value: &five}, &level))
	assert.Equal(t, 5, level.Value)
	volume, _ := sim.Levels()
	assert.Equal(t, 5, volume)

	// Served from cache
	sim.ResetReceived()
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/volume", nil, &level))
	assert.Equal(t, 5, level.Value)
	assert.Empty(t, sim.Received())
}

func TestSetLevelErrors(t *testing.T) {
	srv, _, sim := newTestServer(t)

	var errResp ErrorResponse
	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodPut, srv.URL+"/squelch", map[string]any{}, &errResp))
	assert.Equal(t, "input", errResp.Kind)

	tooLoud := 99
	assert.Equal(t, http.StatusBadGateway, doJSON(t, http.MethodPut, srv.URL+"/squelch", LevelRequest{Value: &tooLoud}, &errResp))
	assert.Equal(t, "protocol", errResp.Kind)

	sim.DropNext(uniden.Squelch)
	one := 1
	assert.Equal(t, http.StatusServiceUnavailable, doJSON(t, http.MethodPut, srv.URL+"/squelch", LevelRequest{Value: &one}, &errResp))
	assert.Equal(t, "transport", errResp.Kind)
}

func TestChannelAndScreen(t *testing.T) {
	srv, sc, sim := newTestServer(t)

	var ch ChannelResponse
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/channels/2", nil, &ch))
	assert.Equal(t, 2, ch.Channel)
	assert.Equal(t, "EMS Tac", ch.Fields[1])
	assert.Equal(t, []string{"PRG", "CIN,2", "EPG"}, sim.Received())
	assert.Equal(t, uniden.ModeNormal, sc.Mode())

	var errResp ErrorResponse
	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodGet, srv.URL+"/channels/abc", nil, &errResp))
	assert.Equal(t, http.StatusBadGateway, doJSON(t, http.MethodGet, srv.URL+"/channels/42", nil, &errResp))

	var screen ScreenResponse
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/screen", nil, &screen))
	assert.Equal(t, "SCAN MODE", screen.Fields[3])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&uniden.CommandError{Kind: uniden.KindProtocol}, http.StatusBadGateway},
		{&uniden.CommandError{Kind: uniden.KindModeInvalid}, http.StatusConflict},
		{&uniden.CommandError{Kind: uniden.KindTransport}, http.StatusServiceUnavailable},
		{&uniden.CommandError{Kind: uniden.KindUnsupported}, http.StatusNotImplemented},
		{uniden.ErrNotConnected, http.StatusServiceUnavailable},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func dialConsole(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func sendLine(t *testing.T, conn *websocket.Conn, line string) *ConsoleReply {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(line)))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)
	reply, err := ConsoleReplyFromJsonBytes(message)
	require.NoError(t, err)
	return reply
}

func TestConsoleCommands(t *testing.T) {
	srv, _, _ := newTestServer(t)
	conn := dialConsole(t, srv)
	defer conn.Close()

	reply := sendLine(t, conn, "vol")
	assert.True(t, reply.OK)
	assert.Equal(t, "VOL", reply.Command)
	assert.Equal(t, []string{"8"}, reply.Payload)
	assert.NoError(t, reply.Err())

	reply = sendLine(t, conn, "STS")
	assert.False(t, reply.OK)
	assert.Equal(t, "mode_invalid", reply.Kind)
	assert.ErrorIs(t, reply.Err(), uniden.ErrModeInvalid)

	reply = sendLine(t, conn, "VOL,40")
	assert.Equal(t, "protocol", reply.Kind)
	assert.ErrorIs(t, reply.Err(), uniden.ErrProtocol)

	reply = sendLine(t, conn, "FOO")
	assert.Equal(t, "input", reply.Kind)
	assert.Contains(t, reply.Error, "unknown mnemonic")
	assert.Error(t, reply.Err())
}

func TestConsoleDisconnectLeavesProgramMode(t *testing.T) {
	srv, sc, sim := newTestServer(t)
	conn := dialConsole(t, srv)

	assert.True(t, sendLine(t, conn, "PRG").OK)
	reply := sendLine(t, conn, "STS")
	require.True(t, reply.OK)
	assert.Len(t, reply.Payload, 24)
	assert.Equal(t, uniden.ModeProgram, sc.Mode())

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	assert.Eventually(t, func() bool {
		return sc.Mode() == uniden.ModeNormal
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, sim.InProgramMode())
	assert.Equal(t, 1, sim.Count(uniden.ExitProgram))
}
