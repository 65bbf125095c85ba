// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"testing"
	"time"

	"soundlab/internal/analysis"
	"soundlab/internal/audio"
	"soundlab/pkg/utils"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const wsSampleRate = 44100

func analysisSignal(seconds float64, freqs ...float64) audio.Signal {
	if len(freqs) == 0 {
		freqs = []float64{440}
	}
	return audio.NewSignal(wsSampleRate, utils.GenerateTones(wsSampleRate, seconds, 0.5, freqs...))
}

// fakeLoader serves generated signals by name.
func fakeLoader(files map[string]audio.Signal) Loader {
	return func(path string) (audio.Signal, error) {
		sig, ok := files[path]
		if !ok {
			return audio.Signal{}, fmt.Errorf("open %s: no such file", path)
		}
		return sig, nil
	}
}

func startServer(t *testing.T, files map[string]audio.Signal) *WebSocketServer {
	t.Helper()
	srv, err := NewWebSocketServer("127.0.0.1:0", analysis.DefaultOptions(), fakeLoader(files))
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- srv.Serve() }()
	t.Cleanup(func() {
		require.NoError(t, srv.Close())
		require.NoError(t, <-served)
	})
	return srv
}

func dial(t *testing.T, srv *WebSocketServer) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/ws", srv.Addr()), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil collects messages until one of the given type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want EventType) []gjson.Result {
	t.Helper()
	var got []gjson.Result
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		ev := gjson.ParseBytes(msg)
		got = append(got, ev)
		if ev.Get("type").String() == string(want) {
			return got
		}
	}
}

func TestWebSocketTranscription(t *testing.T) {
	srv := startServer(t, map[string]audio.Signal{"tone.wav": analysisSignal(1, 440)})
	conn := dial(t, srv)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"id":"r1","mode":"Transcription","path":"tone.wav","options":{"confidenceThreshold":0.5}}`)))

	events := readUntil(t, conn, EventComplete)
	require.GreaterOrEqual(t, len(events), 3)

	var progress int
	for _, ev := range events[:len(events)-2] {
		assert.Equal(t, "progress", ev.Get("type").String())
		assert.Equal(t, "r1", ev.Get("id").String())
		progress++
	}
	assert.Positive(t, progress)

	result := events[len(events)-2]
	assert.Equal(t, "result", result.Get("type").String())
	assert.Equal(t, "transcription", result.Get("mode").String())
	assert.Equal(t, int64(1), result.Get("result.notes.#").Int())
	assert.Equal(t, int64(69), result.Get("result.notes.0.midi").Int())

	done := events[len(events)-1]
	assert.Equal(t, "r1", done.Get("id").String())
	assert.Equal(t, "done", done.Get("stage").String())
}

func TestWebSocketCompletionIsBroadcast(t *testing.T) {
	srv := startServer(t, map[string]audio.Signal{"tone.wav": analysisSignal(0.5)})
	requester := dial(t, srv)
	observer := dial(t, srv)

	// Both clients must be registered before the request finishes.
	require.Eventually(t, func() bool {
		srv.clientsMu.Lock()
		defer srv.clientsMu.Unlock()
		return len(srv.clients) == 2
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, requester.WriteJSON(map[string]any{"id": "r2", "mode": "microtonal", "path": "tone.wav"}))
	readUntil(t, requester, EventComplete)

	seen := readUntil(t, observer, EventComplete)
	require.Len(t, seen, 1, "observer only receives the completion notice")
	assert.Equal(t, "r2", seen[0].Get("id").String())
	assert.Equal(t, "microtonal", seen[0].Get("mode").String())
}

func TestWebSocketSpectrogramIsOptIn(t *testing.T) {
	srv := startServer(t, map[string]audio.Signal{"a.wav": analysisSignal(0.5)})
	conn := dial(t, srv)

	for _, withSpec := range []bool{false, true} {
		req := map[string]any{"id": "s", "mode": "soundscape", "path": "a.wav", "spectrogram": withSpec}
		require.NoError(t, conn.WriteJSON(req))
		events := readUntil(t, conn, EventComplete)
		result := events[len(events)-2]
		require.Equal(t, "result", result.Get("type").String())
		assert.Equal(t, withSpec, result.Get("result.spectrogram").Exists())
		assert.True(t, result.Get("result.indices.aci").Exists())
	}
}

func TestWebSocketErrors(t *testing.T) {
	srv := startServer(t, map[string]audio.Signal{"tone.wav": analysisSignal(0.5)})
	conn := dial(t, srv)

	tests := []struct {
		desc string
		req  string
		code string
		want string
	}{
		{"Not JSON", `{"id":`, CodeInvalidRequest, "valid JSON"},
		{"Not an object", `[1,2]`, CodeInvalidRequest, "object"},
		{"No mode", `{"id":"e","path":"tone.wav"}`, CodeInvalidRequest, "no mode"},
		{"No path", `{"id":"e","mode":"soundscape"}`, CodeInvalidRequest, "no path"},
		{"Bad options", `{"id":"e","mode":"soundscape","path":"tone.wav","options":{"fftSize":"big"}}`, CodeInvalidRequest, "options"},
		{"Unknown mode", `{"id":"e","mode":"karaoke","path":"tone.wav"}`, "", "unknown analysis mode"},
		{"Missing file", `{"id":"e","mode":"soundscape","path":"gone.wav"}`, "", "no such file"},
		{"Invalid option", `{"id":"e","mode":"soundscape","path":"tone.wav","options":{"fftSize":1000}}`, analysis.CodeUnsupportedValue, "fftSize"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.req)))
			events := readUntil(t, conn, EventError)
			ev := events[len(events)-1]
			assert.Equal(t, tt.code, ev.Get("code").String())
			assert.Contains(t, ev.Get("error").String(), tt.want)
			if tt.code != CodeInvalidRequest {
				// Routed requests also announce completion.
				done := readUntil(t, conn, EventComplete)
				assert.Equal(t, "failed", done[len(done)-1].Get("stage").String())
			}
		})
	}
}

func TestWebSocketSendBroadcasts(t *testing.T) {
	srv := startServer(t, nil)
	a, b := dial(t, srv), dial(t, srv)
	require.Eventually(t, func() bool {
		srv.clientsMu.Lock()
		defer srv.clientsMu.Unlock()
		return len(srv.clients) == 2
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, srv.Send(CompleteEvent("x", "f.wav", analysis.ModeLinguistics, false)))
	for _, c := range []*websocket.Conn{a, b} {
		got := readUntil(t, c, EventComplete)
		assert.Equal(t, "x", got[0].Get("id").String())
	}
}

func TestNewWebSocketServerBadAddress(t *testing.T) {
	t.Parallel()
	_, err := NewWebSocketServer("not-an-address", analysis.DefaultOptions(), nil)
	assert.ErrorContains(t, err, "failed to listen")
}

func TestWebSocketCloseWhileRequestsArrive(t *testing.T) {
	srv := startServer(t, map[string]audio.Signal{"tone.wav": analysisSignal(0.1)})
	conn := dial(t, srv)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		for i := 0; ; i++ {
			req := fmt.Sprintf(`{"id":"%d","mode":"transcription","path":"tone.wav"}`, i)
			if err := conn.WriteMessage(websocket.TextMessage, []byte(req)); err != nil {
				return
			}
		}
	}()

	// Let some requests reach the server before shutting it down.
	require.Eventually(t, func() bool {
		srv.clientsMu.Lock()
		defer srv.clientsMu.Unlock()
		return len(srv.clients) == 1
	}, 5*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	closed := make(chan error, 1)
	go func() { closed <- srv.Close() }()
	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Close did not return while requests were arriving")
	}

	assert.False(t, srv.startRequest(), "no request may start after Close")
	srv.clientsMu.Lock()
	assert.Empty(t, srv.clients)
	srv.clientsMu.Unlock()

	select {
	case <-stopped:
	case <-time.After(10 * time.Second):
		t.Fatal("client writes did not fail after Close")
	}
}

func TestWebSocketCloseTwice(t *testing.T) {
	srv := startServer(t, nil)
	require.NoError(t, srv.Close())
	assert.NoError(t, srv.Close())
}
