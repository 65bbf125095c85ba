// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"soundlab/internal/analysis"
	"soundlab/internal/audio"
	"soundlab/internal/log"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

// CodeInvalidRequest is the error code of requests that cannot be routed.
const CodeInvalidRequest = "INVALID_REQUEST"

// Loader decodes the file a request names.
type Loader func(path string) (audio.Signal, error)

// wsClient serialises writes to one connection; gorilla allows a single
// concurrent writer.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// WebSocketServer runs analysis requests received on /ws.
//
// A request is a JSON object {"id", "mode", "path", "options",
// "spectrogram"}. Options override the server defaults key by key. The
// requester receives progress events followed by a result or error event;
// every connected client then receives a completion notice.
type WebSocketServer struct {
	upgrader  websocket.Upgrader
	clients   map[*wsClient]struct{}
	clientsMu sync.Mutex
	closed    bool // Guarded by clientsMu; no client or request starts once set.

	defaults analysis.Options
	load     Loader

	listener net.Listener
	server   *http.Server
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup // In-flight requests.
}

// NewWebSocketServer listens on addr. Call Serve to accept connections.
func NewWebSocketServer(addr string, defaults analysis.Options, load Loader) (*WebSocketServer, error) {
	if load == nil {
		load = audio.Decode
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	wss := &WebSocketServer{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Local tool; any origin may connect.
			},
		},
		clients:  make(map[*wsClient]struct{}),
		defaults: defaults,
		load:     load,
		listener: ln,
		ctx:      ctx,
		cancel:   cancel,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wss.handleWebSocket)
	wss.server = &http.Server{Handler: mux}
	return wss, nil
}

// Addr returns the bound listen address.
func (wss *WebSocketServer) Addr() net.Addr { return wss.listener.Addr() }

// Serve accepts connections until Close is called.
func (wss *WebSocketServer) Serve() error {
	log.Infof("WebSocketServer: Listening on ws://%s/ws", wss.Addr())
	if err := wss.server.Serve(wss.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("websocket server: %w", err)
	}
	return nil
}

// handleWebSocket upgrades HTTP connections and reads requests until the
// client disconnects.
func (wss *WebSocketServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wss.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WebSocketServer: Upgrade error: %v", err)
		return
	}
	c := &wsClient{conn: conn}

	wss.clientsMu.Lock()
	if wss.closed {
		wss.clientsMu.Unlock()
		conn.Close()
		return
	}
	wss.clients[c] = struct{}{}
	total := len(wss.clients)
	wss.clientsMu.Unlock()
	log.Infof("WebSocketServer: Client connected, total: %d", total)

	// Requests of this connection stop when it goes away.
	ctx, cancel := context.WithCancel(wss.ctx)
	defer func() {
		cancel()
		wss.removeClient(c)
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if !wss.startRequest() {
			return
		}
		go func() {
			defer wss.wg.Done()
			wss.handleRequest(ctx, c, msg)
		}()
	}
}

// startRequest counts one more in-flight request, or reports false once
// Close has begun.
func (wss *WebSocketServer) startRequest() bool {
	wss.clientsMu.Lock()
	defer wss.clientsMu.Unlock()
	if wss.closed {
		return false
	}
	wss.wg.Add(1)
	return true
}

func (wss *WebSocketServer) removeClient(c *wsClient) {
	wss.clientsMu.Lock()
	_, ok := wss.clients[c]
	delete(wss.clients, c)
	total := len(wss.clients)
	wss.clientsMu.Unlock()
	if ok {
		c.conn.Close()
		log.Infof("WebSocketServer: Client disconnected, total: %d", total)
	}
}

// request is a routed websocket message.
type request struct {
	id          string
	mode        string
	path        string
	spectrogram bool
	options     analysis.Options
}

// parseRequest routes a raw message with gjson and overlays its options
// object on the defaults.
func (wss *WebSocketServer) parseRequest(msg []byte) (request, error) {
	if !gjson.ValidBytes(msg) {
		return request{}, errors.New("request is not valid JSON")
	}
	res := gjson.ParseBytes(msg)
	if !res.IsObject() {
		return request{}, errors.New("request must be a JSON object")
	}

	req := request{
		id:          res.Get("id").String(),
		mode:        res.Get("mode").String(),
		path:        res.Get("path").String(),
		spectrogram: res.Get("spectrogram").Bool(),
		options:     wss.defaults,
	}
	if req.mode == "" {
		return req, errors.New("request has no mode")
	}
	if req.path == "" {
		return req, errors.New("request has no path")
	}
	if opts := res.Get("options"); opts.Exists() {
		if !opts.IsObject() {
			return req, errors.New("options must be a JSON object")
		}
		if err := json.Unmarshal([]byte(opts.Raw), &req.options); err != nil {
			return req, fmt.Errorf("failed to decode options: %w", err)
		}
	}
	req.options.Progress = nil
	return req, nil
}

func (wss *WebSocketServer) handleRequest(ctx context.Context, c *wsClient, msg []byte) {
	req, err := wss.parseRequest(msg)
	if err != nil {
		e := ErrorEvent(req.id, req.path, analysis.Mode(req.mode), err)
		e.Code = CodeInvalidRequest
		wss.reply(c, e)
		return
	}

	result, mode, err := wss.run(ctx, c, req)
	if err != nil {
		log.WithFields(log.Fields{"id": req.id, "file": req.path}).Warnf("WebSocketServer: request failed: %v", err)
		wss.reply(c, ErrorEvent(req.id, req.path, mode, err))
		wss.broadcast(CompleteEvent(req.id, req.path, mode, true))
		return
	}
	wss.reply(c, ResultEvent(req.id, req.path, mode, result))
	wss.broadcast(CompleteEvent(req.id, req.path, mode, false))
}

func (wss *WebSocketServer) run(ctx context.Context, c *wsClient, req request) (any, analysis.Mode, error) {
	analyzer, err := analysis.Lookup(req.mode)
	if err != nil {
		return nil, analysis.Mode(req.mode), err
	}
	mode := analyzer.Mode()

	sig, err := wss.load(req.path)
	if err != nil {
		return nil, mode, err
	}

	opts := req.options
	opts.Progress = func(p analysis.Progress) {
		wss.reply(c, ProgressEvent(req.id, req.path, p))
	}
	result, err := analyzer.Analyze(ctx, sig, opts)
	if err != nil {
		return nil, mode, err
	}
	if sr, ok := result.(*analysis.SoundscapeResult); ok && !req.spectrogram {
		sr.Spectrogram = nil
	}
	return result, mode, nil
}

func (wss *WebSocketServer) reply(c *wsClient, e Event) {
	if err := c.writeJSON(e); err != nil {
		log.Debugf("WebSocketServer: Error sending to client: %v", err)
	}
}

func (wss *WebSocketServer) broadcast(data any) {
	wss.clientsMu.Lock()
	clients := make([]*wsClient, 0, len(wss.clients))
	for c := range wss.clients {
		clients = append(clients, c)
	}
	wss.clientsMu.Unlock()

	for _, c := range clients {
		if err := c.writeJSON(data); err != nil {
			log.Debugf("WebSocketServer: Error sending to client: %v", err)
			wss.removeClient(c)
		}
	}
}

// Send broadcasts data to all connected clients.
func (wss *WebSocketServer) Send(data any) error {
	wss.broadcast(data)
	return nil
}

// Close cancels in-flight requests, disconnects every client and shuts the
// server down.
func (wss *WebSocketServer) Close() error {
	wss.clientsMu.Lock()
	if wss.closed {
		wss.clientsMu.Unlock()
		return nil
	}
	wss.closed = true
	wss.clientsMu.Unlock()

	log.Infof("WebSocketServer: Closing server")
	wss.cancel()
	err := wss.server.Close()

	wss.clientsMu.Lock()
	for c := range wss.clients {
		c.conn.Close()
	}
	wss.clients = make(map[*wsClient]struct{})
	wss.clientsMu.Unlock()

	wss.wg.Wait()
	return err
}

// Ensure WebSocketServer satisfies the interface
var _ Transport = (*WebSocketServer)(nil)
