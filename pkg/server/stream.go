package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/JackSmack1971/microanalyst-tools/pkg/analyzer"
	"github.com/JackSmack1971/microanalyst-tools/pkg/dashboard"
	"github.com/JackSmack1971/microanalyst-tools/pkg/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// streamHandler upgrades to a websocket and pushes a dashboard view for
// token after every state change: Loading, then Loaded or Failed, once per
// stream interval. A failed refresh keeps the last good data in the view.
func (s *Server) streamHandler(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	opts, err := s.parseOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "", err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	metrics.StreamClients.Inc()
	defer metrics.StreamClients.Dec()

	logger := zerolog.Ctx(r.Context()).With().Str("symbol", token).Logger()
	logger.Info().Msg("Stream client connected")
	defer logger.Info().Msg("Stream client disconnected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go readPump(conn, cancel)

	s.stream(ctx, conn, token, opts, logger)
}

// stream runs the refresh loop until ctx ends or a write fails.
func (s *Server) stream(ctx context.Context, conn *websocket.Conn, token string, opts analyzer.Options, logger zerolog.Logger) {
	model := dashboard.New()

	refresh := time.NewTicker(s.config.StreamInterval)
	defer refresh.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	push := func(m dashboard.Model) bool {
		model = m
		if err := writeView(conn, model.Render()); err != nil {
			logger.Debug().Err(err).Msg("Stream write failed")
			return false
		}
		return true
	}

	load := func() bool {
		if !push(model.Load(token)) {
			return false
		}
		actx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
		report, err := s.analyzer.Analyze(actx, token, opts)
		cancel()
		if ctx.Err() != nil {
			return false
		}
		if err != nil {
			logger.Warn().Err(err).Msg("Stream refresh failed")
			return push(model.Failed(err))
		}
		return push(model.Loaded(report, time.Now()))
	}

	if !load() {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-refresh.C:
			if !load() {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func writeView(conn *websocket.Conn, v dashboard.View) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

// readPump drains client frames so control messages are processed and
// cancels the stream once the peer goes away.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
