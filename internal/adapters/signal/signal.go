package signal

import (
	"context"
	"net/http"
	"slices"

	"github.com/dkeye/meetrelay/internal/app"
	"github.com/dkeye/meetrelay/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ClientTokenKey is the gin context key the identity middleware stores the client token under.
const ClientTokenKey = "client_token"

type SignalWSController struct {
	Lifecycle *app.Lifecycle
	Config    *config.Config

	upgrader websocket.Upgrader
}

func NewSignalWSController(lc *app.Lifecycle, cfg *config.Config) *SignalWSController {
	return &SignalWSController{
		Lifecycle: lc,
		Config:    cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if cfg.Mode == "debug" || origin == "" {
					return true
				}
				return slices.Contains(cfg.AllowedOrigins, origin)
			},
		},
	}
}

// HandleSignal upgrades the request and starts the connection's pumps.
// The pumps outlive the request; ctx bounds them to the server's lifetime.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	token := c.GetString(ClientTokenKey)

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("token", token).Msg("ws upgrade")
		return
	}

	conn := newWsSignalConn(ws, token, ctl.Config.SendBuffer)
	log.Info().Str("module", "signal").Str("conn", string(conn.id)).Str("token", conn.Token()).Msg("new WS connection")

	ctl.Lifecycle.OnConnect(conn)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, conn)
}
