package signal

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/meetrelay/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.Config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("conn", string(c.id)).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Config.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.Config.WriteWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("ping failed")
				return
			}
		}
	}
}

// readPump is the single reader of c, so messages from one connection are
// routed in the order they arrive. Its exit is the transport disconnect.
func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, c *WsSignalConn) {
	defer func() {
		cancel()
		c.Close()
		ctl.Lifecycle.OnDisconnect(c.id)
		log.Info().Str("module", "signal").Str("conn", string(c.id)).Str("token", c.Token()).Msg("readPump closing")
	}()

	c.conn.SetReadLimit(ctl.Config.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.Config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.Config.PongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("conn", string(c.id)).Msg("readPump ctx done")
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			logReadError(c, err)
			return
		}
		if !ctl.handleSignal(c, data) {
			return
		}
	}
}

// handleSignal reports whether the connection should keep reading.
func (ctl *SignalWSController) handleSignal(c *WsSignalConn, data []byte) bool {
	msg, err := domain.DecodeMessage(data)
	if err != nil {
		// msg is nil here and reaches the router as a protocol violation.
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.id)).Str("token", c.Token()).Msg("bad json")
	}

	err = ctl.Lifecycle.Handle(c, msg)
	switch {
	case err == nil:
		return true
	case errors.Is(err, domain.ErrProtocolViolation), errors.Is(err, domain.ErrConnectionClosed):
		return false
	case errors.Is(err, domain.ErrMissingParticipant), errors.Is(err, domain.ErrMissingRoom):
		ctl.Lifecycle.Router.Deliver(c, domain.Failure(msg.Kind(), err))
		return true
	default:
		log.Error().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("handle message")
		return true
	}
}

func logReadError(c *WsSignalConn, err error) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		case websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived:
			log.Info().Str("module", "signal").Str("conn", string(c.id)).Str("token", c.Token()).Msg("client disconnected")
			return
		}
	}
	log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("readPump read error")
}
