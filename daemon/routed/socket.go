package routed

import (
	"encoding/json"

	"github.com/olahol/melody"
	"github.com/rotblauer/routr/router"
)

type websocketAction string

const (
	websocketActionHello  websocketAction = "hello"
	websocketActionRouted websocketAction = "routed"
)

type broadcast struct {
	Action websocketAction `json:"action"`
	Layer  string          `json:"layer,omitempty"`
	Result *trackResult    `json:"result,omitempty"`
}

// initMelody sets up the websocket that streams routing results to clients.
func (s *RouteDaemon) initMelody() {
	s.melodyInstance = melody.New()

	s.melodyInstance.HandleConnect(func(sess *melody.Session) {
		s.logger.Info("Websocket connected", "remote", sess.Request.RemoteAddr)
		b, _ := json.Marshal(broadcast{Action: websocketActionHello})
		_ = sess.Write(b)
	})

	// Clients only listen. Incoming messages are logged and dropped.
	s.melodyInstance.HandleMessage(func(sess *melody.Session, msg []byte) {
		s.logger.Debug("Websocket message", "remote", sess.Request.RemoteAddr, "message", string(msg))
	})

	s.melodyInstance.HandleDisconnect(func(sess *melody.Session) {
		s.logger.Info("Websocket disconnected", "remote", sess.Request.RemoteAddr)
	})

	s.melodyInstance.HandleError(func(sess *melody.Session, err error) {
		s.logger.Warn("Websocket error", "remote", sess.Request.RemoteAddr, "error", err)
	})
}

func (s *RouteDaemon) broadcastResult(layer string, res router.Result) {
	if s.melodyInstance.IsClosed() || s.melodyInstance.Len() == 0 {
		return
	}
	tr := newTrackResult(res)
	b, err := json.Marshal(broadcast{Action: websocketActionRouted, Layer: layer, Result: &tr})
	if err != nil {
		s.logger.Error("Failed to marshal result", "error", err)
		return
	}
	if err := s.melodyInstance.Broadcast(b); err != nil {
		s.logger.Warn("Failed to broadcast result", "error", err)
	}
}
