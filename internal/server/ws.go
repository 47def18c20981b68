package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/swiftdrop/courier-relay/internal/hub"
	"github.com/swiftdrop/courier-relay/internal/model"
)

const writeWait = 10 * time.Second

// handleWS upgrades the connection and runs its read loop. One session
// per connection; the write pump drains the session outbox so that room
// publishes never block on the network.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sess := hub.NewSession(s.sessionBuffer)
	s.hub.Add(sess)
	s.logger.Info("client connected", "session_id", sess.ID())

	defer func() {
		s.hub.Remove(sess)
		conn.Close()
		s.logger.Info("client disconnected",
			"session_id", sess.ID(),
			"dropped", sess.Dropped(),
		)
	}()

	go s.writePump(conn, sess)

	s.sendEvent(sess, model.EventConnected, model.ConnectedPayload{
		Message:   "Connected to location tracking server",
		SessionID: sess.ID(),
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.dispatch(r.Context(), sess, data)
	}
}

// writePump drains the session outbox onto the wire.
func (s *Server) writePump(conn *websocket.Conn, sess *hub.Session) {
	for {
		select {
		case <-sess.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case payload := <-sess.Outbox():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				sess.Close()
				return
			}
		}
	}
}

// dispatch handles one inbound envelope. Malformed requests produce an
// error event; the connection stays open.
func (s *Server) dispatch(ctx context.Context, sess *hub.Session, data []byte) {
	var env model.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.sendError(sess, "invalid message")
		return
	}

	switch env.Event {
	case model.EventJoinOffice:
		if err := s.engine.JoinOffice(sess); err != nil {
			s.logger.Error("office join failed", "session_id", sess.ID(), "error", err)
		}
		s.logger.Info("client joined office room", "session_id", sess.ID())

	case model.EventJoinMerchant:
		var req model.JoinMerchantRequest
		if err := json.Unmarshal(env.Data, &req); err != nil || req.MerchantID == nil || req.PackageID == nil {
			s.sendError(sess, "merchant_id and package_id required")
			return
		}
		if err := s.engine.JoinMerchant(sess, *req.PackageID); err != nil {
			s.logger.Error("merchant join failed", "session_id", sess.ID(), "error", err)
		}
		s.logger.Info("client joined merchant room",
			"session_id", sess.ID(),
			"merchant_id", *req.MerchantID,
			"package_id", *req.PackageID,
		)

	case model.EventJoinCourier:
		var req model.JoinCourierRequest
		if err := json.Unmarshal(env.Data, &req); err != nil || req.CourierID == nil {
			s.sendError(sess, "courier_id required")
			return
		}
		s.engine.JoinCourier(sess, *req.CourierID)
		s.logger.Info("courier registered",
			"session_id", sess.ID(),
			"courier_id", *req.CourierID,
		)

	case model.EventLocationUpdate:
		var req model.UpdateRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			s.sendError(sess, "invalid location payload")
			return
		}
		pos, err := req.Position()
		if err != nil {
			s.sendError(sess, err.Error())
			return
		}
		accepted, err := s.engine.HandleUpdate(ctx, pos)
		if err != nil {
			s.sendError(sess, err.Error())
			return
		}
		s.sendEvent(sess, model.EventLocationReceived, accepted)

	default:
		s.sendError(sess, "unknown event: "+env.Event)
	}
}

func (s *Server) sendEvent(sess *hub.Session, event string, payload any) {
	data, err := model.EncodeEvent(event, payload)
	if err != nil {
		s.logger.Error("encode event failed", "event", event, "error", err)
		return
	}
	sess.Send(data)
}

func (s *Server) sendError(sess *hub.Session, message string) {
	s.sendEvent(sess, model.EventError, model.ErrorPayload{Message: message})
}
