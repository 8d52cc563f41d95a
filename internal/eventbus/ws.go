package eventbus

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"courier-dispatch/internal/logx"
)

const (
	authWait   = 10 * time.Second
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// clientFrame is anything the browser sends us.
type clientFrame struct {
	Type          string `json:"type"`
	Token         string `json:"token,omitempty"`
	TrackingToken string `json:"tracking_token,omitempty"`
	Topic         string `json:"topic,omitempty"`
}

// serverFrame is anything we send back.
type serverFrame struct {
	Type    string `json:"type"`
	Topic   string `json:"topic,omitempty"`
	Data    any    `json:"data,omitempty"`
	Success *bool  `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
}

func ack(frameType, topic string) serverFrame {
	ok := true
	return serverFrame{Type: frameType, Topic: topic, Success: &ok}
}

func errFrame(msg string) serverFrame {
	notOK := false
	return serverFrame{Type: "error", Success: &notOK, Message: msg}
}

// WSHandler serves GET /ws: upgrade, auth first-frame handshake, then
// subscribe/unsubscribe/typing frames until the peer goes away.
type WSHandler struct {
	hub   *Hub
	gate  *Gatekeeper
	log   logx.Logger
	conns prometheus.Gauge

	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(hub *Hub, gate *Gatekeeper, log logx.Logger, conns prometheus.Gauge) *WSHandler {
	return &WSHandler{
		hub:   hub,
		gate:  gate,
		log:   log,
		conns: conns,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", logx.Any("error", err))
		return
	}
	defer conn.Close()

	h.conns.Inc()
	defer h.conns.Dec()

	sess, ok := h.handshake(conn, r)
	if !ok {
		return
	}

	sub := h.hub.Attach()
	defer h.hub.Detach(sub)

	out := make(chan serverFrame, 8)
	done := make(chan struct{})
	defer close(done)

	go h.writePump(conn, sub, out, done)

	h.readLoop(conn, r, sess, sub, out)
}

// handshake reads the mandatory auth first frame and replies with
// auth_response. Handshake writes happen before the write pump starts.
func (h *WSHandler) handshake(conn *websocket.Conn, r *http.Request) (Session, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(authWait))

	var frame clientFrame
	if err := conn.ReadJSON(&frame); err != nil || frame.Type != "auth" {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "auth frame required"),
			time.Now().Add(writeWait))
		return Session{}, false
	}

	sess, err := h.gate.Authenticate(r.Context(), frame.Token, frame.TrackingToken)
	if err != nil {
		_ = conn.WriteJSON(errFrame("authentication failed"))
		return Session{}, false
	}

	resp := ack("auth_response", "")
	if sess.Tracking() {
		resp.Data = map[string]any{"delivery_id": sess.DeliveryID}
	} else {
		resp.Data = map[string]any{"user_id": sess.UserID}
	}
	if err := conn.WriteJSON(resp); err != nil {
		return Session{}, false
	}
	return sess, true
}

func (h *WSHandler) readLoop(conn *websocket.Conn, r *http.Request, sess Session, sub *Subscriber, out chan<- serverFrame) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// joined is only touched by this goroutine.
	joined := make(map[string]struct{})

	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}

		switch frame.Type {
		case "subscribe":
			if err := h.gate.Allow(r.Context(), sess, frame.Topic); err != nil {
				h.send(out, errFrame("subscription denied"))
				continue
			}
			h.hub.Subscribe(sub, frame.Topic)
			joined[frame.Topic] = struct{}{}
			h.send(out, ack("subscribed", frame.Topic))
		case "unsubscribe":
			h.hub.Unsubscribe(sub, frame.Topic)
			delete(joined, frame.Topic)
			h.send(out, ack("unsubscribed", frame.Topic))
		case "typing":
			// Relayed without persistence, only on topics the socket joined.
			if _, ok := joined[frame.Topic]; !ok {
				continue
			}
			data := map[string]any{"recipient": sess.Tracking()}
			if !sess.Tracking() {
				data["user_id"] = sess.UserID
			}
			h.hub.Publish(Event{Topic: frame.Topic, Type: EvTyping, Data: data})
		default:
			h.send(out, errFrame("unknown frame type"))
		}
	}
}

// send never blocks the read loop; a full outbound buffer drops the frame.
func (h *WSHandler) send(out chan<- serverFrame, f serverFrame) {
	select {
	case out <- f:
	default:
	}
}

// writePump owns every write after the handshake.
func (h *WSHandler) writePump(conn *websocket.Conn, sub *Subscriber, out <-chan serverFrame, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev := <-sub.C():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(serverFrame{Type: ev.Type, Topic: ev.Topic, Data: ev.Data}); err != nil {
				_ = conn.Close()
				return
			}
		case f := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(f); err != nil {
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		case <-done:
			return
		}
	}
}
