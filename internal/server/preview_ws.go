package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mockingbird/internal/builder"
	"mockingbird/internal/preview"
)

const (
	previewWSWriteWait = 10 * time.Second
	previewWSPongWait  = 60 * time.Second
	previewWSPingEvery = (previewWSPongWait * 9) / 10
)

var previewWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// previewWSInbound is what the frontend relays from the sandboxed iframe:
// runtime errors and render acknowledgements posted by the bootstrap script.
type previewWSInbound struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

type previewWSOutbound struct {
	Type       string              `json:"type"`
	Generation uint64              `json:"generation,omitempty"`
	State      builder.State       `json:"state,omitempty"`
	DocumentID string              `json:"documentId,omitempty"`
	ElapsedMS  int64               `json:"elapsedMs,omitempty"`
	Diagnostic *preview.Diagnostic `json:"diagnostic,omitempty"`
	Message    string              `json:"message,omitempty"`
}

// handlePreviewWS streams build results to the client and accepts runtime
// reports from the sandbox, closing the loop on the error taxonomy.
func (h *Handler) handlePreviewWS(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	conn, err := previewWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(previewWSPongWait)); err != nil {
		h.log.Info("preview ws set read deadline failed", zap.Error(err))
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(previewWSPongWait))
	})

	writeCh := make(chan previewWSOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(previewWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(previewWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(previewWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	unsub := s.Subscribe(func(res *builder.Result) {
		pushPreviewWS(writeCh, buildOutbound(res))
	})
	defer unsub()

	pushPreviewWS(writeCh, previewWSOutbound{Type: "subscribed"})
	// A late subscriber still sees the live generation.
	if cur := s.Builder().Current(); cur != nil {
		pushPreviewWS(writeCh, buildOutbound(cur))
	}

	for {
		var in previewWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case "ping":
			pushPreviewWS(writeCh, previewWSOutbound{Type: "pong"})
		case "render-ok":
			h.log.Debug("preview rendered", zap.String("session", s.ID))
		case "runtime-error":
			diag := &preview.Diagnostic{
				Stage:   preview.StageRuntime,
				Message: strings.TrimSpace(in.Message),
				Stack:   strings.TrimSpace(in.Stack),
			}
			h.log.Info("preview runtime error",
				zap.String("session", s.ID),
				zap.String("message", diag.Message))
			pushPreviewWS(writeCh, previewWSOutbound{Type: "diagnostic", Diagnostic: diag})
		default:
			pushPreviewWS(writeCh, previewWSOutbound{
				Type:    "error",
				Message: "unsupported type: " + in.Type,
			})
		}
	}
}

func buildOutbound(res *builder.Result) previewWSOutbound {
	return previewWSOutbound{
		Type:       "build",
		Generation: res.Generation,
		State:      res.State,
		DocumentID: res.DocumentID,
		ElapsedMS:  res.Elapsed.Milliseconds(),
		Diagnostic: res.Diagnostic,
	}
}

// pushPreviewWS never blocks the builder: when the socket is backlogged the
// oldest frame is dropped in favor of the newest.
func pushPreviewWS(writeCh chan previewWSOutbound, out previewWSOutbound) {
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
