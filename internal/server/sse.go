package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/varlet-dev/varlet/internal/event"
)

const heartbeatInterval = 30 * time.Second

type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	return &sseWriter{
		w:       w,
		flusher: flusher,
		rc:      http.NewResponseController(w),
	}, nil
}

func (s *sseWriter) writeEvent(ev event.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseWriter) writeHeartbeat() error {
	if _, err := fmt.Fprint(s.w, ": heartbeat\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// events streams engine events to the client as server-sent events.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	events := make(chan event.Event, 10)
	unsubscribe := s.engine.Bus().SubscribeAll(func(ev event.Event) {
		select {
		case events <- ev:
		default:
			log.Warn().Str("type", string(ev.Type)).Msg("dropping event, client too slow")
		}
	})
	defer unsubscribe()

	if err := sse.writeEvent(event.Event{Type: "server.connected"}); err != nil {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-events:
			if err := sse.writeEvent(ev); err != nil {
				return
			}
		case <-heartbeat.C:
			if err := sse.writeHeartbeat(); err != nil {
				return
			}
		}
	}
}
