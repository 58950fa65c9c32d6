package handlers

import (
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/golang/glog"
	"github.com/gorilla/websocket"

	"github.com/drborges/apollo-react-spike/internal/client"
	"github.com/drborges/apollo-react-spike/internal/middleware"
)

const (
	liveWriteTimeout = 5 * time.Second
	livePingInterval = 30 * time.Second
)

// LiveHandler pushes a fresh view to the browser on every change of its session's client.
type LiveHandler struct {
	sessions Sessions
	upgrader websocket.Upgrader
}

// NewLiveHandler constructs the handler. Same-origin requests are always accepted.
func NewLiveHandler(sessions Sessions, origins middleware.Origins) *LiveHandler {
	return &LiveHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin(origins),
		},
	}
}

func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := h.sessions.Lookup(r)
	if err != nil {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Infof("[live]upgrade error = %s\n", err)
		return
	}
	defer ws.Close()

	var (
		mu     sync.Mutex
		latest client.View
	)
	keep := func(v client.View) {
		mu.Lock()
		if latest.Version <= v.Version {
			latest = v
		}
		mu.Unlock()
	}
	signal := make(chan struct{}, 1)
	// watch first so no change can fall between the initial view and the first callback
	stop := c.Watch(func(v client.View) {
		keep(v)
		select {
		case signal <- struct{}{}:
		default:
		}
	})
	defer stop()
	keep(c.View())
	signal <- struct{}{}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			// the browser never sends anything; reading surfaces the close
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(livePingInterval)
	defer ping.Stop()
	var sent uint64
	first := true
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteTimeout)); err != nil {
				return
			}
		case <-signal:
			mu.Lock()
			v := latest
			mu.Unlock()
			if !first && v.Version <= sent {
				continue
			}
			first = false
			sent = v.Version
			frame, err := json.Marshal(newViewBody(v))
			if err != nil {
				glog.Infof("[live]encode view error = %s\n", err)
				continue
			}
			ws.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				glog.V(2).Infof("[live]write error = %s\n", err)
				return
			}
		}
	}
}

// checkOrigin admits same-origin pages and the configured origins.
func checkOrigin(origins middleware.Origins) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || middleware.SameHost(origin, r.Host) || origins.Allows(origin)
	}
}
