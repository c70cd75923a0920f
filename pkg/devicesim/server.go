package devicesim

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	tagview "tagview/engine/core"
	"tagview/engine/pubsub"
	"tagview/pkg/client"
)

const topicModel = "model"

// Server exposes a simulated controller with the same surface as the real
// firmware: GET/POST /api and a snapshot stream on /ws.
type Server struct {
	store    *Store
	updater  *Updater
	bus      *pubsub.WatermillPubSub
	router   *mux.Router
	upgrader websocket.Upgrader
}

// MutationResult is the body returned for POST /api.
type MutationResult struct {
	Applied  int      `json:"applied"`
	Rejected []string `json:"rejected,omitempty"`
}

// NewServer creates a simulator for model. tick is the updater interval.
func NewServer(model *tagview.Snapshot, tick time.Duration) *Server {
	s := &Server{
		store:  NewStore(model),
		bus:    pubsub.NewInMemoryPubSub(1),
		router: mux.NewRouter(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.updater = NewUpdater(s.store, tick, s.publish)

	s.router.HandleFunc("/health", s.HealthCheck).Methods("GET")
	s.router.HandleFunc(client.DeviceAPIPath, s.GetModel).Methods("GET")
	s.router.HandleFunc(client.DeviceAPIPath, s.PostMutation).Methods("POST")
	s.router.HandleFunc(client.DeviceStreamPath, s.Stream).Methods("GET")

	s.publish()
	return s
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler { return s.router }

// Store returns the simulated model.
func (s *Server) Store() *Store { return s.store }

// Start begins the simulation ticks.
func (s *Server) Start() { s.updater.Start() }

// Stop halts the updater and closes every open stream.
func (s *Server) Stop() {
	s.updater.Stop()
	s.bus.Close()
}

// publish pushes the encoded model to stream subscribers.
func (s *Server) publish() {
	data, err := json.Marshal(s.store.Snapshot())
	if err != nil {
		tagview.ErrorLog("[SIM] failed to encode model: %v\n", err)
		return
	}
	if _, err := s.bus.Publish(topicModel, data); err != nil {
		tagview.ErrorLog("[SIM] failed to publish model: %v\n", err)
	}
}

// GetModel handles GET /api
func (s *Server) GetModel(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.store.Snapshot())
}

// PostMutation handles POST /api
func (s *Server) PostMutation(w http.ResponseWriter, r *http.Request) {
	var m tagview.Mutation
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if m.Len() == 0 {
		http.Error(w, "Mutation has no values", http.StatusBadRequest)
		return
	}

	applied, rejected := s.store.Apply(&m)
	tagview.InfoLog("[SIM] request %s: applied %d, rejected %d\n", r.Header.Get(client.RequestIDHeader), applied, len(rejected))
	if applied > 0 {
		s.publish()
	}

	w.Header().Set("Content-Type", "application/json")
	if applied == 0 {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}
	json.NewEncoder(w).Encode(MutationResult{Applied: applied, Rejected: rejected})
}

// Stream handles GET /ws: the current model is sent on connect and again after
// every change.
func (s *Server) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		tagview.ErrorLog("[SIM] websocket upgrade failed: %v\n", err)
		return
	}
	defer conn.Close()

	sub, err := s.bus.Subscribe(topicModel, uuid.NewString())
	if err != nil {
		tagview.ErrorLog("[SIM] subscribe failed: %v\n", err)
		return
	}
	defer sub.Close()

	// The reader only notices the peer going away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				sub.Close()
				return
			}
		}
	}()

	for msg := range sub.Chan() {
		data, ok := msg.Payload.([]byte)
		if !ok {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

// HealthCheck handles GET /health
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.store.Version(),
		"time":    time.Now().Format(time.RFC3339),
	})
}
