package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	tagview "tagview/engine/core"
	"tagview/engine/pubsub"
	"tagview/pkg/client"
)

const version = "1.0.0"

// Snapshot sources.
const (
	TransportPoll = "poll"
	TransportWS   = "ws"
	TransportNone = "none"
)

type Config struct {
	Port  int    `json:"port"`
	Host  string `json:"host"`
	Debug bool   `json:"debug"`

	// DeviceURL is the base URL of the device. Empty runs the host without a
	// device: snapshots arrive only through POST /api/v1/snapshots and
	// mutations are logged, not sent.
	DeviceURL    string        `json:"device_url"`
	Transport    string        `json:"transport"`
	PollInterval time.Duration `json:"poll_interval"`

	// Groups are rendered in order for every snapshot.
	Groups        []string       `json:"groups"`
	CommandGroups []string       `json:"command_groups"`
	Location      *time.Location `json:"-"`
	LogCapacity   int            `json:"log_capacity"`
}

// DefaultGroups is what a host renders when Config.Groups is empty.
var DefaultGroups = []string{tagview.GroupConfig, tagview.GroupData, tagview.GroupCommand}

// Server owns the render tree and serves it over HTTP.
type Server struct {
	config     Config
	router     *mux.Router
	device     *client.Client
	bus        *pubsub.WatermillPubSub
	loop       *eventLoop
	reconciler *tagview.Reconciler
	extractor  *tagview.Extractor
	apiLogs    *ringBuffer[APILogEntry]
	tracer     trace.Tracer

	// owned by the event loop
	lastSnapshot time.Time

	cancel context.CancelFunc
}

// outbound is a mutation waiting for the device, under the id the host gave it.
type outbound struct {
	ID       string
	Mutation *tagview.Mutation
}

// New creates a host and starts its event loop. Call Close to stop it.
func New(config Config) *Server {
	if len(config.Groups) == 0 {
		config.Groups = DefaultGroups
	}
	if config.Transport == "" {
		config.Transport = TransportPoll
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 2 * time.Second
	}
	if config.LogCapacity <= 0 {
		config.LogCapacity = 1000
	}
	GlobalDebugEnabled = config.Debug
	tagview.DebugLoggingEnabled = config.Debug

	opts := []tagview.Option{tagview.WithCodec(tagview.Codec{Location: config.Location})}
	if len(config.CommandGroups) > 0 {
		opts = append(opts, tagview.WithCommandGroups(config.CommandGroups...))
	}
	reconciler := tagview.NewReconciler(opts...)

	var device *client.Client
	if config.DeviceURL != "" {
		device = client.NewClientWithTimeout(strings.TrimRight(config.DeviceURL, "/"), 10*time.Second)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:     config,
		router:     mux.NewRouter(),
		device:     device,
		bus:        pubsub.NewInMemoryPubSub(8),
		loop:       newEventLoop(),
		reconciler: reconciler,
		extractor:  tagview.NewExtractor(reconciler.Codec(), reconciler.Aliases()),
		apiLogs:    newRingBuffer[APILogEntry](config.LogCapacity),
		tracer:     otel.Tracer("tagview/pkg/server"),
		cancel:     cancel,
	}
	go s.loop.run(ctx)
	return s
}

// Router returns the HTTP handler of the host API.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves the API and runs the device link until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.setupRoutes()
	if err := s.startWorkers(ctx); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	httpServer := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	InfoLog("[SERVER] tagview host listening on %s (device=%q transport=%s groups=%v)\n",
		addr, s.config.DeviceURL, s.config.Transport, s.config.Groups)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return s.Close()
}

// Close stops the event loop and the bus.
func (s *Server) Close() error {
	s.cancel()
	return s.bus.Close()
}

func (s *Server) setupRoutes() {
	s.router.Use(corsMiddleware)
	s.router.HandleFunc("/health", s.healthCheck).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()

	elements := api.PathPrefix("/elements").Subrouter()
	elements.HandleFunc("", s.listElements).Methods("GET")
	elements.HandleFunc("/{element}", s.getElement).Methods("GET")
	elements.HandleFunc("/{element}", s.deleteElement).Methods("DELETE")
	elements.HandleFunc("/{element}/tags/{tag}", s.getTag).Methods("GET")
	elements.HandleFunc("/{element}/tags/{tag}/focus", s.focusTag).Methods("POST")
	elements.HandleFunc("/{element}/tags/{tag}/blur", s.blurTag).Methods("POST")
	elements.HandleFunc("/{element}/tags/{tag}/input", s.inputTag).Methods("POST")
	elements.HandleFunc("/{element}/tags/{tag}/edit", s.editTag).Methods("POST")
	elements.HandleFunc("/{element}/tags/{tag}/click", s.clickTag).Methods("POST")
	elements.PathPrefix("").HandlerFunc(s.handleOptions).Methods("OPTIONS")

	api.HandleFunc("/snapshots", s.pushSnapshot).Methods("POST")
	api.HandleFunc("/logs", s.getLogs).Methods("GET")
	api.HandleFunc("/logs", s.clearLogs).Methods("DELETE")
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Accept, Origin")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
