package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/colorful-bubbles/idb-keyval/lib/db"
	"github.com/colorful-bubbles/idb-keyval/lib/db/engines/bolt"
	"github.com/colorful-bubbles/idb-keyval/lib/db/engines/mem"
	"github.com/colorful-bubbles/idb-keyval/lib/kv"
	"github.com/colorful-bubbles/idb-keyval/lib/logger"
	"github.com/colorful-bubbles/idb-keyval/rpc/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

var Logger = logger.GetLogger("rpc")

// defaultDatabase is the registry name of the single database the server
// exposes over HTTP.
const defaultDatabase = "default"

// maxValueBytes caps request bodies so a misbehaving client cannot buffer
// arbitrary amounts of memory in the server.
const maxValueBytes = 64 << 20

// NewRPCServer creates a new RPC server serving the key-value API over HTTP.
//
// Usage:
//
//	s := server.NewRPCServer(*config)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(config common.ServerConfig) *RPCServer {
	Logger.Infof("Created RPC Server")
	Logger.Infof(config.String())

	return &RPCServer{
		config:   config,
		registry: kv.NewRegistry(),
	}
}

type RPCServer struct {
	config   common.ServerConfig
	registry *kv.Registry
	instance kv.IKeyVal
}

// init opens the served database through the registry and configures logging
func (s *RPCServer) init() error {
	common.InitLoggers(s.config)

	factory, err := s.engineFactory()
	if err != nil {
		return err
	}

	opts := kv.DefaultOptions()
	if s.config.SweepIntervalSecond > 0 {
		opts.SweepInterval = time.Duration(s.config.SweepIntervalSecond) * time.Second
	}

	instance, err := s.registry.Open(defaultDatabase, factory, opts)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.instance = instance

	Logger.Infof("serving database %q on engine %q", defaultDatabase, s.config.Engine)
	return nil
}

// engineFactory returns the database factory for the configured engine
func (s *RPCServer) engineFactory() (db.Factory, error) {
	switch s.config.Engine {
	case common.EngineMem, "":
		return func() (db.Database, error) { return mem.NewMemDB(), nil }, nil
	case common.EngineBolt:
		if s.config.DataDir == "" {
			return nil, errors.New("bolt engine requires a data directory")
		}
		path := filepath.Join(s.config.DataDir, defaultDatabase+".db")
		return func() (db.Database, error) {
			return bolt.NewBoltDB(bolt.DefaultOptions(path))
		}, nil
	default:
		return nil, fmt.Errorf("unknown engine: %q", s.config.Engine)
	}
}

// Handler builds the HTTP routing table. Exposed separately from Serve so
// tests can mount it on httptest servers.
func (s *RPCServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/v1/kv/{store}", func(r chi.Router) {
		r.Get("/", s.handleKeys)
		r.Delete("/", s.handleClear)
		r.Get("/{key}", s.handleGet)
		r.Head("/{key}", s.handleHas)
		r.Put("/{key}", s.handleSet)
		r.Delete("/{key}", s.handleDel)
	})

	r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	return r
}

// Serve initializes the server and blocks until the listener fails or the
// process receives SIGINT/SIGTERM, then shuts down gracefully and closes
// the database.
func (s *RPCServer) Serve() error {
	if err := s.init(); err != nil {
		return err
	}
	defer func() {
		if err := s.registry.CloseAll(); err != nil {
			Logger.Errorf("failed to close databases: %v", err)
		}
	}()

	timeout := time.Duration(s.config.TimeoutSecond) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpServer := &http.Server{
		Addr:         s.config.Endpoint,
		Handler:      s.Handler(),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		Logger.Infof("listening on %s", s.config.Endpoint)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		Logger.Infof("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

// --------------------------------------------------------------------------
// Handlers
// --------------------------------------------------------------------------

func (s *RPCServer) handleGet(w http.ResponseWriter, r *http.Request) {
	store, key := chi.URLParam(r, "store"), chi.URLParam(r, "key")

	value, loaded, err := s.instance.Get(store, key)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !loaded {
		http.Error(w, "key not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(value)
}

func (s *RPCServer) handleHas(w http.ResponseWriter, r *http.Request) {
	store, key := chi.URLParam(r, "store"), chi.URLParam(r, "key")

	loaded, err := s.instance.Has(store, key)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !loaded {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *RPCServer) handleSet(w http.ResponseWriter, r *http.Request) {
	store, key := chi.URLParam(r, "store"), chi.URLParam(r, "key")

	var ttl uint64
	if raw := r.URL.Query().Get("ttl"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid ttl: "+raw, http.StatusBadRequest)
			return
		}
		ttl = parsed
	}

	value, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxValueBytes))
	if err != nil {
		http.Error(w, "failed to read value: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.instance.Set(store, key, value, ttl); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *RPCServer) handleDel(w http.ResponseWriter, r *http.Request) {
	store, key := chi.URLParam(r, "store"), chi.URLParam(r, "key")

	if err := s.instance.Del(store, key); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *RPCServer) handleKeys(w http.ResponseWriter, r *http.Request) {
	store := chi.URLParam(r, "store")

	keys, err := s.instance.Keys(store)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(keys)
}

func (s *RPCServer) handleClear(w http.ResponseWriter, r *http.Request) {
	store := chi.URLParam(r, "store")

	if err := s.instance.Clear(store); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps a library error to an HTTP status
func (s *RPCServer) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var kvErr *kv.Error
	if errors.As(err, &kvErr) {
		switch kvErr.Code {
		case kv.RetCUnsupportedOperation:
			status = http.StatusNotImplemented
		case kv.RetCInvalidOperation:
			status = http.StatusBadRequest
		}
	}

	http.Error(w, err.Error(), status)
}

// logRequests logs every request at debug level with its duration
func (s *RPCServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		Logger.Debugf("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}
