package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
)

var ErrServerClosed = errors.New("server has closed")

type keysRequest struct {
	Keys []string `json:"keys" validate:"required,min=1,max=64,dive,required"`
}

type sessionResponse struct {
	ID string `json:"id"`
	Snapshot
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server exposes calculator sessions over HTTP and websockets.
type Server struct {
	sessions *Sessions
	validate *validator.Validate
	upgrader websocket.Upgrader
	http     *http.Server
	logger   *log.Logger
}

func NewServer(addr string, sessions *Sessions, logger *log.Logger) *Server {
	s := &Server{
		sessions: sessions,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logger,
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Delete("/", s.handleDelete)
			r.Post("/keys", s.handleKeys)
			r.Get("/ws", s.handleWebsocket)
		})
	})
	return r
}

func (s *Server) Run() error {
	if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ErrServerClosed
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("failed to write response, error: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	id := NewSessionID()
	session := NewSession()
	if err := s.sessions.Set(id, session); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, sessionResponse{ID: id, Snapshot: session.Snapshot()})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session := s.sessions.Get(id)
	if session == nil {
		s.writeError(w, http.StatusNotFound, ErrSessionExpired)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionResponse{ID: id, Snapshot: session.Snapshot()})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Delete(chi.URLParam(r, "id")) {
		s.writeError(w, http.StatusNotFound, ErrSessionExpired)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session := s.sessions.Get(id)
	if session == nil {
		s.writeError(w, http.StatusNotFound, ErrSessionExpired)
		return
	}

	var req keysRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	snapshot, err := session.Press(req.Keys...)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if !s.sessions.Refresh(id) {
		s.writeError(w, http.StatusNotFound, ErrSessionExpired)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionResponse{ID: id, Snapshot: snapshot})
}

// handleWebsocket treats every text frame as one key and answers it with
// the session snapshot.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.sessions.Get(id) == nil {
		s.writeError(w, http.StatusNotFound, ErrSessionExpired)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("failed to upgrade websocket, error: %v", err)
		return
	}
	defer conn.Close()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Printf("failed to read websocket message, error: %v", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		session := s.sessions.Get(id)
		if session == nil {
			if err := conn.WriteJSON(errorResponse{Error: ErrSessionExpired.Error()}); err != nil {
				s.logger.Printf("failed to write websocket message, error: %v", err)
				return
			}
			closeMessage := websocket.FormatCloseMessage(websocket.CloseNormalClosure, ErrSessionExpired.Error())
			if err := conn.WriteMessage(websocket.CloseMessage, closeMessage); err != nil {
				s.logger.Printf("failed to close websocket, error: %v", err)
			}
			return
		}

		var reply any
		snapshot, err := session.Press(string(data))
		if err != nil {
			reply = errorResponse{Error: err.Error()}
		} else {
			reply = sessionResponse{ID: id, Snapshot: snapshot}
			s.sessions.Refresh(id)
		}

		if err := conn.WriteJSON(reply); err != nil {
			s.logger.Printf("failed to write websocket message, error: %v", err)
			return
		}
	}
}
