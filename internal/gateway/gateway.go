// Package gateway exposes the services' topics as a JSON HTTP API.
//
// The gateway owns the trust boundary: it verifies bearer tokens, attaches
// the resulting claim to outgoing bus requests, and maps the shared failure
// taxonomy onto HTTP statuses. It holds no business rules; every handler is
// a thin relay onto the owning service's topic.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/casebooklabs/casebook/internal/platform/bus"
	"github.com/casebooklabs/casebook/internal/platform/timeouts"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server relays HTTP requests onto the bus.
type Server struct {
	conn   bus.Conn
	secret []byte
	router chi.Router
}

// New builds a gateway over the given bus connection and token secret.
func New(conn bus.Conn, secret []byte) (*Server, error) {
	if conn == nil {
		return nil, fmt.Errorf("bus connection is required")
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("token secret is required")
	}

	s := &Server{conn: conn, secret: secret}
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(s.authenticate)
		s.userRoutes(api)
		s.clientRoutes(api)
		s.caseRoutes(api)
		s.fileRoutes(api)
		s.taskRoutes(api)
		s.visitorRoutes(api)
		s.appointmentRoutes(api)
	})

	s.router = r
	return s, nil
}

// Handler returns the gateway's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// call relays one request onto the bus with the shared per-hop deadline.
// The claim installed by the auth middleware travels on the envelope.
func (s *Server) call(r *http.Request, topic string, in, out any) error {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.BusRequest)
	defer cancel()
	return s.conn.Request(ctx, topic, in, out)
}

// decodeBody parses a JSON request body into the given value.
func decodeBody(r *http.Request, into any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(into)
}

// relay runs one decode-call-respond cycle for a JSON-bodied operation.
func relay[In, Out any](s *Server, topic string, status int, prepare func(r *http.Request, in *In) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in In
		if r.Body != nil && r.ContentLength != 0 {
			if err := decodeBody(r, &in); err != nil {
				writeJSON(w, http.StatusBadRequest, errorBody{
					Code:    "MALFORMED_BODY",
					Message: "Request body is not valid JSON for this operation",
				})
				return
			}
		}
		if prepare != nil {
			if err := prepare(r, &in); err != nil {
				writeError(w, err)
				return
			}
		}
		var out Out
		if err := s.call(r, topic, in, &out); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, status, out)
	}
}
