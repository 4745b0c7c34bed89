package server

import (
	"net/http"
)

// Handler returns the routed API wrapped in the observability middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	requestLimitHandler := s.requestSizeLimitMiddleware()

	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/stats", s.statsHandler)
	mux.HandleFunc("/rank-candidates", requestLimitHandler(s.rankCandidatesHandler))

	return s.observability.HTTPMiddleware()(mux)
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
			}

			next(w, r)
		}
	}
}
