package router

import (
	"net/http"

	reportHandler "homefolio/internal/report"
	"homefolio/middleware"
)

type Deps struct {
	Reports        *reportHandler.ReportHandler
	JWTSecret      string
	AllowedOrigins []string
}

func Setup(deps Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Report endpoints are public (share token); a bearer token only changes
	// the rate-limit identity.
	auth := middleware.OptionalAuth(deps.JWTSecret)
	mux.Handle("/report/property", auth(http.HandlerFunc(deps.Reports.PropertyReport)))
	mux.Handle("/report/session", auth(http.HandlerFunc(deps.Reports.SessionReport)))

	var h http.Handler = mux
	h = middleware.CORSMiddleware(deps.AllowedOrigins)(h)
	h = middleware.Recovery(h)
	h = middleware.RequestLogger(h)
	return h
}
