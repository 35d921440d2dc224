package api

import (
	"fmt"
	"log"
	"net/http"

	_ "github.com/edplatform/upload-manager/docs"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/edplatform/upload-manager/internal/api/handlers"
	"github.com/edplatform/upload-manager/internal/api/middleware"
	"github.com/edplatform/upload-manager/internal/config"
	"github.com/rs/cors"
)

func SetupRouter(cfg config.Config, sessions *handlers.SessionHandler, events *handlers.StorageEventHandler) http.Handler {
	mainMux := http.NewServeMux()
	c := cors.New(cfg.CorsConfig)

	// ---------- PUBLIC ROUTES ----------
	mainMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})

	mainMux.HandleFunc("/docs/", httpSwagger.WrapHandler)

	// ---------- SERVICE ROUTES ----------
	sessionMux := http.NewServeMux()
	sessionMux.HandleFunc("POST /", sessions.CreateUploadSession)
	sessionMux.HandleFunc("GET /", sessions.GetUploadSession)
	sessionMux.HandleFunc("GET /list", sessions.ListUploadSessions)
	sessionMux.HandleFunc("PUT /{uploadId}", sessions.UpdateUploadSession)

	mainMux.Handle("/api/v1/upload-sessions/",
		http.StripPrefix(
			"/api/v1/upload-sessions",
			middleware.ServiceAuth(cfg.JWTSecret, sessionMux),
		),
	)

	internalMux := http.NewServeMux()
	internalMux.HandleFunc("POST /object-finalized", events.ObjectFinalized)

	mainMux.Handle("/internal/storage/",
		http.StripPrefix(
			"/internal/storage",
			middleware.ServiceAuth(cfg.JWTSecret, internalMux),
		),
	)

	log.Println("Router initialized")
	handler := c.Handler(mainMux)
	handler = middleware.Logger(handler)
	return handler
}
