package api

import (
	"net/http"

	"github.com/JaimeStill/loom/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	runtime *Runtime,
) {
	routes.Register(
		mux,
		domain.Runs.Handler().Routes(),
	)

	mux.HandleFunc("GET /policies", policiesHandler(runtime))
	mux.HandleFunc("GET /models/{stage}", modelsHandler(runtime))
}
