package api

import (
	"net/http"

	"github.com/JaimeStill/loom/pkg/handlers"
)

// policiesHandler returns the current stats for every resilience policy
// that has guarded at least one call.
func policiesHandler(runtime *Runtime) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, runtime.Policies.Stats())
	}
}

// modelsHandler resolves the model assignment for a stage name path
// parameter without invoking it.
func modelsHandler(runtime *Runtime) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stage := r.PathValue("stage")

		resolution, err := runtime.Router.Resolve(stage)
		if err != nil {
			handlers.RespondError(w, runtime.Logger, http.StatusBadRequest, err)
			return
		}

		handlers.RespondJSON(w, http.StatusOK, resolution)
	}
}
