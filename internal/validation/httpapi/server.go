package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lbarreto/live-odds-engine/internal/validation"
)

// API expõe a validação de apostas para o controlador externo
type API struct {
	Log    *zap.Logger
	Engine *validation.Engine
}

// Router retorna o roteador HTTP do serviço de validação
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/validations", a.validate)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// validate valida um conjunto de apostas contra o mercado corrente.
// Entrada malformada → 400; desfecho de negócio → 200 com código de domínio.
func (a *API) validate(w http.ResponseWriter, r *http.Request) {
	var req validation.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}

	res, err := a.Engine.Validate(r.Context(), req)
	if err != nil {
		if errors.Is(err, validation.ErrNoBets) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		a.Log.Error("validation failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, res)
}
