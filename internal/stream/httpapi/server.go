package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lbarreto/live-odds-engine/internal/cache"
	"github.com/lbarreto/live-odds-engine/internal/odds"
	"github.com/lbarreto/live-odds-engine/internal/scheduler"
)

// API expõe os endpoints REST de leitura dos snapshots de odds.
// Serve direto da chave bem conhecida do cache, sem re-buscar no provedor.
type API struct {
	Store *cache.Store
}

// Router retorna o roteador HTTP com os endpoints de leitura
func (a *API) Router(ws http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/snapshots/live", a.listLive)           // Snapshots dos jogos ao vivo
	r.Get("/v1/snapshots/upcoming", a.listUpcoming)   // Snapshots do pré-jogo
	r.Get("/v1/fixtures/{id}/odds", a.getFixtureOdds) // Snapshot de um jogo
	r.Get("/ws", ws)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) listLive(w http.ResponseWriter, r *http.Request) {
	a.listSnapshots(w, r, scheduler.SnapshotsLiveKey)
}

func (a *API) listUpcoming(w http.ResponseWriter, r *http.Request) {
	a.listSnapshots(w, r, scheduler.SnapshotsUpcomingKey)
}

func (a *API) listSnapshots(w http.ResponseWriter, r *http.Request, key string) {
	var snapshots []*odds.OddsSnapshot
	if ok, err := a.Store.Get(r.Context(), key, &snapshots); err != nil || !ok {
		writeJSON(w, http.StatusOK, []*odds.OddsSnapshot{})
		return
	}
	writeJSON(w, http.StatusOK, snapshots)
}

// getFixtureOdds procura o jogo nas duas listas de snapshots
func (a *API) getFixtureOdds(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid fixture id"})
		return
	}

	for _, key := range []string{scheduler.SnapshotsLiveKey, scheduler.SnapshotsUpcomingKey} {
		var snapshots []*odds.OddsSnapshot
		if ok, _ := a.Store.Get(r.Context(), key, &snapshots); !ok {
			continue
		}
		for _, s := range snapshots {
			if s != nil && s.FixtureID == id {
				writeJSON(w, http.StatusOK, s)
				return
			}
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
}
