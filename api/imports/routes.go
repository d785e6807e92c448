package imports

import (
	"net/http"

	"AdvisorDesk/api"

	"github.com/gorilla/mux"
)

// NewRouter mounts the import endpoints under /import.
func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(api.RequestLogMiddleware("importer"))
	r := router.PathPrefix("/import").Subrouter()

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/fields", h.Fields).Methods(http.MethodGet)
	r.HandleFunc("/upload", h.Upload).Methods(http.MethodPost)
	r.HandleFunc("/map-headers", h.MapHeaders).Methods(http.MethodPost)
	r.HandleFunc("/insights/product-types", h.ProductTypeInsights).Methods(http.MethodGet)

	r.HandleFunc("/sessions/{id}", h.DeleteSession).Methods(http.MethodDelete)
	s := r.PathPrefix("/sessions/{id}").Subrouter()
	s.HandleFunc("/mapping", h.UpdateMapping).Methods(http.MethodPut)
	s.HandleFunc("/preview", h.Preview).Methods(http.MethodPost)
	s.HandleFunc("/rows", h.ListRows).Methods(http.MethodGet)
	s.HandleFunc("/rows", h.AddRow).Methods(http.MethodPost)
	s.HandleFunc("/rows/{index:[0-9]+}", h.EditRow).Methods(http.MethodPut)
	s.HandleFunc("/rows/{index:[0-9]+}", h.DeleteRow).Methods(http.MethodDelete)
	s.HandleFunc("/approve", h.Approve).Methods(http.MethodPost)
	s.HandleFunc("/summary", h.Summary).Methods(http.MethodPost)
	s.HandleFunc("/report", h.Report).Methods(http.MethodGet)
	s.HandleFunc("/clients/{clientId}/summary", h.ClientSummary).Methods(http.MethodPost)

	return router
}
