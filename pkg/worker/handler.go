package worker

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
)

type ErrResponse struct {
	HTTPStatusCode int    `json:"status"`
	Message        string `json:"message"`
}

type Api struct {
	Address string
	Port    int
	Worker  *Worker
	Router  *chi.Mux
}

func (a *Api) initRouter() {
	a.Router = chi.NewRouter()
	a.Router.Route("/node", func(r chi.Router) {
		r.Get("/", a.GetNodeHandler)
	})
	a.Router.Route("/stats", func(r chi.Router) {
		r.Get("/", a.GetStatsHandler)
	})
}

func (a *Api) Handler() http.Handler {
	if a.Router == nil {
		a.initRouter()
	}
	return a.Router
}

func (a *Api) Start() error {
	addr := net.JoinHostPort(a.Address, strconv.Itoa(a.Port))
	a.Worker.log.Info("Starting worker api", "address", addr)
	return http.ListenAndServe(addr, a.Handler())
}

func (a *Api) GetNodeHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(200)
	json.NewEncoder(w).Encode(a.Worker.Node())
}

func (a *Api) GetStatsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	stats := a.Worker.Stats()
	if stats == nil {
		msg := fmt.Sprintf("no stats collected yet on worker %s", a.Worker.Name)
		a.Worker.log.Info(msg)
		w.WriteHeader(503)
		json.NewEncoder(w).Encode(ErrResponse{
			HTTPStatusCode: 503,
			Message:        msg,
		})
		return
	}
	w.WriteHeader(200)
	json.NewEncoder(w).Encode(stats)
}
