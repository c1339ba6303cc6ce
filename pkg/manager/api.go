package manager

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/google/uuid"

	"github.com/aditip149209/okview/pkg/store"
)

type ErrResponse struct {
	HTTPStatusCode int    `json:"status"`
	Message        string `json:"message"`
}

type Api struct {
	Address string
	Port    int
	Manager *Manager
	Router  *chi.Mux
}

func (a *Api) initRouter() {
	a.Router = chi.NewRouter()
	a.Router.Route("/nodes", func(r chi.Router) {
		r.Get("/", a.GetNodesHandler)
		r.Route("/{nodeID}", func(r chi.Router) {
			r.Get("/", a.GetNodeHandler)
			r.Delete("/", a.DeleteNodeHandler)
		})
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
	a.Manager.log.Info("Starting manager api", "address", addr)
	return http.ListenAndServe(addr, a.Handler())
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrResponse{
		HTTPStatusCode: status,
		Message:        msg,
	})
}

func (a *Api) GetNodesHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	nodes, err := a.Manager.Nodes(r.Context())
	if err != nil {
		a.Manager.log.Error(err, "Listing nodes failed")
		writeErr(w, 500, err.Error())
		return
	}
	w.WriteHeader(200)
	json.NewEncoder(w).Encode(nodes)
}

func (a *Api) nodeID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "nodeID"))
	if err != nil {
		writeErr(w, 400, "invalid node id: "+err.Error())
		return uuid.Nil, false
	}
	return id, true
}

func (a *Api) GetNodeHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	id, ok := a.nodeID(w, r)
	if !ok {
		return
	}
	n, err := a.Manager.store.Get(r.Context(), id)
	if err == store.ErrNotFound {
		writeErr(w, 404, "no node with id "+id.String())
		return
	}
	if err != nil {
		writeErr(w, 500, err.Error())
		return
	}
	w.WriteHeader(200)
	json.NewEncoder(w).Encode(n)
}

// DeleteNodeHandler forgets a node. Its worker stays registered and the
// node reappears after the next successful poll.
func (a *Api) DeleteNodeHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	id, ok := a.nodeID(w, r)
	if !ok {
		return
	}
	err := a.Manager.store.Delete(r.Context(), id)
	if err == store.ErrNotFound {
		writeErr(w, 404, "no node with id "+id.String())
		return
	}
	if err != nil {
		writeErr(w, 500, err.Error())
		return
	}
	a.Manager.log.Info("Deleted node", "node", id.String())
	w.WriteHeader(204)
}
