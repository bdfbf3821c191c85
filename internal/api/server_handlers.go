package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rflorenc/deploy-ledger/internal/models"
)

type serverView struct {
	ID           string `json:"id"`
	Server       string `json:"server"`
	Port         int    `json:"port"`
	UserID       string `json:"userid"`
	Password     string `json:"password"`
	PwdEncrypted bool   `json:"pwd_encrypted"`
}

func toServerView(id string, c *models.ServerConnectionInfo) serverView {
	return serverView{
		ID:           id,
		Server:       c.Server(),
		Port:         c.Port(),
		UserID:       c.UserID(),
		Password:     c.MaskedPassword(),
		PwdEncrypted: c.IsPwdEncrypted(),
	}
}

func (s *Server) ListServers(w http.ResponseWriter, r *http.Request) {
	servers := s.Servers.List()
	out := make([]serverView, 0, len(servers))
	for _, srv := range servers {
		out = append(out, toServerView(srv.ID, srv.Info))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) GetServer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c := s.Servers.Get(id)
	if c == nil {
		writeError(w, http.StatusNotFound, "server not found")
		return
	}
	writeJSON(w, http.StatusOK, toServerView(id, c))
}

func (s *Server) DeleteServer(w http.ResponseWriter, r *http.Request) {
	if !s.Servers.Delete(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "server not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
