package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rflorenc/deploy-ledger/internal/dbms"
	"github.com/rflorenc/deploy-ledger/internal/logger"
)

type resolveRequest struct {
	SourceServer string `json:"source_server"`
	Source       string `json:"source"`
}

type resolveResponse struct {
	SourceServer string `json:"source_server"`
	Source       string `json:"source"`
	Target       string `json:"target"`
}

func (s *Server) ListDbmsServers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Dbms.Servers())
}

// ResolveDatasource translates a source datasource name for one source
// server. Unknown servers, unknown sources and empty targets are all 404.
func (s *Server) ResolveDatasource(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.SourceServer == "" || req.Source == "" {
		writeError(w, http.StatusBadRequest, "source_server and source are required")
		return
	}
	target, ok := s.Dbms.Resolve(req.SourceServer, req.Source)
	if !ok {
		writeError(w, http.StatusNotFound, "no mapping for "+req.Source+" on "+req.SourceServer)
		return
	}
	writeJSON(w, http.StatusOK, resolveResponse{SourceServer: req.SourceServer, Source: req.Source, Target: target})
}

func (s *Server) GetDbmsMap(w http.ResponseWriter, r *http.Request) {
	server := chi.URLParam(r, "server")
	m := s.Dbms.Get(server)
	if m == nil {
		writeError(w, http.StatusNotFound, "no dbms map for "+server)
		return
	}
	writeXML(w, http.StatusOK, m)
}

// PutDbmsMap replaces the table for a server with a PSXDbmsMap body whose
// sourceServer matches the path.
func (s *Server) PutDbmsMap(w http.ResponseWriter, r *http.Request) {
	server := chi.URLParam(r, "server")
	m, err := readXML(w, r, dbms.DecodeMap)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if m.SourceServer() != server {
		writeError(w, http.StatusBadRequest, "sourceServer "+m.SourceServer()+" does not match "+server)
		return
	}
	s.Dbms.Put(m)
	logger.Infof("dbms map for %s replaced (%d mappings)", server, m.Len())
	writeXML(w, http.StatusOK, m)
}

func (s *Server) DeleteDbmsMap(w http.ResponseWriter, r *http.Request) {
	if !s.Dbms.Delete(chi.URLParam(r, "server")) {
		writeError(w, http.StatusNotFound, "dbms map not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
