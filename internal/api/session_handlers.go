package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rflorenc/deploy-ledger/internal/dependency"
	"github.com/rflorenc/deploy-ledger/internal/session"
	"github.com/rflorenc/deploy-ledger/internal/validation"
)

type packageView struct {
	Key         dependency.Key `json:"key"`
	DisplayName string         `json:"display_name"`
	Description string         `json:"description"`
	Validated   bool           `json:"validated"`
	Installable bool           `json:"installable"`
	Blocking    []string       `json:"blocking,omitempty"`
}

type sessionView struct {
	ID       string        `json:"id"`
	Created  time.Time     `json:"created"`
	Packages []packageView `json:"packages"`
}

func toSessionView(sess *session.Session) sessionView {
	v := sessionView{ID: sess.ID(), Created: sess.Created(), Packages: []packageView{}}
	for _, p := range sess.Packages() {
		pv := packageView{
			Key:         p.Key(),
			DisplayName: p.Element().DisplayName(),
			Description: p.Element().Description(),
			Validated:   p.Validated(),
			Installable: p.Installable(),
		}
		if rs := p.Results(); rs != nil {
			for _, b := range rs.Blocking() {
				pv.Blocking = append(pv.Blocking, b.Key().String()+": "+b.Message())
			}
		}
		v.Packages = append(v.Packages, pv)
	}
	return v
}

func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, toSessionView(s.Sessions.Create()))
}

func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.Sessions.List()
	out := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, toSessionView(sess))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) *session.Session {
	sess := s.Sessions.Get(chi.URLParam(r, "id"))
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
	}
	return sess
}

func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	if sess := s.session(w, r); sess != nil {
		writeJSON(w, http.StatusOK, toSessionView(sess))
	}
}

func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.Sessions.Delete(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddSessionPackage selects the PSXDeployableElement body for import.
func (s *Server) AddSessionPackage(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	el, err := readXML(w, r, dependency.DecodeDeployableElement)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if err := sess.AddPackage(el); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionView(sess))
}

// SetPackageResults attaches a PSXValidationResults body produced by the
// orchestrator to one selected package.
func (s *Server) SetPackageResults(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	key := dependency.Key{ObjectType: chi.URLParam(r, "objectType"), DependencyID: chi.URLParam(r, "depId")}
	if sess.Package(key) == nil {
		writeError(w, http.StatusNotFound, "package "+key.String()+" not selected")
		return
	}
	results, err := readXML(w, r, validation.DecodeResults)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if err := sess.SetResults(key, results); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(sess))
}

// ValidateSession runs the configured validator over every selected package.
func (s *Server) ValidateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	if s.Validator == nil {
		writeError(w, http.StatusNotImplemented, "no validator configured; push results per package")
		return
	}
	if err := sess.Validate(r.Context(), s.Validator); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(sess))
}
