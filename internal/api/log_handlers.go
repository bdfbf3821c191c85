package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rflorenc/deploy-ledger/internal/ledger"
	"github.com/rflorenc/deploy-ledger/internal/logger"
)

// logRow is the JSON listing form of a stored log summary.
type logRow struct {
	ID            int    `json:"id"`
	Package       string `json:"package"`
	ObjectType    string `json:"object_type"`
	Status        string `json:"status"`
	ArchiveRef    string `json:"archive_ref"`
	ArchiveExists bool   `json:"archive_exists"`
	Transactions  int    `json:"transactions"`
}

func toLogRow(s *ledger.LogSummary) logRow {
	row := logRow{
		ID:            s.ID(),
		Package:       ledger.PackageName(s.Package()),
		ObjectType:    s.Package().ObjectType(),
		ArchiveRef:    s.ArchiveSummary().Info().ArchiveRef(),
		ArchiveExists: s.ArchiveExists(),
	}
	if p := s.ArchivePackage(); p != nil {
		row.Status = p.Status().String()
	}
	if d := s.Detail(); d != nil {
		row.Transactions = d.TransactionLog().Len()
	}
	return row
}

// CreateLog stores a PSXLogSummary body and returns it with its assigned id.
func (s *Server) CreateLog(w http.ResponseWriter, r *http.Request) {
	summary, err := readXML(w, r, ledger.DecodeLogSummary)
	if err != nil {
		writeFailure(w, err)
		return
	}
	stored, err := s.Logs.Save(summary)
	if err != nil {
		writeFailure(w, err)
		return
	}
	logger.Infof("stored install log %d for package %s", stored.ID(), ledger.PackageName(stored.Package()))
	writeXML(w, http.StatusCreated, stored)
}

// ListLogs lists stored logs, optionally for one package (?package=name).
func (s *Server) ListLogs(w http.ResponseWriter, r *http.Request) {
	var (
		rows []*ledger.LogSummary
		err  error
	)
	if name := r.URL.Query().Get("package"); name != "" {
		rows, err = s.Logs.ForPackage(name)
	} else {
		rows, err = s.Logs.List()
	}
	if err != nil {
		writeFailure(w, err)
		return
	}
	out := make([]logRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, toLogRow(row))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) GetLog(w http.ResponseWriter, r *http.Request) {
	id, ok := logID(w, r)
	if !ok {
		return
	}
	summary, err := s.Logs.Get(id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeXML(w, http.StatusOK, summary)
}

// PurgeArchive records that the archive behind a log no longer exists.
func (s *Server) PurgeArchive(w http.ResponseWriter, r *http.Request) {
	id, ok := logID(w, r)
	if !ok {
		return
	}
	summary, err := s.Logs.MarkArchivePurged(id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLogRow(summary))
}

func logID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "log id must be a positive integer")
		return 0, false
	}
	return id, true
}
