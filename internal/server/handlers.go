package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/joshsymonds/rcmatrix/internal/pipeline"
	"github.com/joshsymonds/rcmatrix/internal/report"
	"github.com/joshsymonds/rcmatrix/pkg/pathutil"
)

// uploadField is the multipart field holding the document.
const uploadField = "document"

var exportLabels = map[string]string{
	"xlsx":     "Download Excel",
	"csv":      "Download CSV",
	"markdown": "Download Markdown",
	"json":     "Download JSON",
	"html":     "Download HTML",
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request, id string) {
	st, _ := s.sessions.Get(id)
	flash, errMsg := s.sessions.TakeMessages(id)

	page := &report.HTMLPage{
		Title:        report.DefaultPageTitle,
		Flash:        flash,
		Error:        errMsg,
		UploadedName: st.UploadedName,
		Accept:       strings.Join(pathutil.DocumentExtensions, ","),
		Interactive:  true,
		GeneratedAt:  s.now(),
	}
	if st.Result != nil {
		page.View = report.Assemble(st.Result)
		page.Exports = s.exportLinks()
	}

	var buf bytes.Buffer
	if err := report.RenderHTML(&buf, page); err != nil {
		s.logger.Error("Failed to render page", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) exportLinks() []report.ExportLink {
	links := make([]report.ExportLink, 0, len(s.exports))
	for _, name := range s.exports {
		label, ok := exportLabels[name]
		if !ok {
			label = "Download " + name
		}
		links = append(links, report.ExportLink{Label: label, URL: "/export/" + name})
	}
	return links
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request, id string) {
	defer http.Redirect(w, r, "/", http.StatusSeeOther)

	tooLarge := fmt.Sprintf("Upload exceeds the %d MB limit", s.maxUpload>>20)
	if r.ContentLength > s.maxUpload {
		s.sessions.SetError(id, "", tooLarge)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.sessions.SetError(id, "", tooLarge)
			return
		}
		s.sessions.SetError(id, "", "Please choose a document to upload")
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			s.logger.Warn("Failed to remove multipart files", "error", err)
		}
	}()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		s.sessions.SetError(id, "", "Please choose a document to upload")
		return
	}
	defer func() { _ = file.Close() }()

	name := pathutil.SanitizeUploadName(header.Filename)
	log := s.logger.With("session", id, "file", name)
	log.Info("Analyzing upload", "size", header.Size)

	result, err := s.runner.RunUpload(r.Context(), header.Filename, file)
	if err != nil {
		log.Error("Analysis failed", "error", err)
		s.sessions.SetError(id, name, "Error analyzing document: "+pipeline.Message(err))
		return
	}

	s.sessions.SetResult(id, name, result)
	log.Info("Analysis complete", "analysis_id", result.ID, "objectives", len(result.ControlObjectives))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request, id string) {
	s.sessions.Reset(id)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, id string) {
	name := mux.Vars(r)["format"]
	if !s.offers(name) {
		http.Error(w, "unknown export format", http.StatusNotFound)
		return
	}

	st, ok := s.sessions.Get(id)
	if !ok || st.Result == nil {
		http.Error(w, "no analysis in this session", http.StatusNotFound)
		return
	}

	format, err := report.GetFormat(name, s.logger)
	if err != nil {
		http.Error(w, "unknown export format", http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := format.Write(&buf, st.Result); err != nil {
		s.logger.Error("Failed to render export", "format", name, "error", err)
		http.Error(w, "failed to render export", http.StatusInternalServerError)
		return
	}

	stamp := st.Result.CreatedAt
	if stamp.IsZero() {
		stamp = s.now()
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", report.ExportFileName(format, stamp)))
	_, _ = buf.WriteTo(w)
}

func (s *Server) offers(name string) bool {
	for _, f := range s.exports {
		if f == name {
			return true
		}
	}
	return false
}
