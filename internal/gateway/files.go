package gateway

import (
	"fmt"
	"io"
	"net/http"

	filesapi "github.com/casebooklabs/casebook/internal/services/files/api"
	"github.com/go-chi/chi/v5"
)

// maxUploadBytes caps multipart uploads. The whole blob travels inside the
// bus payload, so the cap protects the transport, not just the gateway.
const maxUploadBytes = 32 << 20

// readUpload extracts the uploaded part named "file" from a multipart form.
func readUpload(r *http.Request) (name, contentType string, content []byte, err error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", "", nil, fmt.Errorf("parse multipart form: %w", err)
	}
	part, header, err := r.FormFile("file")
	if err != nil {
		return "", "", nil, fmt.Errorf("missing file part: %w", err)
	}
	defer part.Close()

	content, err = io.ReadAll(part)
	if err != nil {
		return "", "", nil, fmt.Errorf("read file part: %w", err)
	}
	contentType = header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return header.Filename, contentType, content, nil
}

func (s *Server) fileRoutes(api chi.Router) {
	api.Route("/files", func(r chi.Router) {
		r.Post("/", s.handleUploadFile)
		r.Get("/", relay[filesapi.ListRequest, filesapi.FilePage](s, filesapi.TopicGetAllFiles, http.StatusOK,
			func(r *http.Request, in *filesapi.ListRequest) error {
				in.Page, in.Limit = pageParams(r)
				return nil
			}))
		r.Get("/search", relay[filesapi.SearchFilesRequest, []filesapi.FileMetadata](s, filesapi.TopicSearchFiles, http.StatusOK,
			func(r *http.Request, in *filesapi.SearchFilesRequest) error {
				q := r.URL.Query()
				in.FileName = q.Get("fileName")
				in.ClientName = q.Get("clientName")
				in.CaseNumber = q.Get("caseNumber")
				return nil
			}))
		r.Get("/{id}", relay[filesapi.GetByIDRequest, filesapi.FileMetadata](s, filesapi.TopicGetFileByID, http.StatusOK,
			func(r *http.Request, in *filesapi.GetByIDRequest) error {
				in.ID = chi.URLParam(r, "id")
				return nil
			}))
		r.Get("/{id}/download", s.handleDownloadFile)
		r.Put("/{id}", s.handleReplaceFile)
		r.Delete("/{id}", relay[filesapi.GetByIDRequest, struct{}](s, filesapi.TopicDeleteCaseFile, http.StatusOK,
			func(r *http.Request, in *filesapi.GetByIDRequest) error {
				in.ID = chi.URLParam(r, "id")
				return nil
			}))
	})
}

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	name, contentType, content, err := readUpload(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Code:    "MALFORMED_UPLOAD",
			Message: "Upload must be a multipart form with a file part",
		})
		return
	}
	in := filesapi.SaveFileRequest{
		FileName:    name,
		ContentType: contentType,
		ClientID:    r.FormValue("clientId"),
		CaseID:      r.FormValue("caseId"),
		Content:     content,
	}
	var out filesapi.FileMetadata
	if err := s.call(r, filesapi.TopicSaveNewCaseFile, in, &out); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleReplaceFile(w http.ResponseWriter, r *http.Request) {
	name, contentType, content, err := readUpload(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Code:    "MALFORMED_UPLOAD",
			Message: "Upload must be a multipart form with a file part",
		})
		return
	}
	in := filesapi.UpdateFileRequest{
		FileID:      chi.URLParam(r, "id"),
		FileName:    name,
		ContentType: contentType,
		Content:     content,
	}
	var out filesapi.FileMetadata
	if err := s.call(r, filesapi.TopicUpdateCaseFile, in, &out); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	in := filesapi.GetByIDRequest{ID: chi.URLParam(r, "id")}
	var out filesapi.FileContent
	if err := s.call(r, filesapi.TopicDownloadFile, in, &out); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.FileName))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out.Content); err != nil {
		return
	}
}
