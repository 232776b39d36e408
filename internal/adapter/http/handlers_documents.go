package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clearway-labs/regent/internal/service"
)

// ListDocuments handles GET /api/v1/documents.
func (h *Handlers) ListDocuments(w http.ResponseWriter, _ *http.Request) {
	docs := h.Documents.List()
	if docs == nil {
		docs = []service.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

// RegisterDocument handles POST /api/v1/documents.
func (h *Handlers) RegisterDocument(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[struct {
		Title        string `json:"title"`
		SourceURL    string `json:"source_url"`
		Standard     string `json:"standard"`
		DocumentType string `json:"document_type"`
	}](w, r)
	if !ok {
		return
	}

	doc, err := h.Documents.Register(req.Title, req.SourceURL, req.Standard, req.DocumentType)
	if err != nil {
		writeDomainError(w, err, "document registration failed")
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// GetDocument handles GET /api/v1/documents/{id}.
func (h *Handlers) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := h.Documents.Get(id)
	if err != nil {
		writeDomainError(w, err, "document not found")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
