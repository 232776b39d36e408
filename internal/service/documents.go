// Package service contains the application core: query orchestration, hint
// generation, and the document metadata registry.
package service

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clearway-labs/regent/internal/domain"
)

// Document is the registered metadata for one knowledge-base source document.
type Document struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	SourceURL    string    `json:"source_url"`
	Standard     string    `json:"standard"`
	DocumentType string    `json:"document_type"`
	RegisteredAt time.Time `json:"registered_at"`
}

// DocumentService is an in-memory registry of knowledge-base document
// metadata. Vector content lives in the index; this registry only answers
// "what documents has this deployment ingested".
type DocumentService struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewDocumentService creates an empty registry.
func NewDocumentService() *DocumentService {
	return &DocumentService{docs: make(map[string]Document)}
}

// Register stores the metadata and assigns an identifier.
func (s *DocumentService) Register(title, sourceURL, standard, documentType string) (Document, error) {
	if title == "" {
		return Document{}, fmt.Errorf("%w: document title cannot be empty", domain.ErrValidation)
	}
	if documentType == "" {
		documentType = "general"
	}

	doc := Document{
		ID:           uuid.NewString(),
		Title:        title,
		SourceURL:    sourceURL,
		Standard:     standard,
		DocumentType: documentType,
		RegisteredAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.docs[doc.ID] = doc
	s.mu.Unlock()
	return doc, nil
}

// Get returns one document by identifier.
func (s *DocumentService) Get(id string) (Document, error) {
	s.mu.RLock()
	doc, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return Document{}, fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	return doc, nil
}

// List returns all registered documents ordered by registration time.
func (s *DocumentService) List() []Document {
	s.mu.RLock()
	out := make([]Document, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, doc)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].RegisteredAt.Before(out[j].RegisteredAt)
	})
	return out
}

// Count returns the number of registered documents.
func (s *DocumentService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
