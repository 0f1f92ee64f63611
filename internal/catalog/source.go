package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"tit-pharmacy/internal/domain"

	"go.uber.org/zap"
)

// maxDocumentSize bounds the catalog document read from files and HTTP
const maxDocumentSize = 10 << 20

// Source provides the external catalog document
type Source interface {
	Fetch(ctx context.Context) (domain.Document, error)
	Name() string
}

// FileSource reads the document from a JSON file
type FileSource struct {
	Path string
}

// NewFileSource creates a source backed by the JSON file at path
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Name() string { return "file" }

// Fetch reads and decodes the file
func (s *FileSource) Fetch(ctx context.Context) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	return decodeDocument(f)
}

// HTTPSource fetches the document from a URL
type HTTPSource struct {
	URL    string
	client *http.Client
}

// NewHTTPSource creates a source that GETs url; a zero timeout means no client timeout
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		URL:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) Name() string { return "http" }

// Fetch performs the GET request and decodes the body; non-2xx responses fail
func (s *HTTPSource) Fetch(ctx context.Context) (domain.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return domain.Document{}, fmt.Errorf("failed to build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.Document{}, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Document{}, fmt.Errorf("unexpected catalog response status: %s", resp.Status)
	}

	return decodeDocument(resp.Body)
}

func decodeDocument(r io.Reader) (domain.Document, error) {
	var doc domain.Document
	if err := json.NewDecoder(io.LimitReader(r, maxDocumentSize)).Decode(&doc); err != nil {
		return domain.Document{}, fmt.Errorf("failed to decode catalog document: %w", err)
	}
	return doc.Normalize(), nil
}

// FetchCategories loads only the category list, as the add form does when it
// opens. Failures are logged and produce an empty list.
func FetchCategories(ctx context.Context, src Source, logger *zap.Logger) []string {
	doc, err := src.Fetch(ctx)
	if err != nil {
		if logger != nil {
			logger.Error("Error fetching categories",
				zap.String("source", src.Name()),
				zap.Error(err),
			)
		}
		return []string{}
	}
	return doc.Normalize().Categories
}
