package lsp

import (
	"net/url"
	"strings"
	"sync"

	"github.com/blobify/blobify-lang/internal/blobify/analysis"
)

// Document is an open text document and its latest analysis.
type Document struct {
	URI     string
	Content string
	Version int
	Lines   []int // Byte offsets of line starts.
	Result  *analysis.Result
}

func newDocument(uri, content string, version int) *Document {
	return &Document{
		URI:     uri,
		Content: content,
		Version: version,
		Lines:   computeLineOffsets(content),
		Result:  analysis.Analyze(content),
	}
}

// DocumentStore manages open documents in memory.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]*Document
}

// NewDocumentStore creates a new document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]*Document),
	}
}

// Open adds or replaces a document and analyzes it.
func (s *DocumentStore) Open(uri, content string, version int) *Document {
	doc := newDocument(uri, content, version)
	s.mu.Lock()
	s.documents[uri] = doc
	s.mu.Unlock()
	return doc
}

// Update replaces the content of an open document and re-analyzes it. It
// returns nil when the document is not open.
func (s *DocumentStore) Update(uri, content string, version int) *Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[uri]; !ok {
		return nil
	}
	doc := newDocument(uri, content, version)
	s.documents[uri] = doc
	return doc
}

// Close removes a document from the store.
func (s *DocumentStore) Close(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, uri)
}

// Get retrieves a document by URI.
func (s *DocumentStore) Get(uri string) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.documents[uri]
}

// List returns all open document URIs.
func (s *DocumentStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uris := make([]string, 0, len(s.documents))
	for uri := range s.documents {
		uris = append(uris, uri)
	}
	return uris
}

func computeLineOffsets(content string) []int {
	offsets := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// GetLine returns the content of a line without its line terminator.
func (d *Document) GetLine(line int) string {
	if d == nil || line < 0 || line >= len(d.Lines) {
		return ""
	}
	start := d.Lines[line]
	end := len(d.Content)
	if line+1 < len(d.Lines) {
		end = d.Lines[line+1] - 1
	}
	return strings.TrimSuffix(d.Content[start:end], "\r")
}

// LineRange spans the whole of a line, excluding its terminator.
func (d *Document) LineRange(line int) Range {
	return Range{
		Start: Position{Line: uint32(line)},
		End:   Position{Line: uint32(line), Character: uint32(len(d.GetLine(line)))},
	}
}

// TextBefore returns the part of the cursor's line left of pos.
func (d *Document) TextBefore(pos Position) string {
	line := d.GetLine(int(pos.Line))
	if int(pos.Character) < len(line) {
		return line[:pos.Character]
	}
	return line
}

// EndPosition is the position just past the last character.
func (d *Document) EndPosition() Position {
	last := len(d.Lines) - 1
	return Position{Line: uint32(last), Character: uint32(len(d.Content) - d.Lines[last])}
}

// URIToPath converts a file:// URI to a file system path.
func URIToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return strings.TrimPrefix(uri, "file://")
	}
	return u.Path
}

// PathToURI converts a file system path to a file:// URI.
func PathToURI(path string) string {
	if strings.HasPrefix(path, "file://") {
		return path
	}
	return (&url.URL{Scheme: "file", Path: path}).String()
}
