// Package enginetest provides a scriptable engine.Session for tests.
package enginetest

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"courseharvest/internal/components/engine"
)

// Page is the scripted behaviour of one url.
type Page struct {
	Status  int
	LoadErr error
	IdleErr error
	// Results maps a query name to the value its evaluation returns.
	Results   map[string]any
	EvalErr   error
	RenderErr error
	// Document is written on RenderDocument, defaults to a minimal pdf header.
	Document []byte
	Html     string
}

// Session is a fake engine.Session. Urls missing from Pages (and rejected by
// Lookup) load as empty 404 pages.
type Session struct {
	Pages map[string]Page
	// Lookup is consulted for urls that are not in Pages.
	Lookup func(url string) (Page, bool)

	mutex    sync.Mutex
	current  string
	page     Page
	loads    []string
	rendered []string
	closed   bool
}

func (s *Session) find(url string) (Page, bool) {
	if page, ok := s.Pages[url]; ok {
		return page, true
	}
	if s.Lookup != nil {
		return s.Lookup(url)
	}
	return Page{}, false
}

func (s *Session) Load(ctx context.Context, url string, timeout time.Duration) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.loads = append(s.loads, url)
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	page, ok := s.find(url)
	if !ok {
		page = Page{Status: 404}
	}
	s.current = url
	s.page = page
	if page.LoadErr != nil {
		return 0, page.LoadErr
	}
	if page.Status == 0 {
		return 200, nil
	}
	return page.Status, nil
}

func (s *Session) WaitForIdle(ctx context.Context, timeout time.Duration) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.page.IdleErr
}

func (s *Session) Evaluate(ctx context.Context, q engine.Query, out any) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.page.EvalErr != nil {
		return s.page.EvalErr
	}
	encoded, err := json.Marshal(s.page.Results[q.Name])
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, out)
}

func (s *Session) RenderDocument(ctx context.Context, path string, layout engine.Layout) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.page.RenderErr != nil {
		return s.page.RenderErr
	}
	document := s.page.Document
	if document == nil {
		document = []byte("%PDF-1.4\n%fake\n")
	}
	err := os.WriteFile(path, document, 0644)
	if err != nil {
		return err
	}
	s.rendered = append(s.rendered, path)
	return nil
}

func (s *Session) Screenshot(ctx context.Context, path string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n"), 0644)
}

func (s *Session) Html(ctx context.Context) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.page.Html, ctx.Err()
}

func (s *Session) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.closed = true
	return nil
}

// Loads returns every url passed to Load, in order.
func (s *Session) Loads() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]string(nil), s.loads...)
}

// Rendered returns the paths of every document written.
func (s *Session) Rendered() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]string(nil), s.rendered...)
}

// Current returns the url of the last Load.
func (s *Session) Current() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.current
}

func (s *Session) Closed() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.closed
}

var _ engine.Session = (*Session)(nil)
