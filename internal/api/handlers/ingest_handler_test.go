package handlers

import (
	"archive/zip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookcast/ingest/internal/core"
	"github.com/bookcast/ingest/internal/core/dispatch"
	"github.com/bookcast/ingest/internal/core/ingest"
	"github.com/bookcast/ingest/internal/core/source"
	"github.com/bookcast/ingest/internal/core/summary"
	"github.com/bookcast/ingest/internal/models"
)

type stubStore struct {
	mu sync.Mutex

	book       *models.Book
	getBookErr error

	pages    map[int]string
	upserted []models.Book
	sections [][]models.SectionSummary

	insertSectionsErr error
}

func newStubStore() *stubStore {
	return &stubStore{pages: map[int]string{}}
}

func (s *stubStore) GetBook(context.Context, string) (*models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getBookErr != nil {
		return nil, s.getBookErr
	}
	return s.book, nil
}

func (s *stubStore) UpsertBook(_ context.Context, book *models.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserted = append(s.upserted, *book)
	return nil
}

func (s *stubStore) InsertPage(_ context.Context, page *models.BookPage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[page.PageNumber] = page.Text
	return nil
}

func (s *stubStore) SelectPageTexts(_ context.Context, _ string, startPage, endPage int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var texts []string
	for n := startPage; n <= endPage; n++ {
		if t, ok := s.pages[n]; ok {
			texts = append(texts, t)
		}
	}
	return texts, nil
}

func (s *stubStore) InsertSections(_ context.Context, recs []models.SectionSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertSectionsErr != nil {
		return s.insertSectionsErr
	}
	s.sections = append(s.sections, recs)
	return nil
}

type stubProvider struct {
	store        core.Store
	claims       []string
	serviceCalls int
}

func (p *stubProvider) Service() core.Store {
	p.serviceCalls++
	return p.store
}

func (p *stubProvider) WithClaims(claimsJSON string) core.Store {
	p.claims = append(p.claims, claimsJSON)
	return p.store
}

// queueRunner collects jobs without running them, so tests can assert the
// response was written before any work happened.
type queueRunner struct {
	jobs []func()
}

func (r *queueRunner) Submit(job func()) { r.jobs = append(r.jobs, job) }

func (r *queueRunner) runAll() {
	for _, job := range r.jobs {
		job()
	}
	r.jobs = nil
}

type recordedNotification struct {
	bookID, status, message string
}

type stubNotifier struct {
	got []recordedNotification
}

func (n *stubNotifier) Notify(_ context.Context, _, bookID, status, message string) {
	n.got = append(n.got, recordedNotification{bookID, status, message})
}

type stubFetcher struct {
	path string
	err  error
}

func (f *stubFetcher) Fetch(context.Context, string, string) (*source.ScratchFile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &source.ScratchFile{Path: f.path}, nil
}

type echoChat struct{}

func (echoChat) Complete(_ context.Context, _, userPrompt string) (string, error) {
	return "SUM " + userPrompt, nil
}

type unitEmbedder struct{}

func (unitEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1}, nil
}

type passChunker struct{}

func (passChunker) Chunk(text string) ([]string, error) { return []string{text}, nil }

type ingestFixture struct {
	store    *stubStore
	provider *stubProvider
	runner   *queueRunner
	notifier *stubNotifier
	handler  *IngestHandler
}

func newIngestFixture(fetcher ingest.Fetcher) *ingestFixture {
	store := newStubStore()
	provider := &stubProvider{store: store}
	runner := &queueRunner{}
	notifier := &stubNotifier{}

	pipeline := ingest.NewPipeline(fetcher, unitEmbedder{}, nil, nil, ingest.Options{})
	summarizer := summary.NewSummarizer(echoChat{}, unitEmbedder{}, passChunker{})
	orchestrator := summary.NewOrchestrator(summarizer, 2)
	dispatcher := dispatch.NewDispatcher(runner, notifier)

	return &ingestFixture{
		store:    store,
		provider: provider,
		runner:   runner,
		notifier: notifier,
		handler:  NewIngestHandler(provider, pipeline, orchestrator, dispatcher),
	}
}

func postJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func writeHandlerTestEPUB(t *testing.T, chapters []string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "book.epub")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)

	add := func(name, content string) {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}

	add("META-INF/container.xml", `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles><rootfile full-path="content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`)

	var manifest, spine strings.Builder
	for i, content := range chapters {
		name := "ch" + string(rune('1'+i)) + ".xhtml"
		manifest.WriteString(`<item id="c` + string(rune('1'+i)) + `" href="` + name + `" media-type="application/xhtml+xml"/>`)
		spine.WriteString(`<itemref idref="c` + string(rune('1'+i)) + `"/>`)
		add(name, "<html><body><p>"+content+"</p></body></html>")
	}
	add("content.opf", `<?xml version="1.0"?>
<package version="3.0" xmlns="http://www.idpf.org/2007/opf">
  <manifest>`+manifest.String()+`</manifest>
  <spine>`+spine.String()+`</spine>
</package>`)

	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestParsePDFRejectsMissingFields(t *testing.T) {
	fx := newIngestFixture(&stubFetcher{err: core.ErrTransfer})

	rec := postJSON(t, fx.handler.ParsePDF, `{"pdf_url":"https://example.com/x.pdf"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, fx.handler.ParsePDF, `{"book_id":"b1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, fx.runner.jobs)
}

func TestParsePDFRejectsInvalidJSON(t *testing.T) {
	fx := newIngestFixture(&stubFetcher{err: core.ErrTransfer})

	rec := postJSON(t, fx.handler.ParsePDF, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParsePDFAcceptsBeforeWorkRuns(t *testing.T) {
	fx := newIngestFixture(&stubFetcher{err: core.ErrTransfer})

	rec := postJSON(t, fx.handler.ParsePDF,
		`{"book_id":"b1","pdf_url":"https://example.com/x.pdf","title":"T","callback_url":"https://cb"}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "b1", resp["book_id"])

	// Nothing has run yet: the job is queued, the store untouched.
	require.Len(t, fx.runner.jobs, 1)
	assert.Empty(t, fx.store.upserted)
	assert.Empty(t, fx.notifier.got)

	fx.runner.runAll()

	// Metadata was recorded, the download failed, and the failure went
	// out through the callback.
	require.Len(t, fx.store.upserted, 1)
	assert.Equal(t, "T", fx.store.upserted[0].Title)
	require.Len(t, fx.notifier.got, 1)
	assert.Equal(t, "error", fx.notifier.got[0].status)
}

func TestParseEbookRejectsUnsupportedFileType(t *testing.T) {
	fx := newIngestFixture(&stubFetcher{err: core.ErrTransfer})

	rec := postJSON(t, fx.handler.ParseEbook,
		`{"book_id":"b1","ebook_url":"https://example.com/x.docx","file_type":"docx"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, fx.runner.jobs)
}

func TestParseEbookRejectsMissingURL(t *testing.T) {
	fx := newIngestFixture(&stubFetcher{err: core.ErrTransfer})

	rec := postJSON(t, fx.handler.ParseEbook, `{"book_id":"b1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseEPUBIngestsAndSummarizes(t *testing.T) {
	path := writeHandlerTestEPUB(t, []string{"First chapter text.", "Second chapter text."})
	fx := newIngestFixture(&stubFetcher{path: path})
	fx.store.book = &models.Book{
		ID:    "b1",
		Title: "A Book",
		TOC:   []models.Section{{Title: "All", StartPage: 1, EndPage: 2}},
	}

	rec := postJSON(t, fx.handler.ParseEPUB,
		`{"book_id":"b1","epub_url":"https://example.com/x.epub","callback_url":"https://cb"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	fx.runner.runAll()

	assert.Equal(t, "First chapter text.", fx.store.pages[1])
	assert.Equal(t, "Second chapter text.", fx.store.pages[2])

	require.Len(t, fx.store.sections, 1)
	require.Len(t, fx.store.sections[0], 1)
	sec := fx.store.sections[0][0]
	assert.Equal(t, "All", sec.SectionTitle)
	assert.Contains(t, sec.Summary, "First chapter text. Second chapter text.")

	require.Len(t, fx.notifier.got, 1)
	assert.Equal(t, "completed", fx.notifier.got[0].status)
	assert.Contains(t, fx.notifier.got[0].message, "1 sections summarized")
}

func TestParseEbookWithoutTOCSkipsSummaries(t *testing.T) {
	path := writeHandlerTestEPUB(t, []string{"Only chapter."})
	fx := newIngestFixture(&stubFetcher{path: path})

	rec := postJSON(t, fx.handler.ParseEbook,
		`{"book_id":"b1","ebook_url":"https://example.com/x.epub","file_type":"epub"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	fx.runner.runAll()

	assert.Equal(t, "Only chapter.", fx.store.pages[1])
	assert.Empty(t, fx.store.sections)
	require.Len(t, fx.notifier.got, 1)
	assert.Equal(t, "completed", fx.notifier.got[0].status)
}

func TestParseEbookChapterLimit(t *testing.T) {
	path := writeHandlerTestEPUB(t, []string{"One.", "Two.", "Three."})
	fx := newIngestFixture(&stubFetcher{path: path})

	rec := postJSON(t, fx.handler.ParseEbook,
		`{"book_id":"b1","ebook_url":"https://example.com/x.epub","file_type":"epub","chapter_limit":2}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	fx.runner.runAll()

	assert.Len(t, fx.store.pages, 2)
}
