// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/pdiddy/inspireq/internal/cache"
	"github.com/pdiddy/inspireq/internal/fetch"
	"github.com/pdiddy/inspireq/internal/resolve/mocks"
	"github.com/pdiddy/inspireq/pkg/types"
)

// fakeInspire serves the literature API endpoints for a fixed set of
// records and counts requests per endpoint kind.
type fakeInspire struct {
	mu     sync.Mutex
	calls  map[string]int
	search map[string]string // preprint -> record id
	lookup map[string]string // preprint -> record id
	docs   map[string]string // record id -> metadata JSON (without links)

	failLatex bool
}

func newFakeInspire() *fakeInspire {
	return &fakeInspire{
		calls:  make(map[string]int),
		search: make(map[string]string),
		lookup: make(map[string]string),
		docs:   make(map[string]string),
	}
}

func (f *fakeInspire) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[kind]
}

func (f *fakeInspire) hit(kind string) {
	f.mu.Lock()
	f.calls[kind]++
	f.mu.Unlock()
}

func (f *fakeInspire) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	base := "http://" + r.Host
	path := r.URL.Path
	switch {
	case path == "/api/literature":
		q := r.URL.Query().Get("q")
		if strings.HasPrefix(q, "refersto:recid:") {
			f.hit("refersto")
			fmt.Fprint(w, `{"hits": {"total": 7, "hits": []}}`)
			return
		}
		f.hit("search")
		preprint := strings.TrimPrefix(q, "find eprint ")
		if id, ok := f.search[preprint]; ok {
			fmt.Fprintf(w, `{"hits": {"total": 1, "hits": [{"id": "%s", "links": {"json": "%s/api/literature/%s?format=json"}}]}}`, id, base, id)
			return
		}
		fmt.Fprint(w, `{"hits": {"total": 0, "hits": []}}`)
	case strings.HasPrefix(path, "/api/arxiv/"):
		f.hit("lookup")
		if id, ok := f.lookup[strings.TrimPrefix(path, "/api/arxiv/")]; ok {
			fmt.Fprintf(w, `{"id": %s, "metadata": {}}`, id)
			return
		}
		http.NotFound(w, r)
	case strings.HasPrefix(path, "/api/literature/"):
		f.hit("document")
		id := strings.TrimPrefix(path, "/api/literature/")
		meta, ok := f.docs[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `{"id": %s, "created": "2023-01-02T10:00:00+00:00", "updated": "2023-05-01T00:00:00+00:00", "metadata": %s, "links": {"latex-us": "%s/latex/%s", "bibtex": "%s/bibtex/%s"}}`,
			id, meta, base, id, base, id)
	case strings.HasPrefix(path, "/latex/"):
		f.hit("latex")
		if f.failLatex {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		io.WriteString(w, `%\cite{Author:2023abc}`)
	case strings.HasPrefix(path, "/bibtex/"):
		f.hit("bibtex")
		io.WriteString(w, `@article{Author:2023abc}`)
	default:
		http.NotFound(w, r)
	}
}

const sampleMetadata = `{
	"titles": [{"title": "Jet quenching at the LHC"}],
	"arxiv_eprints": [{"value": "2301.00001"}],
	"dois": [{"value": "10.1103/PhysRevC.107.000001"}],
	"preprint_date": "2023-01-01",
	"imprints": [{"date": "2023-04-01"}],
	"publication_info": [{"journal_title": "Phys.Rev.C", "journal_volume": "107", "artid": "000001", "year": 2023}],
	"citation_count": 12,
	"citation_count_without_self_citations": 9,
	"citeable": true
}`

func newTestResolver(t *testing.T, ts *httptest.Server, dir string) (*Resolver, *fetch.Fetcher) {
	t.Helper()
	c, err := cache.Open(dir)
	require.NoError(t, err)
	f := fetch.New(types.DefaultConfig(), c)
	f.Client = ts.Client()
	r := New(f, types.InspireConfig{APIBase: ts.URL + "/api", WebBase: ts.URL})
	return r, f
}

func TestResolveEndToEnd(t *testing.T) {
	fake := newFakeInspire()
	fake.search["2301.00001"] = "1234567"
	fake.docs["1234567"] = sampleMetadata
	ts := httptest.NewServer(fake)
	defer ts.Close()

	dir := t.TempDir()
	r, _ := newTestResolver(t, ts, dir)

	rec, err := r.Resolve(context.Background(), Classify("2301.00001"))
	require.NoError(t, err)
	require.True(t, rec.Valid)

	assert.Equal(t, "1234567", rec.RemoteID)
	require.NotNil(t, rec.Fields.Title)
	assert.Equal(t, "Jet quenching at the LHC", *rec.Fields.Title)
	assert.Equal(t, "2301.00001", *rec.Fields.ArxivID)
	assert.Equal(t, "1234567", *rec.Fields.InspireID)
	assert.Equal(t, "https://doi.org/10.1103/PhysRevC.107.000001", *rec.Fields.URLDOI)
	assert.Equal(t, ts.URL+"/literature/1234567", *rec.Fields.URLRecord)
	assert.Equal(t, ts.URL+"/api/literature/1234567?format=json", *rec.Fields.URLJSON)
	assert.Equal(t, "https://arxiv.org/abs/2301.00001", *rec.Fields.URLArxiv)
	assert.Equal(t, "Phys.Rev.C 107 000001 (2023)", *rec.Fields.JournalInfo)
	assert.Equal(t, "2023-04-01", *rec.Fields.PubDate)
	assert.Equal(t, "2023-01-02", *rec.Fields.CreatedDateNoT)
	assert.Equal(t, "2023-01-01", *rec.Fields.DateGuess)
	assert.Equal(t, 12, *rec.Fields.CitationCount)
	assert.Equal(t, 9, *rec.Fields.CitationCountWSC)
	assert.Equal(t, 7, *rec.Fields.RefersToCount)
	assert.True(t, *rec.Fields.Citeable)
	assert.Equal(t, `%\cite{Author:2023abc}`, *rec.Fields.LatexUS)
	assert.Equal(t, `@article{Author:2023abc}`, *rec.Fields.BibTeX)

	assert.Equal(t, 1, fake.count("search"))
	assert.Equal(t, 0, fake.count("lookup"))
	assert.Equal(t, 1, fake.count("document"))

	// A second run over the same cache directory issues no requests.
	again, _ := newTestResolver(t, ts, dir)
	rec2, err := again.Resolve(context.Background(), Classify("2301.00001"))
	require.NoError(t, err)
	assert.Equal(t, *rec.Fields.Title, *rec2.Fields.Title)
	assert.Equal(t, 1, fake.count("search"))
	assert.Equal(t, 1, fake.count("document"))
	assert.Equal(t, 1, fake.count("latex"))
	assert.Equal(t, 1, fake.count("refersto"))
}

func TestResolveFallbackToLookup(t *testing.T) {
	fake := newFakeInspire()
	fake.lookup["2302.99999"] = "7654321"
	fake.docs["7654321"] = `{"titles": [{"title": "Only via lookup"}], "arxiv_eprints": [{"value": "2302.99999"}]}`
	ts := httptest.NewServer(fake)
	defer ts.Close()

	r, _ := newTestResolver(t, ts, t.TempDir())
	rec, err := r.Resolve(context.Background(), Classify("2302.99999"))
	require.NoError(t, err)

	assert.Equal(t, "7654321", rec.RemoteID)
	assert.Equal(t, 1, fake.count("search"), "search must be tried first")
	assert.Equal(t, 1, fake.count("lookup"))

	direct, err := r.Resolve(context.Background(), Classify("7654321"))
	require.NoError(t, err)
	assert.Equal(t, direct.RemoteID, rec.RemoteID)
	assert.Equal(t, 1, fake.count("search"), "record ids resolve without searching")
}

func TestResolveHintSkipsLookup(t *testing.T) {
	fake := newFakeInspire()
	fake.docs["555"] = `{"titles": [{"title": "Hinted"}]}`
	ts := httptest.NewServer(fake)
	defer ts.Close()

	r, _ := newTestResolver(t, ts, t.TempDir())
	rec, err := r.Resolve(context.Background(), ParseLine("2303.00003 inspire_id=555 plenary talk"))
	require.NoError(t, err)

	assert.Equal(t, "555", rec.RemoteID)
	assert.Equal(t, 1, fake.count("search"))
	assert.Equal(t, 0, fake.count("lookup"))
	// The document carries no preprint id, so the input is kept.
	assert.Equal(t, "2303.00003", *rec.Fields.ArxivID)
}

func TestResolveUnresolved(t *testing.T) {
	fake := newFakeInspire()
	ts := httptest.NewServer(fake)
	defer ts.Close()

	r, _ := newTestResolver(t, ts, t.TempDir())
	rec, err := r.Resolve(context.Background(), Classify("2304.00004"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolved)
	require.NotNil(t, rec)
	assert.False(t, rec.Valid)
	assert.Empty(t, rec.RemoteID)
	assert.Equal(t, 0, fake.count("document"))
}

func TestResolveMissingTitleIsInvalid(t *testing.T) {
	fake := newFakeInspire()
	fake.docs["42"] = `{"dois": []}`
	ts := httptest.NewServer(fake)
	defer ts.Close()

	r, _ := newTestResolver(t, ts, t.TempDir())
	rec, err := r.Resolve(context.Background(), Classify("42"))
	require.NoError(t, err)
	assert.False(t, rec.Valid)
	assert.Equal(t, FailedTitle, *rec.Fields.Title)
	assert.Nil(t, rec.Fields.DOI)
	assert.Equal(t, *rec.Fields.URLRecord, *rec.Fields.URLDOI)
	assert.Equal(t, NoJournal, *rec.Fields.JournalInfo)
	assert.Equal(t, "2023-01-02", *rec.Fields.DateGuess)
}

func TestResolveAuxiliaryFailureIsNonFatal(t *testing.T) {
	fake := newFakeInspire()
	fake.docs["42"] = sampleMetadata
	fake.failLatex = true
	ts := httptest.NewServer(fake)
	defer ts.Close()

	r, _ := newTestResolver(t, ts, t.TempDir())
	rec, err := r.Resolve(context.Background(), Classify("42"))
	require.NoError(t, err)
	assert.True(t, rec.Valid)
	assert.Nil(t, rec.Fields.LatexUS)
	require.NotNil(t, rec.Fields.BibTeX)
}

func TestResolveDocumentFailure(t *testing.T) {
	fake := newFakeInspire()
	ts := httptest.NewServer(fake)
	defer ts.Close()

	r, _ := newTestResolver(t, ts, t.TempDir())
	rec, err := r.Resolve(context.Background(), Classify("999"))
	require.Error(t, err)
	assert.True(t, fetch.IsNotFound(err))
	assert.Equal(t, "999", rec.RemoteID)
	assert.False(t, rec.Valid)
}

func TestResolveStrategyOrderWithMock(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mocks.NewMockFetcher(ctrl)
	r := New(m, types.InspireConfig{APIBase: "https://api.test", WebBase: "https://web.test"})

	ctx := context.Background()
	gomock.InOrder(
		m.EXPECT().Get(ctx, r.SearchURL("2305.00005")).Return([]byte(`{"hits": {"hits": []}}`), nil),
		m.EXPECT().Get(ctx, r.LookupURL("2305.00005")).Return([]byte(`{"hits": {"hits": [{"id": 31337}]}}`), nil),
		m.EXPECT().Get(ctx, r.DocumentURL("31337")).Return([]byte(`{"metadata": {"titles": [{"title": "Mocked"}]}}`), nil),
		m.EXPECT().Get(ctx, r.RefersToURL("31337")).Return(nil, errors.New("unreachable")),
	)

	rec, err := r.Resolve(ctx, Classify("2305.00005"))
	require.NoError(t, err)
	assert.Equal(t, "31337", rec.RemoteID)
	assert.Equal(t, "Mocked", *rec.Fields.Title)
	assert.Nil(t, rec.Fields.RefersToCount)
	assert.Nil(t, rec.Fields.LatexUS)
	assert.Nil(t, rec.Fields.BibTeX)
}

func TestResolveSearchErrorFallsThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mocks.NewMockFetcher(ctrl)
	r := New(m, types.InspireConfig{APIBase: "https://api.test"})

	ctx := context.Background()
	searchErr := &fetch.TransportError{URL: r.SearchURL("2306.00006"), Attempts: 2, Err: io.ErrUnexpectedEOF}
	gomock.InOrder(
		m.EXPECT().Get(ctx, r.SearchURL("2306.00006")).Return(nil, searchErr),
		m.EXPECT().Get(ctx, r.LookupURL("2306.00006")).Return(nil, &fetch.StatusError{StatusCode: http.StatusNotFound}),
	)

	_, err := r.Resolve(ctx, Classify("2306.00006"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolved)
}

func TestResolveUsesFetcherFor(t *testing.T) {
	ctrl := gomock.NewController(t)
	shared := mocks.NewMockFetcher(ctrl)
	scoped := mocks.NewMockFetcher(ctrl)

	r := New(shared, types.InspireConfig{APIBase: "https://api.test"})
	r.FetcherFor = func(id types.Identifier) Fetcher {
		if id.Value == "77" {
			return scoped
		}
		return nil
	}

	scoped.EXPECT().Get(gomock.Any(), r.DocumentURL("77")).Return([]byte(`{"metadata": {"titles": [{"title": "t"}]}}`), nil)
	scoped.EXPECT().Get(gomock.Any(), r.RefersToURL("77")).Return([]byte(`{"hits": {"total": 0}}`), nil)

	rec, err := r.Resolve(context.Background(), Classify("77"))
	require.NoError(t, err)
	assert.Equal(t, 0, *rec.Fields.RefersToCount)
}

func TestCrossCheckPreprint(t *testing.T) {
	logger := zerolog.Nop()
	tests := []struct {
		name    string
		id      types.Identifier
		fromDoc *string
		want    *string
	}{
		{"both agree", Classify("2301.00001"), types.StringPtr("2301.00001"), types.StringPtr("2301.00001")},
		{"document wins", Classify("2301.00001"), types.StringPtr("2301.00002"), types.StringPtr("2301.00002")},
		{"document missing", Classify("2301.00001"), nil, types.StringPtr("2301.00001")},
		{"record input takes document", Classify("1234567"), types.StringPtr("2301.00001"), types.StringPtr("2301.00001")},
		{"neither", Classify("1234567"), nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, crossCheckPreprint(tt.id, tt.fromDoc, &logger))
		})
	}
}
