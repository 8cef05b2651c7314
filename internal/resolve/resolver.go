// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve maps starting identifiers to canonical literature records.
// A preprint identifier is looked up through the search endpoint, then an
// attached inspire_id hint, then the preprint lookup endpoint; a record
// identifier resolves immediately. Once resolved, the record document and
// its auxiliary citation texts are fetched and the derived fields are
// extracted from the document.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/pdiddy/inspireq/internal/jsonq"
	"github.com/pdiddy/inspireq/internal/logging"
	"github.com/pdiddy/inspireq/pkg/types"
)

// ErrUnresolved is returned when no strategy yields a record id.
var ErrUnresolved = errors.New("no record found")

// FailedTitle is the title given to records whose document has none.
const FailedTitle = "* Failed title parsing *"

// DefaultDateGuess is the last fallback of the date guess chain.
const DefaultDateGuess = "1977-11-16"

// Strategy names the step of the resolution state machine that produced a
// record id.
type Strategy string

const (
	StrategyDirect Strategy = "direct"
	StrategySearch Strategy = "search"
	StrategyHint   Strategy = "hint"
	StrategyLookup Strategy = "lookup"
)

// Resolutions counts resolution outcomes by strategy ("unresolved" on failure).
var Resolutions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "inspireq_resolutions_total",
		Help: "Total number of identifier resolutions by strategy",
	},
	[]string{"strategy"},
)

// Resolver resolves identifiers against one literature database.
type Resolver struct {
	Fetcher Fetcher

	// FetcherFor, when set, selects the fetcher per identifier (e.g. one
	// cache directory per record).
	FetcherFor func(types.Identifier) Fetcher

	APIBase string // e.g. https://inspirehep.net/api
	WebBase string // e.g. https://inspirehep.net
}

// New returns a Resolver for the endpoints in cfg.
func New(f Fetcher, cfg types.InspireConfig) *Resolver {
	api := cfg.APIBase
	if api == "" {
		api = types.DefaultAPIBase
	}
	web := cfg.WebBase
	if web == "" {
		web = types.DefaultWebBase
	}
	return &Resolver{
		Fetcher: f,
		APIBase: strings.TrimRight(api, "/"),
		WebBase: strings.TrimRight(web, "/"),
	}
}

// SearchURL returns the most-recent-first search for a preprint id.
func (r *Resolver) SearchURL(preprint string) string {
	return fmt.Sprintf("%s/literature?sort=mostrecent&size=1&page=1&q=find%%20eprint%%20%s", r.APIBase, preprint)
}

// LookupURL returns the preprint-to-record lookup endpoint.
func (r *Resolver) LookupURL(preprint string) string {
	return fmt.Sprintf("%s/arxiv/%s", r.APIBase, preprint)
}

// DocumentURL returns the JSON metadata document of a record.
func (r *Resolver) DocumentURL(remoteID string) string {
	return fmt.Sprintf("%s/literature/%s?format=json", r.APIBase, url.PathEscape(remoteID))
}

// RefersToURL returns the search for records citing remoteID.
func (r *Resolver) RefersToURL(remoteID string) string {
	return fmt.Sprintf("%s/literature?q=refersto:recid:%s", r.APIBase, remoteID)
}

// RecordURL returns the human-facing page of a record.
func (r *Resolver) RecordURL(remoteID string) string {
	return fmt.Sprintf("%s/literature/%s", r.WebBase, remoteID)
}

// Resolve runs the resolution state machine for id and populates the
// record. The returned record is never nil. An error means the record is
// unusable: it wraps ErrUnresolved when no id was found, or the fetch error
// of the metadata document. Failures of auxiliary documents are logged and
// leave their fields nil.
func (r *Resolver) Resolve(ctx context.Context, id types.Identifier) (*types.ResolvedRecord, error) {
	rec := &types.ResolvedRecord{Identifier: id}
	log := logging.NewLogger("resolve").With().Str("identifier", id.String()).Logger()
	f := r.fetcherFor(id)

	remoteID, strategy, err := r.remoteID(ctx, f, id, &log)
	if err != nil {
		Resolutions.WithLabelValues("unresolved").Inc()
		log.Warn().Err(err).Msg("identifier unresolved")
		return rec, err
	}
	Resolutions.WithLabelValues(string(strategy)).Inc()
	rec.RemoteID = remoteID
	log = log.With().Str("remote_id", remoteID).Logger()
	log.Debug().Str("strategy", string(strategy)).Msg("resolved")

	docURL := r.DocumentURL(remoteID)
	body, err := f.Get(ctx, docURL)
	if err != nil {
		return rec, fmt.Errorf("fetching record %s: %w", remoteID, err)
	}
	doc, err := jsonq.Parse(body)
	if err != nil {
		return rec, fmt.Errorf("parsing record %s: %w", remoteID, err)
	}
	rec.Document = doc
	rec.Valid = true

	r.extract(rec, docURL, &log)
	rec.Fields.LatexUS = r.fetchText(ctx, f, doc.Get("links.latex-us"), "latex-us", &log)
	rec.Fields.BibTeX = r.fetchText(ctx, f, doc.Get("links.bibtex"), "bibtex", &log)
	rec.Fields.RefersToCount = r.refersTo(ctx, f, remoteID, &log)

	return rec, nil
}

func (r *Resolver) fetcherFor(id types.Identifier) Fetcher {
	if r.FetcherFor != nil {
		if f := r.FetcherFor(id); f != nil {
			return f
		}
	}
	return r.Fetcher
}

// remoteID walks the fallback chain. Fetch errors of one step are logged and
// the next step is tried; the last such error is reported with
// ErrUnresolved.
func (r *Resolver) remoteID(ctx context.Context, f Fetcher, id types.Identifier, log *zerolog.Logger) (string, Strategy, error) {
	if id.Namespace == types.NamespaceRemoteRecord {
		if id.Value == "" {
			return "", "", ErrUnresolved
		}
		return id.Value, StrategyDirect, nil
	}
	if id.Value == "" {
		if hint, ok := id.Hint(HintRemoteID); ok {
			return hint, StrategyHint, nil
		}
		return "", "", fmt.Errorf("%w: empty identifier", ErrUnresolved)
	}

	var lastErr error

	found, err := r.query(ctx, f, r.SearchURL(id.Value))
	if err != nil {
		log.Warn().Err(err).Msg("search failed")
		lastErr = err
	} else if found != "" {
		return found, StrategySearch, nil
	}

	if hint, ok := id.Hint(HintRemoteID); ok {
		return hint, StrategyHint, nil
	}

	found, err = r.query(ctx, f, r.LookupURL(id.Value))
	if err != nil {
		log.Debug().Err(err).Msg("preprint lookup failed")
		lastErr = err
	} else if found != "" {
		return found, StrategyLookup, nil
	}

	if lastErr != nil && ctx.Err() == nil {
		return "", "", fmt.Errorf("%w for %s: %w", ErrUnresolved, id.Value, lastErr)
	}
	if ctx.Err() != nil {
		return "", "", fmt.Errorf("%w for %s: %w", ErrUnresolved, id.Value, ctx.Err())
	}
	return "", "", fmt.Errorf("%w for %s", ErrUnresolved, id.Value)
}

// query fetches a search-style response and returns the record id it
// names. Both the search envelope (hits.hits.0.id) and a bare record
// (top-level id) are accepted. An empty id with a nil error means no hit.
func (r *Resolver) query(ctx context.Context, f Fetcher, u string) (string, error) {
	body, err := f.Get(ctx, u)
	if err != nil {
		return "", err
	}
	doc, err := jsonq.Parse(body)
	if err != nil {
		return "", err
	}
	if v, ok := doc.Get("hits.hits.0.id").Text(); ok && v != "" {
		return v, nil
	}
	if v, ok := doc.Key("id").Text(); ok && v != "" {
		return v, nil
	}
	return "", nil
}

// extract fills the derived fields from rec.Document.
func (r *Resolver) extract(rec *types.ResolvedRecord, docURL string, log *zerolog.Logger) {
	doc := rec.Document
	fl := &rec.Fields

	fl.InspireID = types.StringPtr(rec.RemoteID)
	fl.URLRecord = types.StringPtr(r.RecordURL(rec.RemoteID))
	fl.URLInspire = fl.URLRecord
	if u, ok := rec.Identifier.Hint(HintURLInspire); ok {
		fl.URLInspire = types.StringPtr(u)
	}
	fl.URLJSON = types.StringPtr(docURL)

	fl.DOI = doc.Get("metadata.dois.0.value").StringPtr()
	if fl.DOI != nil {
		fl.URLDOI = types.StringPtr("https://doi.org/" + *fl.DOI)
	} else {
		fl.URLDOI = fl.URLRecord
	}

	fl.JournalInfo = types.StringPtr(JournalString(doc))

	fl.ArxivID = crossCheckPreprint(rec.Identifier, doc.Get("metadata.arxiv_eprints.0.value").StringPtr(), log)
	if fl.ArxivID != nil {
		fl.URLArxiv = types.StringPtr(arxivAbsPrefix + *fl.ArxivID)
	}

	fl.PreprintDate = doc.Get("metadata.preprint_date").StringPtr()
	fl.PubDate = doc.Get("metadata.imprints.0.date").StringPtr()
	fl.CreatedDate = doc.Get("created").StringPtr()
	if fl.CreatedDate != nil {
		day, _, _ := strings.Cut(*fl.CreatedDate, "T")
		fl.CreatedDateNoT = types.StringPtr(day)
	}
	fl.UpdatedDate = doc.Get("updated").StringPtr()
	fl.LegacyCreationDate = doc.Get("metadata.legacy_creation_date").StringPtr()
	fl.DateGuess = types.StringPtr(DefaultDateGuess)
	for _, d := range []*string{fl.PreprintDate, fl.CreatedDateNoT, fl.LegacyCreationDate} {
		if d != nil && *d != "" {
			fl.DateGuess = types.StringPtr(*d)
			break
		}
	}

	fl.CitationCount = doc.Get("metadata.citation_count").IntPtr()
	fl.CitationCountWSC = doc.Get("metadata.citation_count_without_self_citations").IntPtr()
	fl.Citeable = doc.Get("metadata.citeable").BoolPtr()

	fl.Title = doc.Get("metadata.titles.0.title").StringPtr()
	if fl.Title == nil {
		fl.Title = types.StringPtr(FailedTitle)
		rec.Valid = false
		log.Warn().Msg("record has no title")
	}
}

// crossCheckPreprint reconciles the caller's preprint id with the one the
// document carries. The document's value wins when both are present and
// differ.
func crossCheckPreprint(id types.Identifier, fromDoc *string, log *zerolog.Logger) *string {
	var input string
	if id.Namespace != types.NamespaceRemoteRecord {
		input = id.Value
	}
	switch {
	case fromDoc == nil || *fromDoc == "":
		if input == "" {
			return nil
		}
		return types.StringPtr(input)
	case input == "":
		return fromDoc
	case input != *fromDoc:
		log.Warn().Str("input", input).Str("document", *fromDoc).Msg("preprint id differs from record, using record value")
		return fromDoc
	default:
		return fromDoc
	}
}

// fetchText fetches an auxiliary text document whose URL is link. Failures
// are logged and yield nil.
func (r *Resolver) fetchText(ctx context.Context, f Fetcher, link jsonq.Value, name string, log *zerolog.Logger) *string {
	u, ok := link.String()
	if !ok || u == "" {
		return nil
	}
	body, err := f.Get(ctx, u)
	if err != nil {
		log.Warn().Str("document", name).Str("url", u).Err(err).Msg("auxiliary document unavailable")
		return nil
	}
	return types.StringPtr(string(body))
}

// refersTo returns the number of records citing remoteID, or nil.
func (r *Resolver) refersTo(ctx context.Context, f Fetcher, remoteID string, log *zerolog.Logger) *int {
	u := r.RefersToURL(remoteID)
	body, err := f.Get(ctx, u)
	if err != nil {
		log.Warn().Str("url", u).Err(err).Msg("refersto count unavailable")
		return nil
	}
	doc, err := jsonq.Parse(body)
	if err != nil {
		log.Warn().Str("url", u).Err(err).Msg("refersto response unparsable")
		return nil
	}
	return doc.Get("hits.total").IntPtr()
}
