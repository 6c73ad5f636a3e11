package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/maltedev/offer-extractor/internal/batch"
	"github.com/maltedev/offer-extractor/internal/fetch"
	"github.com/maltedev/offer-extractor/internal/models"
	"github.com/maltedev/offer-extractor/internal/parser"
	"github.com/maltedev/offer-extractor/internal/scraper"
	"github.com/maltedev/offer-extractor/internal/sites"
)

const defaultMaxBody = 10 << 20

type Handlers struct {
	scraper *scraper.Service
	batch   *batch.Runner
	workers int
	maxBody int64
	logger  *slog.Logger
}

// Options tunes request handling. Zero values pick defaults.
type Options struct {
	Workers      int
	MaxBodyBytes int64
}

func NewHandlers(service *scraper.Service, opts Options, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBody
	}
	return &Handlers{
		scraper: service,
		batch:   batch.NewRunner(service.Registry(), opts.Workers, logger),
		workers: opts.Workers,
		maxBody: opts.MaxBodyBytes,
		logger:  logger.With("component", "api"),
	}
}

// SiteInfo describes one supported site.
type SiteInfo struct {
	ID       string         `json:"id"`
	Source   string         `json:"source"`
	Country  models.Country `json:"country"`
	Currency string         `json:"currency"`
	Browser  bool           `json:"browser"`
}

// ExtractResponse is the result envelope tagged with the id of the
// extraction that produced it.
type ExtractResponse struct {
	ID   string `json:"id"`
	Site string `json:"site"`
	models.Result
}

type BatchRequest struct {
	Jobs []batch.Job `json:"jobs"`
}

type BatchResponse struct {
	ID       string          `json:"id"`
	Outcomes []batch.Outcome `json:"outcomes"`
}

// SearchRequest names either one site or a country whose sites are all
// searched. Limit caps the ranked offers and Currency asks for converted
// prices.
type SearchRequest struct {
	Site     string `json:"site"`
	Country  string `json:"country"`
	Query    string `json:"query"`
	Limit    int    `json:"limit,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// SearchResponse carries the per-site results and every offer ranked
// cheapest first.
type SearchResponse struct {
	ID      string           `json:"id"`
	Query   string           `json:"query"`
	Country models.Country   `json:"country,omitempty"`
	Results []models.Result  `json:"results"`
	Offers  []models.Product `json:"offers"`
}

// PreviewRequest names a product page. When HTML is set the page is not
// fetched.
type PreviewRequest struct {
	URL  string `json:"url"`
	HTML string `json:"html,omitempty"`
}

type PreviewResponse struct {
	ID string `json:"id"`
	models.Preview
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"sites":  len(h.scraper.Registry().IDs()),
	})
}

// ListSites returns every registered site profile.
func (h *Handlers) ListSites(w http.ResponseWriter, r *http.Request) {
	profiles := h.scraper.Registry().Profiles()
	out := make([]SiteInfo, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, SiteInfo{
			ID:       p.ID,
			Source:   p.SourceName(),
			Country:  p.Country,
			Currency: p.Currency,
			Browser:  p.Browser,
		})
	}
	h.respondJSON(w, http.StatusOK, out)
}

// Extract runs a site's extractor over the raw markup in the request body.
// The body is decoded honouring its Content-Type charset.
func (h *Handlers) Extract(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	html, err := fetch.DecodeWithContentType(raw, r.Header.Get("Content-Type"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.scraper.Extract(site, html)
	if err != nil {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}

	id := uuid.NewString()
	h.logger.Info("extracted page", "id", id, "site", site, "products", result.Total)
	h.respondJSON(w, http.StatusOK, ExtractResponse{ID: id, Site: site, Result: result})
}

// ExtractBatch extracts every job in the request concurrently.
func (h *Handlers) ExtractBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody)).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Jobs) == 0 {
		h.respondError(w, http.StatusBadRequest, "jobs is required")
		return
	}

	outcomes, err := h.batch.Run(r.Context(), req.Jobs)
	if err != nil {
		h.logger.Error("batch extraction failed", "error", err)
		h.respondError(w, http.StatusServiceUnavailable, "batch extraction cancelled")
		return
	}

	h.respondJSON(w, http.StatusOK, BatchResponse{ID: uuid.NewString(), Outcomes: outcomes})
}

// Search fetches live result pages and extracts them.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		h.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	if (req.Site == "") == (req.Country == "") {
		h.respondError(w, http.StatusBadRequest, "exactly one of site or country is required")
		return
	}

	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Currency != "" && !parser.IsCurrencyCode(req.Currency) {
		h.respondError(w, http.StatusBadRequest, "currency must be a 3-letter code")
		return
	}
	if req.Limit < 0 {
		h.respondError(w, http.StatusBadRequest, "limit cannot be negative")
		return
	}

	resp := SearchResponse{ID: uuid.NewString(), Query: req.Query}

	if req.Site != "" {
		result, err := h.scraper.Search(r.Context(), req.Site, req.Query)
		switch {
		case errors.Is(err, sites.ErrUnknownSite):
			h.respondError(w, http.StatusNotFound, err.Error())
			return
		case errors.Is(err, scraper.ErrInvalidQuery):
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			h.logger.Error("search failed", "site", req.Site, "error", err)
			resp.Results = []models.Result{h.failed(req.Site, err)}
			resp.Offers = []models.Product{}
			h.respondJSON(w, http.StatusBadGateway, resp)
			return
		}
		if req.Currency != "" {
			h.scraper.Convert(r.Context(), result.Products, req.Currency)
		}
		resp.Results = []models.Result{result}
		resp.Offers = models.RankOffers(resp.Results, req.Limit)
		h.respondJSON(w, http.StatusOK, resp)
		return
	}

	country, ok := models.ParseCountry(req.Country)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "unsupported country")
		return
	}

	found, err := h.scraper.SearchCountry(r.Context(), country, req.Query, scraper.SearchOptions{
		Workers:  h.workers,
		Limit:    req.Limit,
		Currency: req.Currency,
	})
	switch {
	case errors.Is(err, sites.ErrUnknownSite):
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, scraper.ErrInvalidQuery):
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("country search failed", "country", country, "error", err)
		h.respondError(w, http.StatusServiceUnavailable, "search cancelled")
		return
	}

	resp.Country = found.Country
	resp.Results = found.Results
	resp.Offers = found.Offers
	h.respondJSON(w, http.StatusOK, resp)
}

// Preview summarizes a single product page, fetching it unless the request
// carries its markup.
func (h *Handlers) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody)).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		preview models.Preview
		err     error
	)
	if req.HTML != "" {
		preview, err = h.scraper.PreviewHTML(req.URL, req.HTML)
	} else {
		preview, err = h.scraper.Preview(r.Context(), req.URL)
	}

	switch {
	case errors.Is(err, scraper.ErrInvalidURL):
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("preview failed", "url", req.URL, "error", err)
		h.respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, PreviewResponse{ID: uuid.NewString(), Preview: preview})
}

func (h *Handlers) failed(site string, err error) models.Result {
	source := site
	if e, getErr := h.scraper.Registry().Get(site); getErr == nil {
		source = e.Profile().SourceName()
	}
	return models.Failed(source, scraper.ErrorCode(err), err.Error())
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
