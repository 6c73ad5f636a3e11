package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/maltedev/offer-extractor/internal/batch"
	"github.com/maltedev/offer-extractor/internal/fetch"
	"github.com/maltedev/offer-extractor/internal/scraper"
	"github.com/maltedev/offer-extractor/internal/sites"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const idealoPage = `<ul><li class="productOffers-listItem">
	<span class="productOffers-listItemTitleInner">Sony WH-1000XM6 Negro</span>
	<a class="productOffers-listItemOfferPrice" href="/relocator?offer=1">349,00 €</a>
	<span class="productOffers-listItemShop">PcComponentes</span>
</li></ul>`

// stubFetcher serves pages by URL and fails for anything else.
type stubFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	urls  []string
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (*fetch.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.urls = append(f.urls, url)
	html, ok := f.pages[url]
	if !ok {
		return nil, fetch.ErrFetchFailed
	}
	return &fetch.Page{URL: url, StatusCode: http.StatusOK, HTML: html}, nil
}

func (f *stubFetcher) Close() error { return nil }

func newServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()

	service := scraper.NewService(sites.DefaultRegistry(slog.Default()), &stubFetcher{pages: pages}, nil, slog.Default())
	srv := httptest.NewServer(NewRouter(NewHandlers(service, Options{Workers: 2, MaxBodyBytes: 1 << 16}, slog.Default()), 0))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, contentType string, body []byte) *http.Response {
	t.Helper()

	resp, err := http.Post(url, contentType, bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthAndSites(t *testing.T) {
	srv := newServer(t, nil)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	health := decode[map[string]any](t, resp)
	assert.Equal(t, "ok", health["status"])
	assert.EqualValues(t, 6, health["sites"])

	resp, err = http.Get(srv.URL + "/api/v1/sites")
	require.NoError(t, err)
	defer resp.Body.Close()
	list := decode[[]SiteInfo](t, resp)
	require.Len(t, list, 6)
	assert.Equal(t, "acharpromo", list[0].ID)
	assert.Equal(t, "achar.promo", list[0].Source)
	assert.Equal(t, "BRL", list[0].Currency)
}

func TestExtract(t *testing.T) {
	srv := newServer(t, nil)

	resp := post(t, srv.URL+"/api/v1/extract/idealo", "text/html; charset=utf-8", []byte(idealoPage))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[ExtractResponse](t, resp)
	assert.NotEmpty(t, body.ID)
	assert.Equal(t, "idealo", body.Site)
	assert.Equal(t, "idealo.es", body.Source)
	require.Equal(t, 1, body.Total)
	assert.Equal(t, "349.00", body.Products[0].Price)
	assert.Equal(t, "PcComponentes", body.Products[0].Store)
}

func TestExtractDecodesDeclaredCharset(t *testing.T) {
	srv := newServer(t, nil)

	page := strings.Replace(idealoPage, "Sony WH-1000XM6 Negro", "Auriculares Se\xf1al", 1)
	page = strings.Replace(page, "349,00 €", "349,00 EUR", 1)

	resp := post(t, srv.URL+"/api/v1/extract/idealo", "text/html; charset=iso-8859-1", []byte(page))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[ExtractResponse](t, resp)
	require.Equal(t, 1, body.Total)
	assert.Equal(t, "Auriculares Señal", body.Products[0].Name)
}

func TestExtractErrors(t *testing.T) {
	srv := newServer(t, nil)

	resp := post(t, srv.URL+"/api/v1/extract/amazon", "text/html", []byte("<p></p>"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, decode[map[string]string](t, resp)["error"], "unknown site")

	resp = post(t, srv.URL+"/api/v1/extract/idealo", "text/html", bytes.Repeat([]byte("a"), 1<<16+1024))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp = post(t, srv.URL+"/api/v1/extract/idealo", "text/html", []byte{0x1f, 0x8b, 0x00})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExtractBatch(t *testing.T) {
	srv := newServer(t, nil)

	payload, err := json.Marshal(BatchRequest{Jobs: []batch.Job{
		{ID: "a", Site: "idealo", HTML: idealoPage},
		{ID: "b", Site: "nowhere", HTML: idealoPage},
	}})
	require.NoError(t, err)

	resp := post(t, srv.URL+"/api/v1/extract/batch", "application/json", payload)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[BatchResponse](t, resp)
	assert.NotEmpty(t, body.ID)
	require.Len(t, body.Outcomes, 2)
	assert.Equal(t, "a", body.Outcomes[0].JobID)
	assert.Equal(t, 1, body.Outcomes[0].Result.Total)
	assert.Equal(t, "b", body.Outcomes[1].JobID)
	assert.Contains(t, body.Outcomes[1].Error, "unknown site")

	resp = post(t, srv.URL+"/api/v1/extract/batch", "application/json", []byte(`{"jobs":[]}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearch(t *testing.T) {
	srv := newServer(t, map[string]string{
		"https://www.idealo.es/resultados.html?q=sony": idealoPage,
	})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantTotals []int
		wantCode   string
	}{
		{"single site", `{"site":"idealo","query":"sony"}`, http.StatusOK, []int{1}, ""},
		{"country", `{"country":"es","query":"sony"}`, http.StatusOK, []int{1, 0}, "fetch_failed"},
		{"fetch failure", `{"site":"kelkoo","query":"sony"}`, http.StatusBadGateway, []int{0}, "fetch_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL+"/api/v1/search", "application/json", []byte(tt.body))

			require.Equal(t, tt.wantStatus, resp.StatusCode)
			body := decode[SearchResponse](t, resp)
			assert.Equal(t, "sony", body.Query)
			require.Len(t, body.Results, len(tt.wantTotals))
			for i, total := range tt.wantTotals {
				assert.Equal(t, total, body.Results[i].Total)
			}
			if tt.wantCode != "" {
				last := body.Results[len(body.Results)-1]
				require.NotNil(t, last.Error)
				assert.Equal(t, tt.wantCode, last.Error.Code)
			}
		})
	}
}

func TestSearchRejectsBadRequests(t *testing.T) {
	srv := newServer(t, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"not json", `{`, http.StatusBadRequest},
		{"no query", `{"site":"idealo"}`, http.StatusBadRequest},
		{"site and country", `{"site":"idealo","country":"ES","query":"x"}`, http.StatusBadRequest},
		{"neither", `{"query":"x"}`, http.StatusBadRequest},
		{"unknown country", `{"country":"JP","query":"x"}`, http.StatusBadRequest},
		{"country without sites", `{"country":"GB","query":"x"}`, http.StatusNotFound},
		{"unknown site", `{"site":"amazon","query":"x"}`, http.StatusNotFound},
		{"bad currency", `{"site":"idealo","query":"x","currency":"euro"}`, http.StatusBadRequest},
		{"negative limit", `{"country":"ES","query":"x","limit":-1}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL+"/api/v1/search", "application/json", []byte(tt.body))
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

const idealoTwoOffers = `<ul>
	<li class="productOffers-listItem">
		<span class="productOffers-listItemTitleInner">Sony WH-1000XM6 Negro</span>
		<a class="productOffers-listItemOfferPrice" href="/relocator?offer=1">349,00 €</a>
		<span class="productOffers-listItemShop">PcComponentes</span>
	</li>
	<li class="productOffers-listItem">
		<span class="productOffers-listItemTitleInner">Sony WH-1000XM6 Plata</span>
		<a class="productOffers-listItemOfferPrice" href="/relocator?offer=2">299,99 €</a>
		<span class="productOffers-listItemShop">MediaMarkt</span>
	</li>
</ul>`

func TestSearchRanksAndConverts(t *testing.T) {
	srv := newServer(t, map[string]string{
		"https://www.idealo.es/resultados.html?q=sony": idealoTwoOffers,
	})

	resp := post(t, srv.URL+"/api/v1/search", "application/json", []byte(`{"country":"ES","query":"sony","limit":1,"currency":"brl"}`))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[SearchResponse](t, resp)
	assert.Equal(t, "ES", string(body.Country))
	require.Len(t, body.Results, 2)
	assert.Equal(t, 2, body.Results[0].Total)

	require.Len(t, body.Offers, 1)
	assert.Equal(t, "299.99", body.Offers[0].Price)
	require.NotNil(t, body.Offers[0].Converted)
	assert.Equal(t, "BRL", body.Offers[0].Converted.Currency)
	assert.Equal(t, "1880.94", body.Offers[0].Converted.Price)
}

func TestSearchSiteOffersWithoutConversion(t *testing.T) {
	srv := newServer(t, map[string]string{
		"https://www.idealo.es/resultados.html?q=sony": idealoTwoOffers,
	})

	resp := post(t, srv.URL+"/api/v1/search", "application/json", []byte(`{"site":"idealo","query":"sony"}`))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[SearchResponse](t, resp)
	require.Len(t, body.Offers, 2)
	assert.Equal(t, "299.99", body.Offers[0].Price)
	assert.Equal(t, "349.00", body.Offers[1].Price)
	assert.Nil(t, body.Offers[0].Converted)
}

const productPage = `<html><head>
	<meta property="og:title" content="Sony WH-1000XM6 | Kelkoo">
	<meta property="og:image" content="https://img.example/sony.jpg">
	<meta property="product:price:amount" content="299.99">
	<meta property="product:price:currency" content="EUR">
</head><body></body></html>`

func TestPreview(t *testing.T) {
	srv := newServer(t, map[string]string{
		"https://www.kelkoo.es/p/sony": productPage,
	})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantTitle  string
	}{
		{"fetched", `{"url":"https://www.kelkoo.es/p/sony"}`, http.StatusOK, "Sony WH-1000XM6"},
		{"inline markup", `{"url":"https://www.amazon.com/dp/1","html":"<title>Echo Dot</title>"}`, http.StatusOK, "Echo Dot"},
		{"invalid url", `{"url":"ftp://files.example/x"}`, http.StatusBadRequest, ""},
		{"missing url", `{}`, http.StatusBadRequest, ""},
		{"fetch failure", `{"url":"https://www.kelkoo.es/p/other"}`, http.StatusBadGateway, ""},
		{"not json", `{`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL+"/api/v1/preview", "application/json", []byte(tt.body))

			require.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus != http.StatusOK {
				return
			}
			body := decode[PreviewResponse](t, resp)
			assert.NotEmpty(t, body.ID)
			assert.Equal(t, tt.wantTitle, body.Title)
		})
	}
}

func TestPreviewFields(t *testing.T) {
	srv := newServer(t, map[string]string{
		"https://www.kelkoo.es/p/sony": productPage,
	})

	resp := post(t, srv.URL+"/api/v1/preview", "application/json", []byte(`{"url":"https://www.kelkoo.es/p/sony"}`))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[PreviewResponse](t, resp)
	assert.Equal(t, "https://www.kelkoo.es/p/sony", body.URL)
	assert.Equal(t, "299.99", body.Price)
	assert.Equal(t, "EUR", body.Currency)
	assert.Equal(t, "https://img.example/sony.jpg", body.ImageURL)
	assert.Equal(t, "ES", string(body.Country))
}
