package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homefolio/config"
	"homefolio/internal/bundle"
	"homefolio/internal/compose"
	"homefolio/internal/fetch"
	"homefolio/internal/ratelimit"
	"homefolio/internal/render"
	"homefolio/internal/report/model"
	"homefolio/internal/report/repository"
	"homefolio/internal/report/service"
	"homefolio/store"
)

const (
	mainStID = "0b6d2f7e-5a41-4c1b-8d3e-7f9a2c4e6b10"
	token    = "share-abc"

	// Firestore-style generated key.
	elmCtID    = "Xk2p9QmLr7TbV3nY1aZc"
	elmCtToken = "share-def"
)

type memRepo struct {
	sessions    map[string]store.SessionRecord
	tokens      map[string]string
	properties  []store.PropertyRecord
	attachments map[string][]store.AttachmentRecord
}

func (m *memRepo) ValidateShareToken(_ context.Context, tok, propertyID string) (string, error) {
	sid, ok := m.tokens[tok]
	if !ok {
		return "", repository.ErrInvalidToken
	}
	if propertyID != "" {
		p, err := m.GetProperty(context.Background(), propertyID)
		if err != nil || p.SessionID != sid {
			return "", repository.ErrInvalidToken
		}
	}
	return sid, nil
}

func (m *memRepo) GetProperty(_ context.Context, id string) (*store.PropertyRecord, error) {
	for _, p := range m.properties {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memRepo) GetSession(_ context.Context, id string) (*store.SessionRecord, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (m *memRepo) ListSessionProperties(_ context.Context, sessionID string) ([]store.PropertyRecord, error) {
	var out []store.PropertyRecord
	for _, p := range m.properties {
		if p.SessionID == sessionID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memRepo) ListAttachments(_ context.Context, propertyID string) ([]store.AttachmentRecord, error) {
	return m.attachments[propertyID], nil
}

func (m *memRepo) GetAgent(context.Context, string) (*store.AgentIdentity, error) {
	return nil, repository.ErrNotFound
}

type prefixSigner struct{ base string }

func (s prefixSigner) SignedURL(_ context.Context, ref string, _ time.Duration) (string, error) {
	return s.base + "/" + ref, nil
}

func pdfConf() *pdfmodel.Configuration {
	api.DisableConfigDir()
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	return conf
}

func foreignPDF(pages int) []byte {
	doc := render.NewDocument("Disclosure", "Title Co", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	for i := 0; i < pages; i++ {
		doc.AddPage().Text("disclosure", 72, 700, render.Regular, 12, render.Black)
	}
	return doc.Bytes()
}

func setup(t *testing.T) (http.Handler, *memRepo) {
	t.Helper()

	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/docs/disclosure.pdf" {
			w.Header().Set("Content-Type", "application/pdf")
			w.Write(foreignPDF(2))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(files.Close)

	repo := &memRepo{
		sessions: map[string]store.SessionRecord{
			"s1": {ID: "s1", Title: "Saturday Tour", ClientName: "The Smiths", OwnerID: "u1"},
			"s2": {ID: "s2", Title: "Sunday Tour"},
		},
		tokens: map[string]string{token: "s1", elmCtToken: "s2"},
		properties: []store.PropertyRecord{
			{ID: mainStID, SessionID: "s1", Street: "123 Main St", City: "Springfield", State: "IL", Price: 500000},
			{ID: "p2", SessionID: "s1", Street: "2 Elm St", Price: 410000, Beds: 4, Baths: 3},
			{ID: "p3", SessionID: "s1", Street: "3 Pine Rd", Price: 289000, Beds: 2, Baths: 1},
			{ID: elmCtID, SessionID: "s2", Street: "9 Elm Ct", Price: 615000},
		},
		attachments: map[string][]store.AttachmentRecord{
			"p2": {
				{ID: "d1", Name: "Seller Disclosure", Type: store.DocDisclosure, StorageRef: "docs/disclosure.pdf"},
				{ID: "d2", Name: "Survey", Type: store.DocSurvey, StorageRef: "docs/missing.pdf"},
			},
		},
	}

	settings := config.DefaultSettings()
	fetcher := fetch.NewClient(5*time.Second, settings.FetchMaxSize)
	signer := prefixSigner{base: files.URL}
	composer := compose.NewComposer(settings, fetcher, signer, bundle.NewBundler(signer, fetcher, settings.SignedURLTTL))
	svc := service.NewReportService(repo, ratelimit.NewMemoryLimiter(), composer, settings.Limits)
	h := NewReportHandler(svc, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/report/property", h.PropertyReport)
	mux.HandleFunc("/report/session", h.SessionReport)
	return mux, repo
}

func post(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.9:51000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func propertyBody(id, tok string) string {
	b, _ := json.Marshal(model.PropertyReportRequest{PropertyID: id, ShareToken: tok})
	return string(b)
}

func TestPropertyReportScenario(t *testing.T) {
	h, _ := setup(t)

	rec := post(h, "/report/property", propertyBody(mainStID, token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="123-Main-St-details.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "20", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "19", rec.Header().Get("X-RateLimit-Remaining"))
	_, err := time.Parse(time.RFC3339, rec.Header().Get("X-RateLimit-Reset"))
	assert.NoError(t, err)

	n, err := api.PageCount(bytes.NewReader(rec.Body.Bytes()), pdfConf())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)
}

func TestPropertyReportRateLimit(t *testing.T) {
	h, _ := setup(t)

	for i := 0; i < 20; i++ {
		rec := post(h, "/report/property", propertyBody(mainStID, "wrong-token"))
		require.Equal(t, http.StatusForbidden, rec.Code, "request %d", i+1)
	}

	rec := post(h, "/report/property", propertyBody(mainStID, token))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	var body model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.RetryAfter)
	assert.Greater(t, *body.RetryAfter, 0)
	assert.NotEmpty(t, body.Error)

	// The session endpoint has its own budget.
	assert.Equal(t, http.StatusOK, post(h, "/report/session", `{"shareToken":"`+token+`"}`).Code)
}

func TestPropertyReportGeneratedKey(t *testing.T) {
	h, _ := setup(t)

	rec := post(h, "/report/property", propertyBody(elmCtID, elmCtToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `attachment; filename="9-Elm-Ct-details.pdf"`, rec.Header().Get("Content-Disposition"))

	// A key from another session is still refused by the token check.
	rec = post(h, "/report/property", propertyBody(elmCtID, token))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRateLimitIgnoresForwardedHeaders(t *testing.T) {
	h, _ := setup(t)

	statuses := map[int]int{}
	for i := 0; i < 30; i++ {
		req := httptest.NewRequest(http.MethodPost, "/report/property", strings.NewReader(propertyBody(mainStID, "wrong-token")))
		req.RemoteAddr = "203.0.113.9:51000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("10.0.1.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		statuses[rec.Code]++
	}
	assert.Equal(t, map[int]int{http.StatusForbidden: 20, http.StatusTooManyRequests: 10}, statuses)
}

func TestSessionReportScenario(t *testing.T) {
	h, _ := setup(t)

	rec := post(h, "/report/session", `{"shareToken":"`+token+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `attachment; filename="Saturday-Tour-complete.pdf"`, rec.Header().Get("Content-Disposition"))

	// cover + three single-page properties + the two-page disclosure;
	// the unfetchable survey is skipped.
	n, err := api.PageCount(bytes.NewReader(rec.Body.Bytes()), pdfConf())
	require.NoError(t, err)
	assert.Equal(t, 1+3+2, n)
}

func TestReportErrors(t *testing.T) {
	h, _ := setup(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"malformed json", "/report/property", `{"propertyId":`, http.StatusBadRequest},
		{"missing id", "/report/property", `{"shareToken":"` + token + `"}`, http.StatusBadRequest},
		{"malformed id", "/report/property", propertyBody("p1'; --", token), http.StatusBadRequest},
		{"no token", "/report/property", propertyBody(mainStID, ""), http.StatusUnauthorized},
		{"bad token", "/report/property", propertyBody(mainStID, "nope"), http.StatusForbidden},
		{"other session's property", "/report/property", propertyBody("9f1c2b3a-0000-4000-8000-000000000000", token), http.StatusForbidden},
		{"session no token", "/report/session", `{}`, http.StatusUnauthorized},
		{"session bad token", "/report/session", `{"shareToken":"nope"}`, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(h, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var body model.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
			assert.Nil(t, body.RetryAfter)
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/report/property", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSessionNotFound(t *testing.T) {
	h, repo := setup(t)
	delete(repo.sessions, "s1")

	rec := post(h, "/report/session", `{"shareToken":"`+token+`"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
