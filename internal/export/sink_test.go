package export

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/smartreach/internal/lookup"
	"github.com/AngelCh415/smartreach/internal/models"
)

func detail() models.CampaignDetail {
	return models.CampaignDetail{
		Campaign: models.Campaign{ID: "c1", ProductService: "CRM", Area: "Austin", Status: models.StatusCompleted},
		Messages: []models.Message{{ID: "m1", CompanyName: "Acme", Content: "Subject: Hi\n\nBody", QualityScore: 80}},
	}
}

func TestExportSignsPayload(t *testing.T) {
	var got models.CampaignDetail
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if r.Header.Get(SignatureHeader) != Sign("s3cret", body) {
			http.Error(w, "bad signature", http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "c1", r.Header.Get("X-Campaign-ID"))
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewSink(srv.URL, "s3cret", lookup.NewHTTPClient(2*time.Second))
	require.NoError(t, s.Export(context.Background(), detail()))
	assert.Equal(t, "c1", got.ID)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "Acme", got.Messages[0].CompanyName)
}

func TestExportRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSink(srv.URL, "k", lookup.NewHTTPClient(2*time.Second))
	require.NoError(t, s.Export(context.Background(), detail()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestExportDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := NewSink(srv.URL, "k", lookup.NewHTTPClient(2*time.Second)).Export(context.Background(), detail())
	var se *lookup.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewSinkNeedsURLAndSecret(t *testing.T) {
	assert.Nil(t, NewSink("", "k", nil))
	assert.Nil(t, NewSink("http://x", "", nil))
}

func TestSignIsStable(t *testing.T) {
	assert.Equal(t, Sign("k", []byte("payload")), Sign("k", []byte("payload")))
	assert.NotEqual(t, Sign("k", []byte("payload")), Sign("other", []byte("payload")))
	assert.Len(t, Sign("k", nil), 64)
}
