package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hype-classifier/internal/catalog"
	"hype-classifier/internal/label"
	"hype-classifier/internal/ml"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/predict", r.URL.Path)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Dior", body["brand_name"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"label":"worth_it","title":"Worth It","confidence":0.9,"confidence_text":"90%",
			"probabilities":{"worth_it":0.9,"underrated":0.05,"overrated":0.05},
			"style":{"bg":"#EEDFCF","fg":"#5C3A21","border":"#DDBFA5"},"features":{"brand_name":"Dior"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second)
	resp, err := c.Predict(context.Background(), map[string]any{"brand_name": "Dior", "price_usd": 42.0})
	require.NoError(t, err)
	assert.Equal(t, label.WorthIt, resp.Label)
	assert.Equal(t, "90%", resp.ConfidenceText)
	assert.Equal(t, label.WorthIt.Style(), resp.Style)
}

func TestModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/model", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"variant":"logistic_regression","classes":["worth_it","underrated","overrated"],"training_rows":120}`))
	}))
	defer srv.Close()

	info, err := New(srv.URL, 0).Model(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ml.KindLogistic, info.Variant)
	assert.Equal(t, 120, info.TrainingRows)
	assert.Len(t, info.Classes, 3)
}

func TestProducts_QueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Dior", r.URL.Query().Get("brand"))
		assert.False(t, r.URL.Query().Has("category"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"brands":["Dior"],"categories":["Makeup"],"products":["Lip Oil"]}`))
	}))
	defer srv.Close()

	resp, err := New(srv.URL, time.Second).Products(context.Background(), catalog.Filter{Brand: "Dior"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Lip Oil"}, resp.Products)
}

func TestProductPrediction_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Lip Oil", r.URL.Query().Get("name"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"no candidates"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).ProductPrediction(context.Background(), catalog.Filter{Category: "Hair"}, "Lip Oil")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "no candidates", apiErr.Message)
}

func TestServerError_PlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Model(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Contains(t, apiErr.Message, "upstream down")
}

func TestConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).Model(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}
