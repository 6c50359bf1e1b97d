package server

import (
	"errors"
	"net/http"

	"hype-classifier/internal/catalog"
	"hype-classifier/internal/dataset"
	"hype-classifier/internal/label"
	"hype-classifier/internal/ml"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PredictionResponse is what a display surface renders for one product.
type PredictionResponse struct {
	Label          label.Label        `json:"label"`
	Title          string             `json:"title"`
	Confidence     float64            `json:"confidence"`
	ConfidenceText string             `json:"confidence_text"`
	Probabilities  map[string]float64 `json:"probabilities"`
	Style          label.Style        `json:"style"`
	Features       map[string]any     `json:"features"`
}

// NewPredictionResponse decorates p with its display fields.
func NewPredictionResponse(p ml.Prediction) PredictionResponse {
	return PredictionResponse{
		Label:          p.Label,
		Title:          p.Label.Title(),
		Confidence:     p.Confidence,
		ConfidenceText: catalog.ConfidenceText(p.Confidence),
		Probabilities:  p.Probabilities,
		Style:          p.Label.Style(),
		Features:       p.Features,
	}
}

// ProductsResponse lists the filter options and the matching product names.
type ProductsResponse struct {
	Brands     []string `json:"brands"`
	Categories []string `json:"categories"`
	Products   []string `json:"products"`
}

// ProductPredictionResponse pairs a product card with its prediction.
type ProductPredictionResponse struct {
	Card       []catalog.Field    `json:"card"`
	Price      string             `json:"price"`
	Category   string             `json:"category"`
	Prediction PredictionResponse `json:"prediction"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "hype-classifier",
		"variant": s.predictor.Info().Variant,
	})
}

func (s *Server) handleModel(c *gin.Context) {
	c.JSON(http.StatusOK, s.predictor.Info())
}

func (s *Server) handlePredict(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid JSON record: " + err.Error()})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "empty record"})
		return
	}

	pred, err := s.predictor.PredictOne(dataset.RecordFromValues(body))
	if err != nil {
		log.Error().Err(err).Msg("prediction failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "prediction failed"})
		return
	}
	c.JSON(http.StatusOK, NewPredictionResponse(pred))
}

func (s *Server) handleProducts(c *gin.Context) {
	if s.catalog == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "catalog not loaded"})
		return
	}
	var f catalog.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	names := s.catalog.Names(f)
	if len(names) == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: catalog.ErrNoCandidates.Error()})
		return
	}
	c.JSON(http.StatusOK, ProductsResponse{
		Brands:     s.catalog.Brands(),
		Categories: s.catalog.Categories(),
		Products:   names,
	})
}

func (s *Server) handleProductPrediction(c *gin.Context) {
	if s.catalog == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "catalog not loaded"})
		return
	}
	var f catalog.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	record, err := s.catalog.Select(f, c.Query("name"))
	switch {
	case errors.Is(err, catalog.ErrNoCandidates):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: catalog.ErrNoCandidates.Error()})
		return
	case errors.Is(err, catalog.ErrProductNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	pred, err := s.predictor.PredictOne(record)
	if err != nil {
		log.Error().Err(err).Msg("prediction failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "prediction failed"})
		return
	}
	c.JSON(http.StatusOK, ProductPredictionResponse{
		Card:       catalog.Card(record),
		Price:      catalog.PriceText(record),
		Category:   catalog.CategoryText(record),
		Prediction: NewPredictionResponse(pred),
	})
}
