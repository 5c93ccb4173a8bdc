package api_test

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloom-ml/bloom/classifier"
	"github.com/bloom-ml/bloom/internal/api"
)

func newTestServer(t *testing.T) *api.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config := classifier.DefaultConfig()
	config.Architecture = "resnet18"
	config.UseGPU = false
	config.OutputUnits = 3

	c, err := classifier.New(config)
	require.NoError(t, err)
	return api.NewServer(c)
}

// imageUpload builds a multipart body with a small PNG in the "image" field.
func imageUpload(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: 120, G: 110, B: 100, A: 255})
		}
	}

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("image", "flower.png")
	require.NoError(t, err)
	require.NoError(t, png.Encode(part, img))
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestShowModel(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/model", nil)
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var summary classifier.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "resnet18", summary.Architecture)
	assert.Equal(t, 512, summary.InputUnits)
	assert.Equal(t, 3, summary.OutputUnits)
	assert.Greater(t, summary.TotalParameters, summary.TrainableParameters)
}

func TestPredict_MissingUpload(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/predict", nil)
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "image")
}

func TestPredict_InvalidTopK(t *testing.T) {
	s := newTestServer(t)

	body, contentType := imageUpload(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/predict?top_k=lots", body)
	req.Header.Set("Content-Type", contentType)
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredict(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full forward pass in short mode")
	}

	s := newTestServer(t)

	body, contentType := imageUpload(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/predict?top_k=2", body)
	req.Header.Set("Content-Type", contentType)
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		File        string                  `json:"file"`
		Format      string                  `json:"format"`
		Predictions []classifier.Prediction `json:"predictions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "flower.png", payload.File)
	assert.Equal(t, "png", payload.Format)
	require.Len(t, payload.Predictions, 2)
	assert.GreaterOrEqual(t, payload.Predictions[0].Probability, payload.Predictions[1].Probability)
}
