// Package api serves classifier inference over HTTP.
package api

import (
	"fmt"
	"image"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bloom-ml/bloom/classifier"
)

// defaultTopK is the number of ranked classes returned when the request
// does not ask for a specific count.
const defaultTopK = 5

// Server wraps a configured classifier behind a gin router.
type Server struct {
	classifier *classifier.Classifier
	router     *gin.Engine
}

// NewServer builds the router around the classifier.
func NewServer(c *classifier.Classifier) *Server {
	s := &Server{classifier: c}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.MaxMultipartMemory = 8 << 20

	v1 := r.Group("/v1")
	{
		v1.POST("/predict", s.Predict)
		v1.GET("/model", s.ShowModel)
	}

	s.router = r
	return s
}

// Router exposes the underlying handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// ShowModel returns the model geometry and parameter counts.
func (s *Server) ShowModel(c *gin.Context) {
	c.JSON(http.StatusOK, s.classifier.Summary())
}

// Predict classifies an uploaded image. The image arrives as the "image"
// multipart field; "top_k" optionally bounds the number of ranked classes.
func (s *Server) Predict(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		Error(c, http.StatusBadRequest, fmt.Errorf("missing image upload: %w", err))
		return
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		Error(c, http.StatusBadRequest, fmt.Errorf("failed to decode %s: %w", header.Filename, err))
		return
	}

	topK := defaultTopK
	if raw, ok := c.GetQuery("top_k"); ok {
		if _, err := fmt.Sscanf(raw, "%d", &topK); err != nil || topK <= 0 {
			Error(c, http.StatusBadRequest, fmt.Errorf("invalid top_k %q", raw))
			return
		}
	}

	predictions, err := s.classifier.PredictImage(img, topK)
	if err != nil {
		Error(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"file":        header.Filename,
		"format":      format,
		"predictions": predictions,
	})
}

// Error writes a JSON error payload with the given status.
func Error(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{
		"status": status,
		"error":  err.Error(),
	})
}
