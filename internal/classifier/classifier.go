package classifier

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound indicates the classifier service has no record for the
// requested prediction or image.
var ErrNotFound = errors.New("prediction not found")

// ClassPrediction is one class/probability pair returned by the model,
// ordered by the service from most to least likely.
type ClassPrediction struct {
	ClassName   string  `json:"class_name"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description,omitempty"`
}

// Result holds the model's verdict for a single image. Confidence and the
// per-class probabilities are fractions in [0,1]; RiskLevel carries the
// service's raw label and is normalized by the assessment package.
type Result struct {
	ClassName      string            `json:"class_name"`
	Confidence     float64           `json:"confidence"`
	Description    string            `json:"description"`
	RiskLevel      string            `json:"risk_level"`
	IsMalignant    bool              `json:"is_malignant"`
	AllPredictions []ClassPrediction `json:"all_predictions"`
}

// ImageInfo describes the stored upload the prediction was made on.
type ImageInfo struct {
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Format    string `json:"format"`
	SizeBytes int64  `json:"size_bytes"`
}

// Prediction is one stored classifier invocation, as returned by both the
// predict and history endpoints.
type Prediction struct {
	PredictionID     string    `json:"prediction_id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename,omitempty"`
	Result           Result    `json:"result"`
	ImageInfo        ImageInfo `json:"image_info"`
	ProcessingTime   float64   `json:"processing_time"`
	PDFAvailable     bool      `json:"pdf_available"`
	Timestamp        string    `json:"timestamp"`
}

// Document is a streamed payload (stored image or generated report)
// proxied through to the browser. The caller owns Body.
type Document struct {
	ContentType string
	Disposition string
	Body        io.ReadCloser
}

// Client exposes the subset of the classification service used by the
// dashboard.
type Client interface {
	Predict(ctx context.Context, filename string, data []byte) (*Prediction, error)
	List(ctx context.Context) ([]Prediction, error)
	Get(ctx context.Context, id string) (*Prediction, error)
	Delete(ctx context.Context, id string) error
	FetchImage(ctx context.Context, filename string) (*Document, error)
	FetchReport(ctx context.Context, id string) (*Document, error)
	Health(ctx context.Context) error
}
