package handlers

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/dermascan/internal/assessment"
	"github.com/example/dermascan/internal/classifier"
	"github.com/example/dermascan/internal/history"
	"github.com/example/dermascan/internal/tracker"
	"github.com/example/dermascan/internal/usecase"
)

// MaxUploadSize mirrors the classifier service's 16MB upload cap.
const MaxUploadSize = 16 << 20

// sessionCookie identifies the browser session for the upload tracker and
// the result-handoff slot. It is an anonymous identifier, not auth.
const sessionCookie = "dermascan_session"

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded page templates.
func Templates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}

// riskView is the rendered form of a normalized risk level.
type riskView struct {
	Level string `json:"level"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

func riskFor(raw string) riskView {
	level := assessment.NormalizeRisk(raw)
	return riskView{Level: string(level), Color: level.Color(), Icon: level.Icon()}
}

// resultView wraps a prediction with its derived display fields.
type resultView struct {
	Prediction       *classifier.Prediction `json:"prediction"`
	Risk             riskView               `json:"risk"`
	TimestampDisplay string                 `json:"timestamp_display"`
}

func viewOf(p *classifier.Prediction) resultView {
	return resultView{
		Prediction:       p,
		Risk:             riskFor(p.Result.RiskLevel),
		TimestampDisplay: assessment.FormatTimestamp(p.Timestamp),
	}
}

// RegisterRoutes wires the dashboard pages and the JSON API to the router.
func RegisterRoutes(router *gin.Engine, uc *usecase.ScanUseCase, registry *tracker.Registry, logger *zap.Logger) {
	h := &handler{uc: uc, registry: registry, logger: logger.Named("handlers")}

	router.SetHTMLTemplate(Templates())

	router.GET("/", h.page("dashboard.html", "dashboard"))
	router.GET("/upload", h.page("upload.html", "upload"))
	router.GET("/results", h.page("results.html", "results"))
	router.GET("/history", h.page("history.html", "history"))

	router.GET("/healthz", h.health)

	api := router.Group("/api")
	api.POST("/uploads", h.addUploads)
	api.GET("/uploads", h.listUploads)
	api.POST("/uploads/:id/select", h.selectUpload)
	api.POST("/uploads/:id/reanalyze", h.reanalyzeUpload)
	api.DELETE("/uploads/:id", h.removeUpload)
	api.GET("/results/current", h.currentResult)
	api.GET("/history", h.listHistory)
	api.GET("/history/:id", h.historyDetail)
	api.DELETE("/history/:id", h.deleteHistory)
	api.GET("/image/:filename", h.proxyImage)
	api.GET("/report/:id", h.proxyReport)
}

type handler struct {
	uc       *usecase.ScanUseCase
	registry *tracker.Registry
	logger   *zap.Logger
}

// sessionID reads the session cookie, minting one on first contact.
func (h *handler) sessionID(c *gin.Context) string {
	if id, err := c.Cookie(sessionCookie); err == nil && id != "" {
		return id
	}
	id := uuid.NewString()
	c.SetCookie(sessionCookie, id, 0, "/", "", false, true)
	return id
}

func (h *handler) page(name, active string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, name, gin.H{"Active": active})
	}
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"classifier":    h.uc.Healthy(c.Request.Context()),
		"session_store": h.uc.SlotHealthy(c.Request.Context()),
	})
}

// addUploads accepts one or more dropped files under the multipart field
// "images". Non-image files are filtered out silently; every accepted file
// becomes exactly one tracked item.
func (h *handler) addUploads(c *gin.Context) {
	tr := h.registry.ForSession(h.sessionID(c))

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}
	headers := form.File["images"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one file is required"})
		return
	}

	var files []tracker.File
	for _, fh := range headers {
		if fh.Size > MaxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large, maximum size is 16MB"})
			return
		}
		src, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unable to open uploaded file"})
			return
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read uploaded file"})
			return
		}
		contentType := fh.Header.Get("Content-Type")
		if contentType == "" {
			contentType = http.DetectContentType(data)
		}
		files = append(files, tracker.File{Name: fh.Filename, ContentType: contentType, Data: data})
	}

	items := tr.Add(files)
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *handler) listUploads(c *gin.Context) {
	tr := h.registry.ForSession(h.sessionID(c))
	c.JSON(http.StatusOK, gin.H{
		"items":    tr.Snapshot(),
		"selected": tr.Selected(),
	})
}

// selectUpload marks a completed item as current and hands its result to
// the session slot so the results page can render it without a refetch.
func (h *handler) selectUpload(c *gin.Context) {
	sid := h.sessionID(c)
	tr := h.registry.ForSession(sid)

	prediction, err := tr.Select(c.Param("id"))
	switch {
	case errors.Is(err, tracker.ErrUnknownItem):
		c.JSON(http.StatusNotFound, gin.H{"error": "upload item not found"})
		return
	case errors.Is(err, tracker.ErrNotCompleted):
		c.JSON(http.StatusConflict, gin.H{"error": "analysis has not completed"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.uc.SetCurrent(c.Request.Context(), sid, prediction); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to store selection"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"selected": c.Param("id")})
}

func (h *handler) reanalyzeUpload(c *gin.Context) {
	tr := h.registry.ForSession(h.sessionID(c))
	err := tr.Reanalyze(c.Param("id"))
	switch {
	case errors.Is(err, tracker.ErrUnknownItem):
		c.JSON(http.StatusNotFound, gin.H{"error": "upload item not found"})
	case errors.Is(err, tracker.ErrInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": "analysis already in progress"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusAccepted, gin.H{"status": string(tracker.StatusAnalyzing)})
	}
}

func (h *handler) removeUpload(c *gin.Context) {
	tr := h.registry.ForSession(h.sessionID(c))
	if !tr.Remove(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "upload item not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": c.Param("id")})
}

// currentResult resolves the prediction for the results page and attaches
// the derived recommendation and alternative-diagnosis entries.
func (h *handler) currentResult(c *gin.Context) {
	prediction, err := h.uc.CurrentResult(c.Request.Context(), h.sessionID(c))
	switch {
	case errors.Is(err, usecase.ErrNoPredictions):
		c.JSON(http.StatusNotFound, gin.H{"error": "no analysis results"})
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	view := viewOf(prediction)
	c.JSON(http.StatusOK, gin.H{
		"prediction":        view.Prediction,
		"risk":              view.Risk,
		"timestamp_display": view.TimestampDisplay,
		"recommendations":   assessment.Recommendations(prediction.Result.IsMalignant, prediction.Result.Confidence),
		"alternatives":      assessment.Alternatives(prediction.Result.AllPredictions),
	})
}

func (h *handler) listHistory(c *gin.Context) {
	q := history.Query{
		Text: c.Query("q"),
		Risk: c.DefaultQuery("risk", history.RiskAll),
	}
	key := history.ParseSortKey(c.Query("sort"))

	predictions, err := h.uc.History(c.Request.Context(), q, key)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	views := make([]resultView, 0, len(predictions))
	for i := range predictions {
		views = append(views, viewOf(&predictions[i]))
	}
	c.JSON(http.StatusOK, gin.H{"predictions": views, "count": len(views)})
}

func (h *handler) historyDetail(c *gin.Context) {
	prediction, err := h.uc.Prediction(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, classifier.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "prediction not found"})
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	view := viewOf(prediction)
	c.JSON(http.StatusOK, gin.H{
		"prediction":        view.Prediction,
		"risk":              view.Risk,
		"timestamp_display": view.TimestampDisplay,
		"recommendations":   assessment.Recommendations(prediction.Result.IsMalignant, prediction.Result.Confidence),
		"alternatives":      assessment.Alternatives(prediction.Result.AllPredictions),
	})
}

// deleteHistory forwards the deletion upstream. The page only drops its row
// after a success response; on failure it shows an alert and keeps the row.
func (h *handler) deleteHistory(c *gin.Context) {
	id := c.Param("id")
	err := h.uc.Delete(c.Request.Context(), id)
	switch {
	case errors.Is(err, classifier.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "prediction not found"})
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"deleted": id})
	}
}

func (h *handler) proxyImage(c *gin.Context) {
	doc, err := h.uc.Image(c.Request.Context(), c.Param("filename"))
	h.proxyDocument(c, doc, err)
}

func (h *handler) proxyReport(c *gin.Context) {
	doc, err := h.uc.Report(c.Request.Context(), c.Param("id"))
	h.proxyDocument(c, doc, err)
}

func (h *handler) proxyDocument(c *gin.Context, doc *classifier.Document, err error) {
	switch {
	case errors.Is(err, classifier.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	defer doc.Body.Close()

	if doc.ContentType != "" {
		c.Header("Content-Type", doc.ContentType)
	}
	if doc.Disposition != "" {
		c.Header("Content-Disposition", doc.Disposition)
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, doc.Body); err != nil {
		h.logger.Warn("document proxy interrupted", zap.Error(err))
	}
}
