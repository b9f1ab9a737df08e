// Package server is the lab dashboard: server-rendered writer pages plus a
// small JSON API over the persisted entities.
package server

import (
	"bytes"
	"html/template"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"gorm.io/gorm"

	"notewriter-lab/database"
	"notewriter-lab/metrics"
	"notewriter-lab/models"
)

// New builds the gin router with HTML templates loaded from templatesGlob.
func New(templatesGlob string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()
	r.LoadHTMLGlob(templatesGlob)

	r.GET("/", WritersIndex)
	r.GET("/writers/:id", WriterDetail)

	api := r.Group("/api")
	{
		api.GET("/writers", GetWriters)
		api.GET("/writers/:id", GetWriter)
		api.GET("/stats", GetStats)
	}

	return r
}

type noteView struct {
	Note     models.Note
	Score    *models.NoteScore
	Rendered template.HTML
}

type dashboardView struct {
	Writer    models.WriterConfig
	Admission metrics.AdmissionMetrics
	Lab       metrics.LabMetrics

	// AvgScore is LabMetrics.AvgScore dereferenced for template printf.
	AvgScore    float64
	HasAvgScore bool

	Notes []noteView
}

func WritersIndex(c *gin.Context) {
	db := database.Get()

	var writers []models.WriterConfig
	if err := db.Order("id asc").Find(&writers).Error; err != nil {
		c.String(http.StatusInternalServerError, "database error: %v", err)
		return
	}

	views := make([]dashboardView, 0, len(writers))
	for _, w := range writers {
		dash, err := metrics.BuildWriterDashboard(db, w, 5)
		if err != nil {
			c.String(http.StatusInternalServerError, "database error: %v", err)
			return
		}
		views = append(views, toView(dash))
	}

	c.HTML(http.StatusOK, "writers.html", gin.H{"Dashboards": views})
}

func WriterDetail(c *gin.Context) {
	db := database.Get()

	writer, ok := findWriter(c, db)
	if !ok {
		return
	}

	dash, err := metrics.BuildWriterDashboard(db, writer, 50)
	if err != nil {
		c.String(http.StatusInternalServerError, "database error: %v", err)
		return
	}

	c.HTML(http.StatusOK, "writer_detail.html", gin.H{"Dashboard": toView(dash)})
}

func GetWriters(c *gin.Context) {
	db := database.Get()

	var writers []models.WriterConfig
	if err := db.Order("id asc").Find(&writers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	dashboards := make([]metrics.WriterDashboard, 0, len(writers))
	for _, w := range writers {
		dash, err := metrics.BuildWriterDashboard(db, w, 5)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		dashboards = append(dashboards, dash)
	}

	c.JSON(http.StatusOK, dashboards)
}

func GetWriter(c *gin.Context) {
	db := database.Get()

	writer, ok := findWriter(c, db)
	if !ok {
		return
	}

	dash, err := metrics.BuildWriterDashboard(db, writer, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dash)
}

func GetStats(c *gin.Context) {
	db := database.Get()

	var writers, tweets, notes, rewrites, submitted, failed int64
	for _, cq := range []struct {
		dst   *int64
		query *gorm.DB
	}{
		{&writers, db.Model(&models.WriterConfig{})},
		{&tweets, db.Model(&models.Tweet{})},
		{&notes, db.Model(&models.Note{})},
		{&rewrites, db.Model(&models.Note{}).Where("stage = ?", models.StageRewrite)},
		{&submitted, db.Model(&models.Submission{}).Where("status = ?", models.StatusSubmitted)},
		{&failed, db.Model(&models.Submission{}).Where("status = ?", models.StatusFailed)},
	} {
		if err := cq.query.Count(cq.dst).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"writers":               writers,
		"tweets":                tweets,
		"notes":                 notes,
		"rewrites":              rewrites,
		"submissions_submitted": submitted,
		"submissions_failed":    failed,
	})
}

func findWriter(c *gin.Context, db *gorm.DB) (models.WriterConfig, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid writer id"})
		return models.WriterConfig{}, false
	}

	var writer models.WriterConfig
	if err := db.First(&writer, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "writer not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		}
		return models.WriterConfig{}, false
	}
	return writer, true
}

func toView(dash metrics.WriterDashboard) dashboardView {
	notes := make([]noteView, 0, len(dash.RecentNotes))
	for _, rn := range dash.RecentNotes {
		notes = append(notes, noteView{
			Note:     rn.Note,
			Score:    rn.Score,
			Rendered: renderMarkdown(rn.Note.Text),
		})
	}
	view := dashboardView{
		Writer:    dash.Writer,
		Admission: dash.Admission,
		Lab:       dash.Lab,
		Notes:     notes,
	}
	if dash.Lab.AvgScore != nil {
		view.AvgScore = *dash.Lab.AvgScore
		view.HasAvgScore = true
	}
	return view
}

// renderMarkdown renders raw note text, which is often markdown-shaped,
// for display. Goldmark escapes embedded HTML by default.
func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String())
}
