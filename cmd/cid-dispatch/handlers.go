package main

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/aigendrug/cid-dispatch/dispatch"
	"github.com/aigendrug/cid-dispatch/ligand"
	pkglog "github.com/aigendrug/cid-dispatch/pkg/log"
	"github.com/aigendrug/cid-dispatch/store"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hamba/cmd"
	"github.com/pkg/errors"
)

func newRouter(c *cmd.Context, coord *dispatch.Coordinator, st store.Store) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	gin.DefaultWriter = pkglog.NewWriter(c.Logger(), pkglog.Debug, "gin: ")

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "PUT", "POST", "DELETE"},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	h := &handlers{coord: coord, store: st}

	router.GET("/health", h.health)

	router.GET("/job", h.getJobs)
	router.GET("/job/:jobId", h.getJob)
	router.POST("/job", h.createJob)
	router.DELETE("/job/:jobId", h.deleteJob)
	router.POST("/job/:jobId/upload-initial-ligand", h.uploadInitialLigand)

	router.GET("/experiment", h.getExperiments)
	router.GET("/experiment/:experimentId", h.getExperiment)
	router.GET("/experiment/job/:jobId", h.getExperimentsByJob)
	router.POST("/experiment", h.createExperiment)
	router.DELETE("/experiment/:experimentId", h.deleteExperiment)

	return router
}

type handlers struct {
	coord *dispatch.Coordinator
	store store.Store
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type jobCreateRequest struct {
	Name          string `json:"name" binding:"required"`
	TargetProtein string `json:"target_protein_name" binding:"required"`
	TargetFileURL string `json:"target_protein_file_url"`
}

func (h *handlers) createJob(c *gin.Context) {
	var req jobCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job := &store.Job{
		Name:          req.Name,
		TargetProtein: req.TargetProtein,
		TargetFileURL: req.TargetFileURL,
	}
	if err := h.store.CreateJob(c.Request.Context(), job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, jobJSON(job))
}

func (h *handlers) getJobs(c *gin.Context) {
	jobs, err := h.store.Jobs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, jobJSON(job))
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) getJob(c *gin.Context) {
	id, err := pathID(c, "jobId")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.store.Job(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	c.JSON(http.StatusOK, jobJSON(job))
}

func (h *handlers) deleteJob(c *gin.Context) {
	id, err := pathID(c, "jobId")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Deleting a job cascades to its experiments.
	if err := h.store.DeleteJob(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusOK)
}

func (h *handlers) uploadInitialLigand(c *gin.Context) {
	id, err := pathID(c, "jobId")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid file")
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid file")
		return
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid file")
		return
	}

	contentType := fh.Header.Get("Content-Type")

	_, err = h.coord.IngestBatch(c.Request.Context(), id, fh.Filename, contentType, raw)
	if err != nil {
		var parseErr *ligand.ParseError
		if errors.As(err, &parseErr) {
			c.String(http.StatusBadRequest, "Invalid file")
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.String(http.StatusOK, "Initial ligand uploaded")
}

type experimentCreateRequest struct {
	JobID         int64   `json:"job_id" binding:"required"`
	Type          *int8   `json:"type" binding:"required"`
	Name          string  `json:"name" binding:"required"`
	LigandSMILES  string  `json:"ligand_smiles" binding:"required"`
	MeasuredValue float64 `json:"measured_value"`
}

func (h *handlers) createExperiment(c *gin.Context) {
	var req experimentCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, out := h.coord.CreateExperiment(c.Request.Context(), dispatch.CreateRequest{
		JobID:         req.JobID,
		Type:          store.Type(*req.Type),
		Name:          req.Name,
		LigandSMILES:  req.LigandSMILES,
		MeasuredValue: req.MeasuredValue,
	})

	c.JSON(http.StatusCreated, gin.H{
		"success": out.Success,
		"status":  out.Status,
	})
}

func (h *handlers) getExperiments(c *gin.Context) {
	exps, err := h.store.Experiments(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, experimentsJSON(exps))
}

func (h *handlers) getExperiment(c *gin.Context) {
	id, err := pathID(c, "experimentId")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exp, err := h.store.Experiment(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if exp == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "experiment not found"})
		return
	}

	c.JSON(http.StatusOK, experimentJSON(exp))
}

func (h *handlers) getExperimentsByJob(c *gin.Context) {
	id, err := pathID(c, "jobId")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exps, err := h.store.ExperimentsByJob(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, experimentsJSON(exps))
}

func (h *handlers) deleteExperiment(c *gin.Context) {
	id, err := pathID(c, "experimentId")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.DeleteExperiment(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusOK)
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid %s", name)
	}
	return id, nil
}

func jobJSON(job *store.Job) gin.H {
	return gin.H{
		"id":                      job.ID,
		"name":                    job.Name,
		"target_protein_name":     job.TargetProtein,
		"target_protein_file_url": job.TargetFileURL,
		"created_at":              job.CreatedAt,
	}
}

func experimentJSON(exp *store.Experiment) gin.H {
	return gin.H{
		"id":              exp.ID,
		"job_id":          exp.JobID,
		"type":            int8(exp.Type),
		"name":            exp.Name,
		"ligand_smiles":   exp.LigandSMILES,
		"predicted_value": exp.PredictedValue,
		"measured_value":  exp.MeasuredValue,
		"training_status": int8(exp.Status),
		"created_at":      exp.CreatedAt,
		"edited_at":       exp.EditedAt,
	}
}

func experimentsJSON(exps []*store.Experiment) []gin.H {
	out := make([]gin.H, 0, len(exps))
	for _, exp := range exps {
		out = append(out, experimentJSON(exp))
	}
	return out
}
