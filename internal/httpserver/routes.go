package httpserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/humanizer/internal/config"
	"github.com/nao1215/humanizer/internal/pipeline"
)

func (s *Server) registerRoutes() {
	s.engine.GET("/", s.handleIndex)
	s.engine.GET("/healthz", s.handleHealth)

	v1 := s.engine.Group("/v1")
	{
		v1.GET("/models", s.handleModels)
		v1.POST("/models/load", s.handleLoadModel)

		v1.POST("/detect", s.handleDetect)
		v1.POST("/detect/segments", s.handleDetectSegments)
		v1.POST("/highlight", s.handleHighlight)

		v1.POST("/paraphrase", s.handleParaphrase)
		v1.POST("/rewrite", s.handleRewrite)
		v1.POST("/refine", s.handleRefine)
		v1.POST("/synonym", s.handleSynonym)
		v1.POST("/pipeline", s.handlePipeline)
		v1.POST("/humanize", s.handleHumanize)
		v1.POST("/humanize/verify", s.handleVerify)

		v1.GET("/history/runs", s.handleRunHistory)
		v1.GET("/history/runs/:id", s.handleRun)
		v1.GET("/history/detections", s.handleDetectionHistory)
	}
}

func (s *Server) handleIndex(c *gin.Context) {
	routes := s.engine.Routes()
	endpoints := make([]string, 0, len(routes))
	for _, r := range routes {
		endpoints = append(endpoints, r.Method+" "+r.Path)
	}
	c.JSON(http.StatusOK, gin.H{
		"service":   config.AppName,
		"version":   s.version,
		"endpoints": endpoints,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	h, err := s.svc.Health(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h)
}

func (s *Server) handleModels(c *gin.Context) {
	ctx := c.Request.Context()

	if goal := c.Query("goal"); goal != "" {
		desc, err := s.svc.Recommend(goal)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"goal": goal, "model": desc})
		return
	}

	top, ok := queryInt(c, "top")
	if !ok {
		return
	}
	role := c.Query("role")
	if top > 0 {
		l, err := s.svc.TopModels(ctx, role, top, c.Query("by"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, l)
		return
	}
	l, err := s.svc.ListModels(ctx, role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (s *Server) handleLoadModel(c *gin.Context) {
	var req loadModelRequest
	if !bind(c, &req) {
		return
	}
	current, err := s.svc.LoadModel(c.Request.Context(), req.Model)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"current_model": current})
}

func (s *Server) handleDetect(c *gin.Context) {
	var req detectRequest
	if !bind(c, &req) {
		return
	}
	sreq, err := req.toService()
	if err != nil {
		respondError(c, err)
		return
	}
	d, err := s.svc.Detect(c.Request.Context(), sreq)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) handleDetectSegments(c *gin.Context) {
	var req segmentRequest
	if !bind(c, &req) {
		return
	}
	sreq, err := req.toService()
	if err != nil {
		respondError(c, err)
		return
	}
	a, err := s.svc.DetectSegments(c.Request.Context(), sreq)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// handleHighlight answers 200 even when nothing is flagged; no_ai_content
// tells the two outcomes apart.
func (s *Server) handleHighlight(c *gin.Context) {
	var req highlightRequest
	if !bind(c, &req) {
		return
	}
	sreq, err := req.toService()
	if err != nil {
		respondError(c, err)
		return
	}
	h, err := s.svc.Highlight(c.Request.Context(), sreq)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h)
}

func (s *Server) handleParaphrase(c *gin.Context) {
	var req paraphraseRequest
	if !bind(c, &req) {
		return
	}
	g, err := s.svc.Paraphrase(c.Request.Context(), req.Text, req.Model)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) handleRewrite(c *gin.Context) {
	var req rewriteRequest
	if !bind(c, &req) {
		return
	}
	g, err := s.svc.Rewrite(c.Request.Context(), req.Text, req.Enhanced)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) handleRefine(c *gin.Context) {
	var req refineRequest
	if !bind(c, &req) {
		return
	}
	r, err := s.svc.Refine(c.Request.Context(), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) handleSynonym(c *gin.Context) {
	var req synonymRequest
	if !bind(c, &req) {
		return
	}
	r, err := s.svc.Synonym(req.Word)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// handlePipeline answers an aborted run with the load error body, which
// also carries the partial run.
func (s *Server) handlePipeline(c *gin.Context) {
	var req pipelineRequest
	if !bind(c, &req) {
		return
	}
	policy, err := pipeline.ParsePolicy(req.Policy)
	if err != nil {
		respondError(c, err)
		return
	}
	run, err := s.svc.RunPipeline(c.Request.Context(), req.Text, req.Models, policy)
	if err != nil {
		respondErrorWith(c, err, run)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) handleHumanize(c *gin.Context) {
	var req humanizeRequest
	if !bind(c, &req) {
		return
	}
	h, err := s.svc.Humanize(c.Request.Context(), req.toService())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h)
}

func (s *Server) handleVerify(c *gin.Context) {
	var req verifyRequest
	if !bind(c, &req) {
		return
	}
	sreq, err := req.toService()
	if err != nil {
		respondError(c, err)
		return
	}
	v, err := s.svc.HumanizeAndVerify(c.Request.Context(), sreq)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) handleRunHistory(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	runs, err := s.svc.RunHistory(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleRun(c *gin.Context) {
	run, err := s.svc.Run(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// handleDetectionHistory lists detections, optionally only those of the
// exact text given in the text query parameter.
func (s *Server) handleDetectionHistory(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	records, err := s.svc.DetectionHistory(c.Request.Context(), c.Query("text"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detections": records})
}

// queryInt parses a non-negative integer query parameter. A missing
// parameter is 0. On a bad value the request is aborted and ok is false.
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		respondInvalid(c, "query parameter "+name+" must be a non-negative integer", nil)
		return 0, false
	}
	return n, true
}
