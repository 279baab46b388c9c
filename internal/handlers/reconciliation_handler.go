package handler

import (
	"errors"
	"net/http"
	"strconv"

	"document-reconciliation-backend/internal/logger"
	"document-reconciliation-backend/internal/models"
	"document-reconciliation-backend/internal/repository"
	service "document-reconciliation-backend/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ReconciliationHandler struct {
	service *service.Service
}

func NewReconciliationHandler(s *service.Service) *ReconciliationHandler {
	return &ReconciliationHandler{service: s}
}

type runAssignmentRequest struct {
	Year                int     `json:"year"`
	Month               int     `json:"month"`
	AccountID           *string `json:"account_id"`
	IncludeAutoAttached *bool   `json:"include_auto_attached"`
}

// RunAssignment starts an automatic assignment pass and returns its summary.
func (h *ReconciliationHandler) RunAssignment(c *gin.Context) {
	var payload runAssignmentRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	scope := service.Scope{
		Period:              repository.PeriodFilter{Year: payload.Year, Month: payload.Month},
		IncludeAutoAttached: payload.IncludeAutoAttached,
	}
	if payload.AccountID != nil && *payload.AccountID != "" {
		accountID, err := uuid.Parse(*payload.AccountID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account ID"})
			return
		}
		scope.AccountID = &accountID
	}

	result, err := h.service.RunAutomaticAssignment(c.Request.Context(), scope)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ReconciliationHandler) GetRun(c *gin.Context) {
	runID, ok := parseID(c, "runId", "invalid run ID")
	if !ok {
		return
	}

	run, err := h.service.GetRun(c.Request.Context(), runID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":              run.ID,
		"status":          run.Status,
		"total":           run.TotalTransactions,
		"matched_count":   run.MatchedCount,
		"unmatched_count": run.UnmatchedCount,
		"error":           run.Error,
		"started_at":      run.StartedAt,
		"completed_at":    run.CompletedAt,
		"outcomes":        run.Outcomes,
	})
}

// ScoreCandidates explains how each eligible document scores against a transaction.
func (h *ReconciliationHandler) ScoreCandidates(c *gin.Context) {
	txID, ok := parseID(c, "id", "invalid transaction ID")
	if !ok {
		return
	}

	candidates, err := h.service.ScoreCandidates(c.Request.Context(), txID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": candidates})
}

func (h *ReconciliationHandler) ListAttachments(c *gin.Context) {
	txID, ok := parseID(c, "id", "invalid transaction ID")
	if !ok {
		return
	}

	attachments, err := h.service.ListAttachments(c.Request.Context(), txID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": attachments})
}

func (h *ReconciliationHandler) AttachManually(c *gin.Context) {
	txID, ok := parseID(c, "id", "invalid transaction ID")
	if !ok {
		return
	}

	var payload struct {
		DocumentID string  `json:"document_id"`
		ActorID    *string `json:"actor_id"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	docID, err := uuid.Parse(payload.DocumentID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document ID"})
		return
	}

	attachment, err := h.service.AttachManually(c.Request.Context(), txID, docID, payload.ActorID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "document attached", "attachment": attachment})
}

func (h *ReconciliationHandler) Detach(c *gin.Context) {
	attachmentID, ok := parseID(c, "id", "invalid attachment ID")
	if !ok {
		return
	}

	var actor *string
	if v := c.GetHeader("X-Actor-ID"); v != "" {
		actor = &v
	}

	attachment, err := h.service.Detach(c.Request.Context(), attachmentID, actor)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "attachment removed", "attachment": attachment})
}

func (h *ReconciliationHandler) AmountCheck(c *gin.Context) {
	txID, ok := parseID(c, "id", "invalid transaction ID")
	if !ok {
		return
	}

	check, err := h.service.CheckAmountConsistency(c.Request.Context(), txID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, check)
}

func (h *ReconciliationHandler) SearchDocuments(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	docs, err := h.service.SearchDocuments(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": docs})
}

func (h *ReconciliationHandler) ListPatternRules(c *gin.Context) {
	rules, err := h.service.ListPatternRules(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rules})
}

func (h *ReconciliationHandler) CreatePatternRule(c *gin.Context) {
	var payload struct {
		Receiver           string `json:"receiver"`
		CommentPattern     string `json:"comment_pattern"`
		RequireAmountMatch bool   `json:"require_amount_match"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	rule := &models.PatternRule{
		Receiver:           payload.Receiver,
		CommentPattern:     payload.CommentPattern,
		RequireAmountMatch: payload.RequireAmountMatch,
	}
	if err := h.service.CreatePatternRule(c.Request.Context(), rule); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func parseID(c *gin.Context, param, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": message})
		return uuid.Nil, false
	}
	return id, true
}

func (h *ReconciliationHandler) writeError(c *gin.Context, err error) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrDuplicatePair):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log := logger.FromContext(c.Request.Context())
		log.Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
