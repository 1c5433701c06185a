package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github/itish2003/legalrag/models"
	"github/itish2003/legalrag/repository"
	"github/itish2003/legalrag/services"
)

// maxUploadBytes caps the size of an uploaded file read into memory.
const maxUploadBytes = 20 << 20

var errFileTooLarge = fmt.Errorf("file exceeds the %d MiB upload limit", maxUploadBytes>>20)

// TextExtractor turns an uploaded file into text.
type TextExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}

// SessionStore drops the generator conversations of a session.
type SessionStore interface {
	Forget(mode services.Mode, sessionID string)
}

// LegalController handles the HTTP requests of the legal assistant API. It
// depends on the orchestrator for answering and on the case repository for
// bookkeeping.
type LegalController struct {
	orchestrator services.ModeOrchestrator
	extractor    TextExtractor
	cases        repository.CaseRepository
	sessions     SessionStore
	logger       *zap.Logger
	maxUpload    int64
}

// NewLegalController is called from main.go to inject the dependencies.
func NewLegalController(orchestrator services.ModeOrchestrator, extractor TextExtractor, cases repository.CaseRepository, sessions SessionStore, logger *zap.Logger) *LegalController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LegalController{
		orchestrator: orchestrator,
		extractor:    extractor,
		cases:        cases,
		sessions:     sessions,
		logger:       logger,
		maxUpload:    maxUploadBytes,
	}
}

// Register mounts the API routes on router.
func (c *LegalController) Register(router gin.IRouter) {
	api := router.Group("/api")
	{
		api.POST("/chat", c.Chat)
		api.POST("/upload", c.Upload)
		api.POST("/case", c.CreateCase)
		api.POST("/case/:id/chat", c.CreateChat)
		api.DELETE("/case/:id/clear", c.ClearCase)
		api.GET("/cases", c.GetCases)
	}
}

// Chat is the handler for POST /api/chat. It accepts a multipart form with
// the message, the mode and an optional file whose text is appended to the
// message.
func (c *LegalController) Chat(ctx *gin.Context) {
	var form models.ChatForm
	if err := ctx.ShouldBind(&form); err != nil {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request: " + err.Error()})
		return
	}

	var fileText string
	if header, err := ctx.FormFile("file"); err == nil {
		text, status, err := c.extractUpload(ctx, header)
		if err != nil {
			ctx.JSON(status, models.ErrorResponse{Error: err.Error()})
			return
		}
		fileText = text
	}

	resp, err := c.orchestrator.Answer(ctx.Request.Context(), services.AnswerRequest{
		Query:     form.Message,
		Mode:      form.Mode,
		FileText:  fileText,
		SessionID: sessionIDFor(form),
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidMode) {
			ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid mode specified"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to generate AI response"})
		return
	}

	if form.CaseID != "" && form.ChatID != "" {
		now := time.Now().UTC()
		err := c.cases.AppendMessages(ctx.Request.Context(), form.CaseID, form.ChatID,
			models.Message{Role: models.RoleUser, Content: form.Message, Mode: string(resp.Mode), CreatedAt: now},
			models.Message{Role: models.RoleModel, Content: resp.Response, Mode: string(resp.Mode), Domain: resp.Domain, CreatedAt: now},
		)
		if err != nil {
			c.logger.Warn("could not record chat messages",
				zap.String("case_id", form.CaseID), zap.String("chat_id", form.ChatID), zap.Error(err))
		}
	}

	ctx.JSON(http.StatusOK, models.ChatResponse{
		Response:     resp.Response,
		Domain:       resp.Domain,
		Mode:         string(resp.Mode),
		ResponseTime: resp.ResponseTimeSeconds,
		SessionID:    resp.SessionID,
	})
}

// Upload is the handler for POST /api/upload. It returns the extracted text.
func (c *LegalController) Upload(ctx *gin.Context) {
	header, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "No file part"})
		return
	}
	if header.Filename == "" {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "No selected file"})
		return
	}

	text, status, err := c.extractUpload(ctx, header)
	if err != nil {
		ctx.JSON(status, models.ErrorResponse{Error: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, models.UploadResponse{FileContent: text})
}

// CreateCase is the handler for POST /api/case.
func (c *LegalController) CreateCase(ctx *gin.Context) {
	created, err := c.cases.CreateCase(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to create case"})
		return
	}
	ctx.JSON(http.StatusOK, created)
}

// CreateChat is the handler for POST /api/case/:id/chat.
func (c *LegalController) CreateChat(ctx *gin.Context) {
	var req models.CreateChatRequest
	// an empty body means a plain chat
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
			return
		}
	}

	chat, err := c.cases.CreateChat(ctx.Request.Context(), ctx.Param("id"), req.Type)
	if err != nil {
		c.repositoryError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, chat)
}

// ClearCase is the handler for DELETE /api/case/:id/clear. The generator
// conversations of the removed chats are dropped with them.
func (c *LegalController) ClearCase(ctx *gin.Context) {
	caseID := ctx.Param("id")
	existing, err := c.cases.GetCase(ctx.Request.Context(), caseID)
	if err != nil {
		c.repositoryError(ctx, err)
		return
	}
	if err := c.cases.ClearCase(ctx.Request.Context(), caseID); err != nil {
		c.repositoryError(ctx, err)
		return
	}
	if c.sessions != nil {
		for _, chat := range existing.Chats {
			for _, mode := range []services.Mode{services.ModeChatbot, services.ModeResearch, services.ModeDraft} {
				c.sessions.Forget(mode, chat.ID)
			}
		}
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Case cleared successfully"})
}

// GetCases is the handler for GET /api/cases.
func (c *LegalController) GetCases(ctx *gin.Context) {
	all, err := c.cases.ListCases(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list cases"})
		return
	}
	ctx.JSON(http.StatusOK, all)
}

func (c *LegalController) repositoryError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrCaseNotFound):
		ctx.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Case not found"})
	case errors.Is(err, repository.ErrChatNotFound):
		ctx.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Chat not found"})
	default:
		ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
	}
}

func (c *LegalController) extractUpload(ctx *gin.Context, header *multipart.FileHeader) (string, int, error) {
	filename := header.Filename
	if header.Size > c.maxUpload {
		return "", http.StatusRequestEntityTooLarge, errFileTooLarge
	}
	f, err := header.Open()
	if err != nil {
		return "", http.StatusBadRequest, err
	}
	defer f.Close()

	// one byte past the limit detects an oversized body
	data, err := io.ReadAll(io.LimitReader(f, c.maxUpload+1))
	if err != nil {
		return "", http.StatusBadRequest, err
	}
	if int64(len(data)) > c.maxUpload {
		return "", http.StatusRequestEntityTooLarge, errFileTooLarge
	}
	text, err := c.extractor.Extract(ctx.Request.Context(), filename, data)
	if err != nil {
		if errors.Is(err, services.ErrUnsupportedFileType) {
			return "", http.StatusBadRequest, errors.New("unsupported file type")
		}
		c.logger.Error("file extraction failed", zap.String("filename", filename), zap.Error(err))
		return "", http.StatusInternalServerError, err
	}
	return text, http.StatusOK, nil
}

// sessionIDFor ties the generator conversation to the case chat when one is
// given.
func sessionIDFor(form models.ChatForm) string {
	if form.SessionID != "" {
		return form.SessionID
	}
	return form.ChatID
}
