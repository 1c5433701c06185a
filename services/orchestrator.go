package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AnswerRequest is one user query. FileText is text already extracted from
// an uploaded file; SessionID names the conversation and is generated when
// empty.
type AnswerRequest struct {
	Query     string
	Mode      string
	FileText  string
	SessionID string
}

type AnswerResponse struct {
	Response            string
	Domain              string
	Mode                Mode
	ResponseTimeSeconds float64
	SessionID           string
}

// ModeOrchestrator dispatches a request to the strategy its mode selects.
type ModeOrchestrator interface {
	Answer(ctx context.Context, req AnswerRequest) (*AnswerResponse, error)
}

type orchestratorImpl struct {
	classifier  DomainClassifier
	synthesizer AnswerSynthesizer
	logger      *zap.Logger
	now         func() time.Time
}

func NewModeOrchestrator(classifier DomainClassifier, synthesizer AnswerSynthesizer, logger *zap.Logger) ModeOrchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &orchestratorImpl{
		classifier:  classifier,
		synthesizer: synthesizer,
		logger:      logger,
		now:         time.Now,
	}
}

func (o *orchestratorImpl) Answer(ctx context.Context, req AnswerRequest) (*AnswerResponse, error) {
	mode, err := ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}

	query := req.Query
	if req.FileText != "" {
		query = query + "\n\n" + req.FileText
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	start := o.now()
	domain := o.classifier.Classify(ctx, query)

	var response string
	switch mode {
	case ModeChatbot:
		response, err = o.synthesizer.Chat(ctx, sessionID, query)
	case ModeResearch:
		response, err = o.synthesizer.Research(ctx, sessionID, query)
	case ModeDraft:
		response, err = o.synthesizer.Draft(ctx, sessionID, query)
	}
	if err != nil {
		o.logger.Error("strategy failed",
			zap.String("mode", string(mode)), zap.String("session_id", sessionID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	elapsed := o.now().Sub(start).Seconds()
	o.logger.Info("answered query",
		zap.String("mode", string(mode)),
		zap.String("domain", domain),
		zap.String("session_id", sessionID),
		zap.Float64("response_time_seconds", elapsed))

	return &AnswerResponse{
		Response:            response,
		Domain:              domain,
		Mode:                mode,
		ResponseTimeSeconds: elapsed,
		SessionID:           sessionID,
	}, nil
}
