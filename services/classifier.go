package services

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"
)

// FallbackDomain is reported whenever classification fails.
const FallbackDomain = "Legal"

// DomainClassifier labels a query with legal domains. The label is display
// metadata only and never affects routing.
type DomainClassifier interface {
	Classify(ctx context.Context, query string) string
}

type classifierImpl struct {
	completer Completer
	logger    *zap.Logger
}

func NewDomainClassifier(completer Completer, logger *zap.Logger) DomainClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &classifierImpl{completer: completer, logger: logger}
}

func (c *classifierImpl) Classify(ctx context.Context, query string) string {
	out, err := c.completer.Complete(ctx, CompletionRequest{
		Prompt: classificationPrompt(query),
		Schema: domainSchema(),
	})
	if err != nil {
		c.logger.Warn("domain classification failed, using fallback", zap.Error(err))
		return FallbackDomain
	}
	label := parseDomainLabel(out)
	if label == "" {
		return FallbackDomain
	}
	return label
}

// parseDomainLabel joins a JSON array of labels with commas. Any other
// output is taken as the label text itself.
func parseDomainLabel(out string) string {
	cleaned := stripCodeFence(out)
	var labels []string
	if err := json.Unmarshal([]byte(cleaned), &labels); err != nil {
		return cleaned
	}
	kept := labels[:0]
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, ", ")
}
