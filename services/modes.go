package services

import (
	"fmt"
	"strings"
)

// Mode selects the response strategy for a request.
type Mode string

const (
	ModeChatbot  Mode = "chatbot"
	ModeResearch Mode = "research"
	ModeDraft    Mode = "draft"
)

// ParseMode accepts chatbot, research and draft. An empty value means chatbot.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.TrimSpace(s)); m {
	case "":
		return ModeChatbot, nil
	case ModeChatbot, ModeResearch, ModeDraft:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}
