package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tubechat/tubechat/engine/core"
	"github.com/tubechat/tubechat/pkg/logger"
)

// Reply is the assistant answer with the material mode that produced it.
type Reply struct {
	Text   string `json:"reply"`
	Mode   string `json:"mode"`
	Reason string `json:"reason,omitempty"`
}

type Service struct {
	model       llms.Model
	temperature float64
	tokens      *TokenEstimator
}

func NewService(model llms.Model, temperature float64) (*Service, error) {
	if model == nil {
		return nil, errors.New("chat: model is required")
	}
	return &Service{model: model, temperature: temperature, tokens: &TokenEstimator{}}, nil
}

// Answer sends the assembled context to the model.
func (s *Service) Answer(ctx context.Context, in ContextInput) core.Result[Reply] {
	if strings.TrimSpace(in.Message) == "" {
		return core.Err[Reply](core.KindInvalidInput, "message is required")
	}
	log := logger.FromContext(ctx)
	messages := BuildMessages(in)
	log.Debug("Prompt assembled",
		"mode", in.Decision.Mode,
		"history_turns", len(in.History),
		"estimated_tokens", s.estimate(messages),
	)
	resp, err := s.model.GenerateContent(ctx, messages, llms.WithTemperature(s.temperature))
	if err != nil {
		return core.Wrap[Reply](core.KindUnavailable, "language model request failed", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return core.Err[Reply](core.KindUnavailable, "language model returned no choices")
	}
	return core.Ok(Reply{
		Text:   resp.Choices[0].Content,
		Mode:   string(in.Decision.Mode),
		Reason: in.Decision.Reason,
	})
}

// Complete runs a single prompt, used for summaries.
func (s *Service) Complete(ctx context.Context, system, prompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	resp, err := s.model.GenerateContent(ctx, messages, llms.WithTemperature(s.temperature))
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("generate: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

func (s *Service) estimate(messages []llms.MessageContent) int {
	if s.tokens == nil {
		return 0
	}
	total := 0
	for _, m := range messages {
		for _, part := range m.Parts {
			if text, ok := part.(llms.TextContent); ok {
				total += s.tokens.Count(text.Text)
			}
		}
	}
	return total
}
