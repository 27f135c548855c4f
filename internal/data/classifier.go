package data

import (
	"context"
	"fmt"
	"strings"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
	"github.com/DevRickLin/whats-live/internal/biz/repo"
)

// ChatClient is the completion call the classifier needs
type ChatClient interface {
	Chat(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// classifierRepo implements repo.Classifier with an LLM
type classifierRepo struct {
	client       ChatClient
	systemPrompt string
}

// NewClassifierRepo creates an LLM-backed classifier. A nil client returns nil.
func NewClassifierRepo(client ChatClient, systemPrompt string) repo.Classifier {
	if client == nil {
		return nil
	}
	return &classifierRepo{client: client, systemPrompt: systemPrompt}
}

// Classify asks the model for a one-word label
func (r *classifierRepo) Classify(ctx context.Context, content string) (domain.MessageType, error) {
	resp, err := r.client.Chat(ctx, r.systemPrompt, content)
	if err != nil {
		return "", err
	}
	return parseLabel(resp)
}

func parseLabel(resp string) (domain.MessageType, error) {
	label := strings.ToLower(strings.Trim(strings.TrimSpace(resp), ".!\"'`*"))
	for _, t := range []domain.MessageType{domain.MessageTypePrayer, domain.MessageTypeTestimony, domain.MessageTypeNormal} {
		if strings.HasPrefix(label, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unexpected classifier reply %q", resp)
}
