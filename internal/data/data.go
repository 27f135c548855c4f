package data

import (
	"io"

	"github.com/DevRickLin/whats-live/internal/biz/repo"
)

// Repositories contains all repositories
type Repositories struct {
	Settings   repo.SettingsRepo
	Classifier repo.Classifier // nil when no LLM is configured
}

// NewRepositories creates all repositories. chat may be nil.
func NewRepositories(settingsDBPath string, chat ChatClient, classifierPrompt string) (*Repositories, error) {
	settingsRepo, err := NewSettingsRepo(settingsDBPath)
	if err != nil {
		return nil, err
	}

	repos := &Repositories{Settings: settingsRepo}
	if chat != nil {
		repos.Classifier = NewClassifierRepo(chat, classifierPrompt)
	}
	return repos, nil
}

// Close releases the settings database
func (r *Repositories) Close() error {
	if c, ok := r.Settings.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
