package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
	"github.com/DevRickLin/whats-live/internal/log"
)

// ContentConfig contains simulation pools and prompts loaded from YAML
type ContentConfig struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Classifier ClassifierPrompts `yaml:"classifier"`
}

// SimulationConfig drives the simulated adapters
type SimulationConfig struct {
	Seed           int64                            `yaml:"seed"` // 0 seeds from the clock
	AvatarTemplate string                           `yaml:"avatar_template"`
	AvatarCount    int                              `yaml:"avatar_count"`
	InitialCount   int                              `yaml:"initial_count"`
	RefreshMin     int                              `yaml:"refresh_min"`
	RefreshMax     int                              `yaml:"refresh_max"`
	Platforms      map[domain.Platform]PlatformPool `yaml:"platforms"`
}

// PlatformPool is the sender/message pool for one simulated platform
type PlatformPool struct {
	Names              []string `yaml:"names"`
	Messages           []string `yaml:"messages"`
	ProfileURLTemplate string   `yaml:"profile_url_template"` // %s receives the sender or a number
	VerifiedRatio      float64  `yaml:"verified_ratio"`
}

// ClassifierPrompts contains the message classifier prompt
type ClassifierPrompts struct {
	SystemPrompt string `yaml:"system_prompt"`
}

// LoadContentConfig loads content configuration from a YAML file
func LoadContentConfig(configPath string) (*ContentConfig, error) {
	logger := log.WithComponent("config")

	// Try multiple paths
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/content.yaml",
			"/etc/whats-live/content.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "content.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	for _, p := range paths {
		if raw, err := os.ReadFile(p); err == nil {
			data, loadedPath = raw, p
			break
		}
	}

	if data == nil {
		logger.Debug().Msg("no content.yaml found, using defaults")
		return DefaultContentConfig(), nil
	}

	logger.Info().Str("path", loadedPath).Msg("loading content config")

	var config ContentConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return DefaultContentConfig(), fmt.Errorf("failed to parse %s: %w", loadedPath, err)
	}
	config.fillDefaults()
	return &config, nil
}

// fillDefaults fills in default values for empty fields
func (c *ContentConfig) fillDefaults() {
	defaults := DefaultContentConfig()

	if c.Simulation.AvatarTemplate == "" {
		c.Simulation.AvatarTemplate = defaults.Simulation.AvatarTemplate
	}
	if c.Simulation.AvatarCount <= 0 {
		c.Simulation.AvatarCount = defaults.Simulation.AvatarCount
	}
	if c.Simulation.InitialCount <= 0 {
		c.Simulation.InitialCount = defaults.Simulation.InitialCount
	}
	if c.Simulation.RefreshMin <= 0 {
		c.Simulation.RefreshMin = defaults.Simulation.RefreshMin
	}
	if c.Simulation.RefreshMax < c.Simulation.RefreshMin {
		c.Simulation.RefreshMax = c.Simulation.RefreshMin
		if defaults.Simulation.RefreshMax > c.Simulation.RefreshMax {
			c.Simulation.RefreshMax = defaults.Simulation.RefreshMax
		}
	}
	if c.Simulation.Platforms == nil {
		c.Simulation.Platforms = make(map[domain.Platform]PlatformPool)
	}
	for p, pool := range defaults.Simulation.Platforms {
		current := c.Simulation.Platforms[p]
		if len(current.Names) == 0 {
			current.Names = pool.Names
		}
		if len(current.Messages) == 0 {
			current.Messages = pool.Messages
		}
		if current.ProfileURLTemplate == "" {
			current.ProfileURLTemplate = pool.ProfileURLTemplate
		}
		if current.VerifiedRatio == 0 {
			current.VerifiedRatio = pool.VerifiedRatio
		}
		c.Simulation.Platforms[p] = current
	}

	if c.Classifier.SystemPrompt == "" {
		c.Classifier.SystemPrompt = defaults.Classifier.SystemPrompt
	}
}

// Pool returns the pool for p, falling back to the WhatsApp pool
func (c *SimulationConfig) Pool(p domain.Platform) PlatformPool {
	if pool, ok := c.Platforms[p]; ok && len(pool.Names) > 0 && len(pool.Messages) > 0 {
		return pool
	}
	return c.Platforms[domain.PlatformWhatsApp]
}

// DefaultContentConfig returns the default content configuration
func DefaultContentConfig() *ContentConfig {
	return &ContentConfig{
		Simulation: SimulationConfig{
			AvatarTemplate: "https://i.pravatar.cc/150?img=%d",
			AvatarCount:    70,
			InitialCount:   5,
			RefreshMin:     3,
			RefreshMax:     7,
			Platforms: map[domain.Platform]PlatformPool{
				domain.PlatformWhatsApp: {
					Names: []string{
						"Ana Silva", "Carlos Oliveira", "Mariana Santos", "Pedro Costa",
						"Juliana Lima", "Rafael Souza", "Fernanda Alves", "Bruno Pereira",
						"Luciana Mendes", "Gustavo Rocha", "Camila Dias", "Diego Cardoso",
					},
					Messages: []string{
						"Hello! I'm loving today's broadcast!",
						"When is the next event?",
						"Congratulations on the work! You are amazing.",
						"This is my first time here, very cool!",
						"Could you talk about topic X next time?",
						"I'm sharing this with all my friends!",
						"Where are you broadcasting from today?",
						"What is the background song?",
					},
				},
				domain.PlatformFacebook: {
					Names: []string{
						"Maria Silva", "João Oliveira", "Ana Santos", "Carlos Pereira",
						"Juliana Costa", "Roberto Almeida", "Fernanda Lima", "Lucas Martins",
					},
					Messages: []string{
						"I love this page's content! I always follow the posts.",
						"When is the next event? I can't wait to join!",
						"Congratulations on the work! You are amazing.",
						"Shared with my friends, everyone loved it!",
						"This stream has excellent quality!",
						"First time watching, I'm already a fan!",
						"Could you talk about topic X next time?",
						"I'm learning so much from you!",
					},
					ProfileURLTemplate: "https://facebook.com/user/%s",
					VerifiedRatio:      0.1,
				},
				domain.PlatformInstagram: {
					Names: []string{
						"ana.fotografia", "viagens_mundo", "fitness.life", "moda_estilo",
						"culinaria_facil", "arte.digital", "musica_boa", "natureza_viva",
					},
					Messages: []string{
						"Amazing content! Which camera do you use?",
						"Loved this live format! Very interactive!",
						"Already saved it to watch later!",
						"You are an inspiration to me!",
						"Where are you streaming from? The place looks amazing!",
						"First time watching, I'm already a fan!",
						"Could you make a tutorial about this?",
						"I'm learning so much from you!",
					},
					ProfileURLTemplate: "https://instagram.com/%s",
					VerifiedRatio:      0.2,
				},
				domain.PlatformYouTube: {
					Names: []string{
						"Channel Fan", "Content Creator", "YouTuber BR", "Online Gamer",
						"Tech Reviewer", "Good Music", "Digital Traveler", "Easy Kitchen",
					},
					Messages: []string{
						"This live is incredible! Congrats on the content!",
						"When is the next event?",
						"Already liked and subscribed!",
						"Could you do a live about topic X?",
						"I'm sharing with all my friends!",
						"Where are you streaming from today?",
						"What is the background song?",
						"First time watching, already a fan!",
					},
					ProfileURLTemplate: "https://youtube.com/user/%s",
					VerifiedRatio:      0.2,
				},
			},
		},
		Classifier: ClassifierPrompts{
			SystemPrompt: `You classify audience messages sent to a live broadcast.
Reply with exactly one word:
- prayer: the sender asks for prayer or intercession for themselves or someone else
- testimony: the sender shares something that happened to them, a story of gratitude or breakthrough
- normal: anything else (greetings, questions, comments)`,
		},
	}
}
