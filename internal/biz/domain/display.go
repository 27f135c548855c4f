package domain

import "time"

// DisplayConfig holds the on-air screen's visual settings
type DisplayConfig struct {
	BackgroundColor     string `json:"background_color"`
	BackgroundImage     string `json:"background_image,omitempty"`
	CardColor           string `json:"card_color"`
	CardOpacity         int    `json:"card_opacity"`
	NameColor           string `json:"name_color"`
	MessageColor        string `json:"message_color"`
	FontFamily          string `json:"font_family"`
	FontSize            int    `json:"font_size"`
	ShowLogo            bool   `json:"show_logo"`
	LogoURL             string `json:"logo_url"`
	ShowProgramName     bool   `json:"show_program_name"`
	ProgramName         string `json:"program_name"`
	ShowPlatformIcon    bool   `json:"show_platform_icon"`
	ShowPlatformName    bool   `json:"show_platform_name"`
	AutoRefreshInterval int    `json:"auto_refresh_interval"` // seconds, 0 disables
}

// DefaultDisplayConfig returns the factory settings
func DefaultDisplayConfig() DisplayConfig {
	return DisplayConfig{
		BackgroundColor:     "#1e1e2e",
		CardColor:           "rgba(255, 255, 255, 0.9)",
		CardOpacity:         90,
		NameColor:           "#000000",
		MessageColor:        "#000000",
		FontFamily:          "sans-serif",
		FontSize:            24,
		ShowPlatformIcon:    true,
		AutoRefreshInterval: 10,
	}
}

// SavedLayout is a named DisplayConfig snapshot
type SavedLayout struct {
	Name      string        `json:"name"`
	Config    DisplayConfig `json:"config"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Program is a named broadcast segment
type Program struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	IsActive    bool       `json:"is_active"`
}

// DisplayQueue is a snapshot of the on-air queue
type DisplayQueue struct {
	Messages []Message `json:"messages"`
	Cursor   int       `json:"cursor"`
	Current  *Message  `json:"current,omitempty"`
}

// HistoryEntry is an immutable record of one promotion
type HistoryEntry struct {
	ID               string      `json:"id"`
	MessageID        string      `json:"message_id"`
	Sender           string      `json:"sender"`
	Content          string      `json:"content"`
	EditedContent    string      `json:"edited_content,omitempty"`
	Platform         Platform    `json:"platform"`
	MessageType      MessageType `json:"message_type,omitempty"`
	ProgramID        string      `json:"program_id,omitempty"`
	ProgramName      string      `json:"program_name,omitempty"`
	ConnectionID     string      `json:"connection_id"`
	Timestamp        time.Time   `json:"timestamp"`
	DisplayTimestamp time.Time   `json:"display_timestamp"`
}

// PlatformStats is a per-platform count
type PlatformStats struct {
	Platform Platform `json:"platform"`
	Count    int      `json:"count"`
}
