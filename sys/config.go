package sys

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Token        string
	GuildID      string
	DatabasePath string
	Silent       bool

	// Catalog (Spotify) credentials; both empty disables link rewriting.
	SpotifyID             string
	SpotifySecret         string
	SpotifyRefreshExpired bool

	MaxTrackSeconds int
	ConfirmTimeout  time.Duration
	PlaylistsDir    string
	YTDLPRate       float64

	Emojis        Emojis
	YoutubePrefix string
	YTMusicPrefix string
}

// Emojis prefix every user-facing status line.
type Emojis struct {
	Success   string
	Warning   string
	Error     string
	Loading   string
	Searching string
}

// LoadConfig initializes the configuration from environment variables.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		folder := "."
		if info, err := os.Stat("data"); err == nil && info.IsDir() {
			folder = "./data"
		}
		dbPath = filepath.Join(folder, GetProjectName()+".db")
	}

	silent, _ := strconv.ParseBool(os.Getenv("SILENT"))
	refreshExpired, _ := strconv.ParseBool(os.Getenv("SPOTIFY_REFRESH_EXPIRED"))

	maxSeconds := 0
	if v := os.Getenv("MAX_TRACK_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf(MsgConfigInvalidDuration, "MAX_TRACK_SECONDS", err)
		}
		maxSeconds = n
	}

	confirmTimeout := 30 * time.Second
	if v := os.Getenv("CONFIRM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf(MsgConfigInvalidDuration, "CONFIRM_TIMEOUT", err)
		}
		confirmTimeout = d
	}

	ytdlpRate := 2.0
	if v := os.Getenv("YTDLP_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf(MsgConfigInvalidDuration, "YTDLP_RATE", err)
		}
		ytdlpRate = f
	}

	cfg := &Config{
		Token:                 os.Getenv("DISCORD_TOKEN"),
		GuildID:               os.Getenv("GUILD_ID"),
		DatabasePath:          dbPath,
		Silent:                silent,
		SpotifyID:             os.Getenv("SPOTIFY_ID"),
		SpotifySecret:         os.Getenv("SPOTIFY_SECRET"),
		SpotifyRefreshExpired: refreshExpired,
		MaxTrackSeconds:       maxSeconds,
		ConfirmTimeout:        confirmTimeout,
		PlaylistsDir:          envOr("PLAYLISTS_DIR", "Playlists"),
		YTDLPRate:             ytdlpRate,
		Emojis: Emojis{
			Success:   envOr("EMOJI_SUCCESS", "🎶"),
			Warning:   envOr("EMOJI_WARNING", "💡"),
			Error:     envOr("EMOJI_ERROR", "🚫"),
			Loading:   envOr("EMOJI_LOADING", "⌚"),
			Searching: envOr("EMOJI_SEARCHING", "🔎"),
		},
		YoutubePrefix: envOr("VOICE_YT_PREFIX", "[YT]"),
		YTMusicPrefix: envOr("VOICE_YTM_PREFIX", "[YTM]"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Silent {
		SetSilentMode(true)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.New(MsgConfigMissingToken)
	}
	if c.GuildID != "" && (len(c.GuildID) < 17 || len(c.GuildID) > 20) {
		return errors.New(MsgConfigInvalidGuildID)
	}
	if c.MaxTrackSeconds < 0 {
		return fmt.Errorf(MsgConfigInvalidDuration, "MAX_TRACK_SECONDS", "must not be negative")
	}
	if c.ConfirmTimeout <= 0 {
		return fmt.Errorf(MsgConfigInvalidDuration, "CONFIRM_TIMEOUT", "must be positive")
	}
	if c.YTDLPRate <= 0 {
		return fmt.Errorf(MsgConfigInvalidDuration, "YTDLP_RATE", "must be positive")
	}
	return nil
}

// CatalogEnabled reports whether both catalog credentials are present.
func (c *Config) CatalogEnabled() bool {
	return c.SpotifyID != "" && c.SpotifySecret != ""
}

// MaxTrackDuration is zero when no limit is configured.
func (c *Config) MaxTrackDuration() time.Duration {
	return time.Duration(c.MaxTrackSeconds) * time.Second
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func GetProjectName() string {
	exePath, err := os.Executable()
	projectName := "bot"
	if err == nil {
		projectName = filepath.Base(exePath)
		projectName = strings.TrimSuffix(projectName, ".exe")

		if projectName == "main" || strings.HasPrefix(projectName, "go_build_") || strings.HasSuffix(projectName, ".test") {
			if modData, err := os.ReadFile("go.mod"); err == nil {
				lines := strings.Split(string(modData), "\n")
				if len(lines) > 0 && strings.HasPrefix(lines[0], "module ") {
					parts := strings.Split(lines[0], "/")
					projectName = strings.TrimSpace(parts[len(parts)-1])
				}
			} else {
				projectName = "bot"
			}
		}
	}
	return projectName
}
