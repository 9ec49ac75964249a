package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v2"
)

const (
	DefaultMprisService = "org.mpris.MediaPlayer2.spotify"
	DefaultLrclibGetURL = "https://lrclib.net/api/get"
	HTTPTimeoutSeconds  = 10
	PollInterval        = 50 * time.Millisecond

	appDirName     = "linesync"
	configFileName = "config.yaml"
)

var (
	PlayerBackends  = []string{"mpris", "mpd"}
	StoreKinds      = []string{"disk", "sqlite"}
	ProviderNames   = []string{"local", "lrclib", "lrclib-search"}
	PlayerTypes     = []string{"classic", "compact", "big"}
	ThumbnailStyles = []string{"kitty", "halfblock", "none"}
	LyricsColors    = []string{"palette", "theme", "mono"}
	LyricsOutlines  = []string{"none", "shadow", "glow", "border"}
	Alignments      = []string{"center", "left"}
	PipeOverflows   = []string{"word", "none", "ellipsis"}
)

// Config is passed around by value; nothing holds on to a pointer into the
// store's copy.
type Config struct {
	Player  PlayerConfig  `yaml:"player"`
	Lyrics  LyricsConfig  `yaml:"lyrics"`
	Sync    SyncConfig    `yaml:"sync"`
	Display DisplayConfig `yaml:"display"`
	Pipe    PipeConfig    `yaml:"pipe"`
	Log     LogConfig     `yaml:"log"`
}

type PlayerConfig struct {
	Backend      string `yaml:"backend" default:"mpris"`
	MprisService string `yaml:"mpris_service" default:"org.mpris.MediaPlayer2.spotify"`
	MpdAddress   string `yaml:"mpd_address" default:"localhost:6600"`
	MpdPassword  string `yaml:"mpd_password"`
}

type LyricsConfig struct {
	Providers  []string `yaml:"providers" default:"[\"local\",\"lrclib\",\"lrclib-search\"]"`
	LrclibURL  string   `yaml:"lrclib_url" default:"https://lrclib.net/api/get"`
	LocalDir   string   `yaml:"local_dir"`
	Store      string   `yaml:"store" default:"disk"`
	SqlitePath string   `yaml:"sqlite_path"`
	NoCache    bool     `yaml:"no_cache"`
	Enabled    bool     `yaml:"enabled" default:"true"`
}

type SyncConfig struct {
	OffsetMs     int64         `yaml:"offset_ms"`
	BiasMs       int64         `yaml:"bias_ms" default:"50"`
	PollInterval time.Duration `yaml:"poll_interval" default:"50ms"`
}

type DisplayConfig struct {
	PlayerType    string `yaml:"player_type" default:"classic"`
	Thumbnail     string `yaml:"thumbnail" default:"halfblock"`
	LyricsColor   string `yaml:"lyrics_color" default:"palette"`
	LyricsOutline string `yaml:"lyrics_outline" default:"none"`
	Alignment     string `yaml:"alignment" default:"center"`
	HideHeader    bool   `yaml:"hide_header"`
}

type PipeConfig struct {
	Length   int    `yaml:"length"`
	Overflow string `yaml:"overflow" default:"word"`
}

type LogConfig struct {
	Level string `yaml:"level" default:"info"`
	File  string `yaml:"file"`
}

// Default returns a config with every default applied.
func Default() Config {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		// tags are static, this only fires on a programming error
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// DefaultPath is $XDG_CONFIG_HOME/linesync/config.yaml.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appDirName, configFileName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return configFileName
	}
	return filepath.Join(home, ".config", appDirName, configFileName)
}

// StateDir is where logs and the sqlite store live by default.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return appDirName
	}
	return filepath.Join(home, ".local", "state", appDirName)
}

// Load reads path on top of the defaults. A missing file is not an error.
// Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return Config{}, err
	}
	ApplyEnv(&cfg)
	return cfg, cfg.Validate()
}

func readFile(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv overrides cfg from the environment.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("MPRIS_SERVICE"); v != "" {
		cfg.Player.MprisService = v
	}
	if v := os.Getenv("LINESYNC_PLAYER"); v != "" {
		cfg.Player.Backend = v
	}
	if v := os.Getenv("MPD_HOST"); v != "" {
		cfg.Player.MpdAddress = v
	}
	if v := os.Getenv("LRCLIB_GET_URL"); v != "" {
		cfg.Lyrics.LrclibURL = v
	}
	if v := os.Getenv("SYNC_OFFSET"); v != "" {
		// seconds, as the older viewer took it
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Sync.OffsetMs = int64(math.Round(secs * 1000))
		}
	}
	if v := os.Getenv("HIDE_HEADER"); v != "" {
		cfg.Display.HideHeader = v == "1" || v == "true" || v == "yes"
	}
}

func (c Config) Validate() error {
	var errs []error

	check := func(field, value string, allowed []string) {
		if !slices.Contains(allowed, value) {
			errs = append(errs, fmt.Errorf("%s: %q is not one of %s", field, value, strings.Join(allowed, ", ")))
		}
	}

	check("player.backend", c.Player.Backend, PlayerBackends)
	check("lyrics.store", c.Lyrics.Store, StoreKinds)
	check("display.player_type", c.Display.PlayerType, PlayerTypes)
	check("display.thumbnail", c.Display.Thumbnail, ThumbnailStyles)
	check("display.lyrics_color", c.Display.LyricsColor, LyricsColors)
	check("display.lyrics_outline", c.Display.LyricsOutline, LyricsOutlines)
	check("display.alignment", c.Display.Alignment, Alignments)
	check("pipe.overflow", c.Pipe.Overflow, PipeOverflows)

	for _, name := range c.Lyrics.Providers {
		check("lyrics.providers", name, ProviderNames)
	}
	if len(c.Lyrics.Providers) == 0 {
		errs = append(errs, errors.New("lyrics.providers: at least one provider is required"))
	}
	if c.Sync.PollInterval <= 0 {
		errs = append(errs, errors.New("sync.poll_interval: must be positive"))
	}
	if c.Pipe.Length < 0 {
		errs = append(errs, errors.New("pipe.length: must not be negative"))
	}

	return errors.Join(errs...)
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	out := c
	out.Lyrics.Providers = slices.Clone(c.Lyrics.Providers)
	return out
}

// Marshal renders the config as yaml.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Set assigns a single dotted key such as "display.player_type".
func (c *Config) Set(key string, value string) error {
	switch key {
	case "player.backend":
		c.Player.Backend = value
	case "player.mpris_service":
		c.Player.MprisService = value
	case "player.mpd_address":
		c.Player.MpdAddress = value
	case "player.mpd_password":
		c.Player.MpdPassword = value
	case "lyrics.providers":
		c.Lyrics.Providers = splitList(value)
	case "lyrics.lrclib_url":
		c.Lyrics.LrclibURL = value
	case "lyrics.local_dir":
		c.Lyrics.LocalDir = value
	case "lyrics.store":
		c.Lyrics.Store = value
	case "lyrics.sqlite_path":
		c.Lyrics.SqlitePath = value
	case "lyrics.no_cache":
		return setBool(&c.Lyrics.NoCache, value)
	case "lyrics.enabled":
		return setBool(&c.Lyrics.Enabled, value)
	case "sync.offset_ms":
		return setInt(&c.Sync.OffsetMs, value)
	case "sync.bias_ms":
		return setInt(&c.Sync.BiasMs, value)
	case "sync.poll_interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		c.Sync.PollInterval = d
	case "display.player_type":
		c.Display.PlayerType = value
	case "display.thumbnail":
		c.Display.Thumbnail = value
	case "display.lyrics_color":
		c.Display.LyricsColor = value
	case "display.lyrics_outline":
		c.Display.LyricsOutline = value
	case "display.alignment":
		c.Display.Alignment = value
	case "display.hide_header":
		return setBool(&c.Display.HideHeader, value)
	case "pipe.length":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		c.Pipe.Length = n
	case "pipe.overflow":
		c.Pipe.Overflow = value
	case "log.level":
		c.Log.Level = value
	case "log.file":
		c.Log.File = value
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func setBool(dst *bool, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

func setInt(dst *int64, value string) error {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}
