package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tidwall/jsonc"
)

// ServerSettings configures the headless HTTP server.
type ServerSettings struct {
	Port     int    `json:"port,omitempty"`
	Hostname string `json:"hostname,omitempty"`
}

// Settings is the varlet application configuration. Every field is
// optional; flags override files, files override defaults.
type Settings struct {
	Schema string `json:"$schema,omitempty"`

	// LogLevel is the minimum log level (DEBUG|INFO|WARN|ERROR).
	LogLevel string `json:"logLevel,omitempty"`

	// StoreDir overrides where the service configuration store lives.
	StoreDir string `json:"storeDir,omitempty"`

	// SettingsRoot is a central settings tree to watch and auto-import.
	SettingsRoot string `json:"settingsRoot,omitempty"`

	// Sources is an ordered source list activated at startup.
	Sources []string `json:"sources,omitempty"`

	Server *ServerSettings `json:"server,omitempty"`
}

// Load loads configuration from multiple sources (priority order):
//  1. Global config (~/.config/varlet/)
//  2. Project config (varlet.json / .varlet/varlet.json)
//  3. VARLET_CONFIG file
//  4. VARLET_CONFIG_CONTENT inline JSON
//  5. Environment variables
func Load(directory string) (*Settings, error) {
	settings := &Settings{}

	loaded := make(map[string]bool)
	loadOnce := func(path string, baseDir string) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return
		}
		if loaded[absPath] {
			return
		}
		if loadSettingsFile(path, settings, baseDir) == nil {
			loaded[absPath] = true
		}
	}

	globalPath := GetPaths().Config
	loadOnce(filepath.Join(globalPath, "varlet.json"), globalPath)
	loadOnce(filepath.Join(globalPath, "varlet.jsonc"), globalPath)

	if directory != "" {
		projectDir := filepath.Join(directory, ".varlet")
		loadOnce(filepath.Join(directory, "varlet.json"), directory)
		loadOnce(filepath.Join(directory, "varlet.jsonc"), directory)
		loadOnce(filepath.Join(projectDir, "varlet.json"), projectDir)
		loadOnce(filepath.Join(projectDir, "varlet.jsonc"), projectDir)
	}

	if configPath := os.Getenv("VARLET_CONFIG"); configPath != "" {
		loadOnce(configPath, filepath.Dir(configPath))
	}

	if content := os.Getenv("VARLET_CONFIG_CONTENT"); content != "" {
		var inline Settings
		if err := json.Unmarshal([]byte(content), &inline); err == nil {
			merge(settings, &inline)
		}
	}

	applyEnvOverrides(settings)
	return settings, nil
}

// loadSettingsFile loads a single config file with interpolation support.
func loadSettingsFile(path string, settings *Settings, baseDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	data = jsonc.ToJSON(data)
	data = interpolate(data, baseDir)

	var fileSettings Settings
	if err := json.Unmarshal(data, &fileSettings); err != nil {
		return err
	}

	merge(settings, &fileSettings)
	return nil
}

// interpolate processes {env:VAR} and {file:path} placeholders inside
// config files.
func interpolate(data []byte, baseDir string) []byte {
	str := string(data)

	envPattern := regexp.MustCompile(`\{env:([^}]+)\}`)
	str = envPattern.ReplaceAllStringFunc(str, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})

	filePattern := regexp.MustCompile(`\{file:([^}]+)\}`)
	str = filePattern.ReplaceAllStringFunc(str, func(match string) string {
		filePath := filePattern.FindStringSubmatch(match)[1]

		if strings.HasPrefix(filePath, "~/") {
			filePath = filepath.Join(os.Getenv("HOME"), filePath[2:])
		} else if !filepath.IsAbs(filePath) {
			filePath = filepath.Join(baseDir, filePath)
		}

		content, err := os.ReadFile(filePath)
		if err != nil {
			return match
		}

		escaped := strings.ReplaceAll(string(content), "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
		escaped = strings.ReplaceAll(escaped, "\n", "\\n")
		escaped = strings.ReplaceAll(escaped, "\r", "\\r")
		escaped = strings.ReplaceAll(escaped, "\t", "\\t")
		return escaped
	})

	return []byte(str)
}

// merge merges source settings into target. Scalars replace, the source
// list replaces wholesale: partial source lists are ambiguous.
func merge(target, source *Settings) {
	if source.Schema != "" {
		target.Schema = source.Schema
	}
	if source.LogLevel != "" {
		target.LogLevel = source.LogLevel
	}
	if source.StoreDir != "" {
		target.StoreDir = source.StoreDir
	}
	if source.SettingsRoot != "" {
		target.SettingsRoot = source.SettingsRoot
	}
	if source.Sources != nil {
		target.Sources = append([]string(nil), source.Sources...)
	}
	if source.Server != nil {
		if target.Server == nil {
			target.Server = &ServerSettings{}
		}
		if source.Server.Port != 0 {
			target.Server.Port = source.Server.Port
		}
		if source.Server.Hostname != "" {
			target.Server.Hostname = source.Server.Hostname
		}
	}
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(settings *Settings) {
	if level := os.Getenv("VARLET_LOG_LEVEL"); level != "" {
		settings.LogLevel = level
	}
	if dir := os.Getenv("VARLET_STORE_DIR"); dir != "" {
		settings.StoreDir = dir
	}
	if root := os.Getenv("VARLET_SETTINGS_ROOT"); root != "" {
		settings.SettingsRoot = root
	}
}

// Save saves the settings to a file.
func Save(settings *Settings, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
