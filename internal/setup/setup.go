// Package setup wires the query engine from configuration and registers the
// MCP server with desktop MCP clients.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/tfta-mcp-server/internal/domain"
)

// ServerName is the key the MCP server is registered under.
const ServerName = "tfta"

// Environment variables read by the config manager
const (
	EnvLookupStore       = "TFTA_STORE_TFTA_DB_PATH"
	EnvPerturbationStore = "TFTA_STORE_PERTURBATION_DB_PATH"
	EnvDataDir           = "TFTA_CACHE_DATA_DIR"
)

// ClaudeDesktopConfig represents the Claude Desktop configuration file structure.
type ClaudeDesktopConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
}

// MCPServerConfig represents a single MCP server configuration.
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options contains options for the registration.
type Options struct {
	BinaryPath            string
	LookupStorePath       string
	PerturbationStorePath string
	DataDir               string
	AutoConfirm           bool
}

// GetClaudeDesktopConfigPath returns the path to Claude Desktop's config file.
func GetClaudeDesktopConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "Claude")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config", "Claude")
		}
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		configDir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return filepath.Join(configDir, "claude_desktop_config.json"), nil
}

// LoadClaudeDesktopConfig loads a client configuration. A missing file yields
// an empty configuration.
func LoadClaudeDesktopConfig(configPath string) (*ClaudeDesktopConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &ClaudeDesktopConfig{MCPServers: make(map[string]MCPServerConfig)}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config ClaudeDesktopConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if config.MCPServers == nil {
		config.MCPServers = make(map[string]MCPServerConfig)
	}
	return &config, nil
}

// SaveClaudeDesktopConfig writes a client configuration, creating its
// directory.
func SaveClaudeDesktopConfig(configPath string, config *ClaudeDesktopConfig) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Register adds or replaces the server entry in the client configuration at
// configPath. Other servers are kept.
func Register(configPath string, opts Options) error {
	config, err := LoadClaudeDesktopConfig(configPath)
	if err != nil {
		return err
	}

	binaryPath := opts.BinaryPath
	if binaryPath == "" {
		if binaryPath, err = findBinary(); err != nil {
			return fmt.Errorf("could not find server binary: %w", err)
		}
	}

	server := MCPServerConfig{Command: binaryPath, Env: make(map[string]string)}
	for env, value := range map[string]string{
		EnvLookupStore:       opts.LookupStorePath,
		EnvPerturbationStore: opts.PerturbationStorePath,
		EnvDataDir:           opts.DataDir,
	} {
		if value == "" {
			continue
		}
		if abs, err := filepath.Abs(value); err == nil {
			value = abs
		}
		server.Env[env] = value
	}
	config.MCPServers[ServerName] = server

	return SaveClaudeDesktopConfig(configPath, config)
}

// findBinary attempts to find the server binary in common locations.
func findBinary() (string, error) {
	const binaryName = "mcp-server"
	if path, err := exec.LookPath(binaryName); err == nil {
		return path, nil
	}

	locations := []string{
		"./" + binaryName,
		"./build/" + binaryName,
		filepath.Join(os.Getenv("HOME"), ".local", "bin", binaryName),
		"/usr/local/bin/" + binaryName,
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			if abs, err := filepath.Abs(loc); err == nil {
				return abs, nil
			}
			return loc, nil
		}
	}
	return "", fmt.Errorf("binary '%s' not found in common locations", binaryName)
}

// Status represents the current setup status.
type Status struct {
	ClientConfigPath  string
	Registered        bool
	ServerPath        string
	LookupStore       string
	LookupStoreOK     bool
	PerturbationStore string
	PerturbationOK    bool
	Issues            []string
}

// GetStatus inspects the client registration and the store files. Store
// paths registered with the client take precedence over cfg.
func GetStatus(configPath string, cfg *domain.Config) *Status {
	status := &Status{
		ClientConfigPath:  configPath,
		LookupStore:       cfg.Store.TFTADBPath,
		PerturbationStore: cfg.Store.PerturbationDBPath,
	}

	config, err := LoadClaudeDesktopConfig(configPath)
	if err != nil {
		status.Issues = append(status.Issues, fmt.Sprintf("Could not load client config: %v", err))
	} else if server, ok := config.MCPServers[ServerName]; ok {
		status.Registered = true
		status.ServerPath = server.Command
		if _, err := os.Stat(server.Command); err != nil {
			status.Issues = append(status.Issues, fmt.Sprintf("Server binary not found at: %s", server.Command))
		}
		if p := server.Env[EnvLookupStore]; p != "" {
			status.LookupStore = p
		}
		if p := server.Env[EnvPerturbationStore]; p != "" {
			status.PerturbationStore = p
		}
	} else {
		status.Issues = append(status.Issues, "Server is not registered with the MCP client")
	}

	status.LookupStoreOK = fileExists(status.LookupStore)
	if !status.LookupStoreOK {
		status.Issues = append(status.Issues, fmt.Sprintf("Lookup store not found: %s (queries will return empty results)", status.LookupStore))
	}
	status.PerturbationOK = fileExists(status.PerturbationStore)
	if !status.PerturbationOK {
		status.Issues = append(status.Issues, fmt.Sprintf("Perturbation store not found: %s", status.PerturbationStore))
	}
	return status
}

// Validate reports whether the server is registered and its binary and
// lookup store exist. A missing perturbation store is not fatal.
func Validate(configPath string, cfg *domain.Config) (bool, []string) {
	status := GetStatus(configPath, cfg)
	ok := status.Registered && status.LookupStoreOK && fileExists(status.ServerPath)
	return ok, status.Issues
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
