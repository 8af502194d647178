package setup

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tfta-mcp-server/internal/domain"
)

// CLI provides the setup subcommand of the MCP server binary.
type CLI struct {
	config     *domain.Config
	configPath string
	in         *bufio.Reader
	out        io.Writer
}

// NewCLI creates a setup CLI reading prompts from stdin. configPath is the
// client configuration file; empty selects the platform default.
func NewCLI(cfg *domain.Config, configPath string) *CLI {
	return &CLI{
		config:     cfg,
		configPath: configPath,
		in:         bufio.NewReader(os.Stdin),
		out:        os.Stdout,
	}
}

// Run executes the setup command based on the provided arguments.
func (c *CLI) Run(args []string) error {
	if len(args) == 0 {
		return c.showHelp()
	}
	if c.configPath == "" {
		path, err := GetClaudeDesktopConfigPath()
		if err != nil {
			return err
		}
		c.configPath = path
	}

	switch args[0] {
	case "claude-desktop":
		return c.register(args[1:])
	case "status":
		return c.showStatus()
	case "validate":
		return c.validate()
	case "help", "--help", "-h":
		return c.showHelp()
	default:
		fmt.Fprintf(c.out, "Unknown command: %s\n\n", args[0])
		return c.showHelp()
	}
}

func (c *CLI) showHelp() error {
	fmt.Fprintln(c.out, `
TFTA MCP Server Setup

Usage:
  mcp-server setup <command> [options]

Commands:
  claude-desktop  Register the server with Claude Desktop
  status          Show registration and store status
  validate        Check that the registered server can start

Options for claude-desktop:
  --binary, -b        Server binary (default: this executable)
  --store, -s         TF-target lookup store (SQLite)
  --perturbation, -p  Disease perturbation store (SQLite)
  --data-dir, -d      Cache directory for pathway gene sets
  --auto, -y          Do not ask for confirmation`)
	return nil
}

func (c *CLI) register(args []string) error {
	opts := Options{
		LookupStorePath:       c.config.Store.TFTADBPath,
		PerturbationStorePath: c.config.Store.PerturbationDBPath,
		DataDir:               c.config.Cache.DataDir,
	}
	for i := 0; i < len(args); i++ {
		next := func() string {
			if i+1 < len(args) {
				i++
				return args[i]
			}
			return ""
		}
		switch args[i] {
		case "--binary", "-b":
			opts.BinaryPath = next()
		case "--store", "-s":
			opts.LookupStorePath = next()
		case "--perturbation", "-p":
			opts.PerturbationStorePath = next()
		case "--data-dir", "-d":
			opts.DataDir = next()
		case "--auto", "-y":
			opts.AutoConfirm = true
		}
	}
	if opts.BinaryPath == "" {
		if execPath, err := os.Executable(); err == nil {
			opts.BinaryPath = execPath
		}
	}

	fmt.Fprintf(c.out, "Config file:        %s\n", c.configPath)
	fmt.Fprintf(c.out, "Server binary:      %s\n", opts.BinaryPath)
	fmt.Fprintf(c.out, "Lookup store:       %s\n", opts.LookupStorePath)
	fmt.Fprintf(c.out, "Perturbation store: %s\n", opts.PerturbationStorePath)

	if !opts.AutoConfirm {
		fmt.Fprint(c.out, "Proceed with configuration? [Y/n]: ")
		response, _ := c.in.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "" && response != "y" && response != "yes" {
			fmt.Fprintln(c.out, "Configuration cancelled.")
			return nil
		}
	}

	if err := Register(c.configPath, opts); err != nil {
		return fmt.Errorf("failed to register server: %w", err)
	}
	fmt.Fprintln(c.out, "Server registered. Restart Claude Desktop to load it.")
	return nil
}

func (c *CLI) showStatus() error {
	status := GetStatus(c.configPath, c.config)

	fmt.Fprintf(c.out, "Client config: %s\n", status.ClientConfigPath)
	fmt.Fprintf(c.out, "Registered:    %s\n", mark(status.Registered))
	if status.Registered {
		fmt.Fprintf(c.out, "Binary:        %s\n", status.ServerPath)
	}
	fmt.Fprintf(c.out, "Lookup store:  %s %s\n", mark(status.LookupStoreOK), status.LookupStore)
	fmt.Fprintf(c.out, "Perturbation:  %s %s\n", mark(status.PerturbationOK), status.PerturbationStore)
	for _, issue := range status.Issues {
		fmt.Fprintf(c.out, "  ! %s\n", issue)
	}
	return nil
}

func (c *CLI) validate() error {
	ok, issues := Validate(c.configPath, c.config)
	if ok {
		fmt.Fprintln(c.out, "Configuration is valid.")
		return nil
	}
	fmt.Fprintln(c.out, "Configuration has issues:")
	for _, issue := range issues {
		fmt.Fprintf(c.out, "  - %s\n", issue)
	}
	return fmt.Errorf("configuration is not valid")
}

func mark(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}
