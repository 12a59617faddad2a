package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperjump/shiori/internal/cli"
	"github.com/hyperjump/shiori/internal/config"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/shiori/config.yaml"
	clientTimeout     = 60 * time.Second
)

var (
	configPath string
	serverURL  string
	outputFlag string
)

var rootCmd = &cobra.Command{
	Use:   "shiori",
	Short: "Document library with chunk search and citation numbering",
	Long: `shiori ingests PDF, DOCX and TXT documents, splits them into embedded chunks
and serves hybrid chunk search and citation numbering over HTTP.

Run "shiori server" to start the API; the other commands talk to a running server.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "config file path")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (default: derived from the config)")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "text", "output format: text or json")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory wins if it exists. A missing default file yields the built-in defaults and an
// empty path, so nothing is saved back.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				cfg, err := config.Load(fallback)
				if err != nil {
					return nil, "", err
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// resolveServerURL returns --server, or the address of the configured server.
func resolveServerURL(cfg *config.Config) string {
	if serverURL != "" {
		return serverURL
	}
	host := cfg.Server.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, cfg.Server.Port)
}

// clientContext bundles what every client command needs.
type clientContext struct {
	cfg    *config.Config
	client *cli.Client
	format cli.OutputFormat
}

func newClientContext() (*clientContext, error) {
	format, err := cli.ParseOutputFormat(outputFlag)
	if err != nil {
		return nil, err
	}
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return &clientContext{
		cfg:    cfg,
		client: cli.NewClient(resolveServerURL(cfg), clientTimeout),
		format: format,
	}, nil
}

// buildSearchQuery joins all positional args so multi-word queries work with or without
// shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
