package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/okena-dev/okena/internal/app"
	"github.com/okena-dev/okena/internal/config"
	"github.com/okena-dev/okena/internal/logger"
	"github.com/okena-dev/okena/internal/persistence"
)

// Version information, set from main via SetVersionInfo.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

// SetVersionInfo sets the version information from the main package
func SetVersionInfo(v, c, d, b string) {
	version = v
	commit = c
	date = d
	builtBy = b
}

var (
	listenAddr string
	headless   bool
)

var rootCmd = &cobra.Command{
	Use:   "okena",
	Short: "okena - a multi-project terminal workspace daemon",
	Long: `# okena

**A daemon that manages PTY-backed terminals arranged in recursive
split/tab layouts across multiple projects, with an optional remote
control plane for phone/browser clients.**

## Features

- Recursive split/tab terminal layouts per project
- Persisted workspace state across restarts
- Per-project background service supervision (` + "`okena.yaml`" + `)
- Paired remote clients over a brotli-compressed WebSocket stream

## Getting Started

Run **okena serve** to start the daemon. Run **okena pair** on the same
host to print a one-time pairing code that a remote client redeems.`,
	Version: version,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	serveCmd.Flags().StringVar(&listenAddr, "listen", envOr("OKENA_LISTEN", ":8080"), "address the remote control plane listens on")
	serveCmd.Flags().BoolVar(&headless, "headless", false, "disable the remote control plane entirely")
	pairCmd.Flags().StringVar(&pairAddr, "daemon", envOr("OKENA_LISTEN", "localhost:8080"), "address of the running daemon's remote control plane")

	rootCmd.AddCommand(versionCmd, serveCmd, pairCmd)

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		renderMarkdownHelp(cmd)
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  "Display detailed version information including build date and commit.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("okena version %s\n", version)
		if commit != "none" && commit != "unknown" && commit != "" {
			fmt.Printf("Git commit: %s\n", commit)
		}
		if date != "unknown" && date != "" {
			fmt.Printf("Built: %s\n", date)
		}
		if builtBy != "unknown" && builtBy != "" {
			fmt.Printf("Built by: %s\n", builtBy)
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the okena daemon",
	Long:  "Load the persisted workspace, start every project's service supervisor, and (unless --headless) listen for remote clients.",
	RunE:  runServe,
}

var pairAddr string

var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Print a fresh pairing code for a remote client",
	Long:  "Requires a running daemon on this host; talk to it over the local loopback control plane and print a one-time pairing code valid for 60 seconds.",
	RunE:  runPair,
}

func runServe(cmd *cobra.Command, args []string) error {
	logger.Configure(logger.GetLogLevelFromEnv(false), false)

	store, err := persistence.NewStore(config.Runtime.ConfigDir)
	if err != nil {
		return err
	}

	a, err := app.New(store)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Infof("shutting down")
		cancel()
	}()

	if !headless {
		go func() {
			logger.Infof("remote control plane listening on %s", listenAddr)
			if err := a.Server.Listen(listenAddr); err != nil {
				logger.Errorf("remote server stopped: %v", err)
			}
		}()
	}

	a.Run(ctx)
	return nil
}

func runPair(cmd *cobra.Command, args []string) error {
	addr := pairAddr
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}

	resp, err := http.Post(addr+"/v1/remote/pairing-code", "application/json", nil)
	if err != nil {
		return fmt.Errorf("could not reach okena daemon at %s: %w", pairAddr, err)
	}
	defer resp.Body.Close()

	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("unexpected response from daemon: %w", err)
	}

	fmt.Printf("Pairing code (valid 60s): %s\n", body.Code)
	return nil
}

// renderMarkdownHelp renders command help using glamour for consistent
// markdown-rendered long help across every subcommand.
func renderMarkdownHelp(cmd *cobra.Command) {
	var helpContent strings.Builder

	if cmd.Long != "" {
		helpContent.WriteString(cmd.Long)
		helpContent.WriteString("\n\n")
	} else if cmd.Short != "" {
		helpContent.WriteString("# " + cmd.Short)
		helpContent.WriteString("\n\n")
	}

	helpContent.WriteString("## Usage\n\n")
	helpContent.WriteString("```bash\n")
	helpContent.WriteString(cmd.UseLine())
	helpContent.WriteString("\n```\n\n")

	if cmd.HasAvailableSubCommands() {
		helpContent.WriteString("## Available Commands\n\n")
		for _, subCmd := range cmd.Commands() {
			if subCmd.IsAvailableCommand() {
				helpContent.WriteString(fmt.Sprintf("- **%s** - %s\n", subCmd.Name(), subCmd.Short))
			}
		}
		helpContent.WriteString("\n")
	}

	if cmd.HasAvailableFlags() {
		helpContent.WriteString("## Flags\n\n")
		flagUsages := cmd.Flags().FlagUsages()
		if flagUsages != "" {
			helpContent.WriteString("```\n")
			helpContent.WriteString(flagUsages)
			helpContent.WriteString("```\n\n")
		}
	}

	if cmd.HasParent() && cmd.InheritedFlags().HasFlags() {
		helpContent.WriteString("## Global Flags\n\n")
		inheritedUsages := cmd.InheritedFlags().FlagUsages()
		if inheritedUsages != "" {
			helpContent.WriteString("```\n")
			helpContent.WriteString(inheritedUsages)
			helpContent.WriteString("```\n\n")
		}
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		_ = cmd.Help()
		return
	}

	rendered, err := renderer.Render(helpContent.String())
	if err != nil {
		_ = cmd.Help()
		return
	}

	fmt.Print(rendered)
}
