package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/okena-dev/okena/internal/persistence"
	"github.com/okena-dev/okena/internal/remote"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "connect":
		if len(os.Args) < 3 {
			fmt.Println("usage: okena-cli connect <connection-name>")
			os.Exit(1)
		}
		if err := runConnect(os.Args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "connect failed: %v\n", err)
			os.Exit(1)
		}
	case "status":
		host := "localhost:8080"
		if len(os.Args) >= 3 {
			host = os.Args[2]
		}
		if err := runStatus(host); err != nil {
			fmt.Fprintf(os.Stderr, "status check failed: %v\n", err)
			os.Exit(1)
		}
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// runConnect looks up a saved remote connection by name in settings.json
// and dials it, printing workspace snapshots as they arrive until
// interrupted.
func runConnect(name string) error {
	store, err := persistence.NewStore(defaultConfigDir())
	if err != nil {
		return err
	}
	settings, err := store.LoadSettings()
	if err != nil {
		return err
	}

	var cfg *persistence.RemoteConnectionConfig
	for i := range settings.RemoteConnections {
		if settings.RemoteConnections[i].Name == name {
			cfg = &settings.RemoteConnections[i]
			break
		}
	}
	if cfg == nil {
		return fmt.Errorf("no saved remote connection named %q", name)
	}

	rc := remote.NewRemoteConnection(*cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go rc.Run(func(state remote.StateSnapshot) {
		fmt.Printf("state_version=%d projects=%d\n", state.StateVersion, len(state.ProjectOrder))
	})

	<-ctx.Done()
	return nil
}

func runStatus(host string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + host + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}
	fmt.Printf("%s: %v\n", host, body["status"])
	return nil
}

func defaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".okena"
	}
	return home + "/.okena"
}

func printUsage() {
	fmt.Println("okena-cli - interact with an okena daemon from the command line")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  okena-cli <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  connect <name>   Connect to a saved remote okena session by name")
	fmt.Println("  status [host]    Check a daemon's health endpoint (default localhost:8080)")
	fmt.Println("  help             Show this help message")
}
