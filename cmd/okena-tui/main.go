package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/okena-dev/okena/internal/remote"
	"github.com/okena-dev/okena/internal/tui"
)

func main() {
	host := flag.String("host", "localhost:8080", "okena daemon remote control plane address")
	token := flag.String("token", os.Getenv("OKENA_TOKEN"), "bearer token issued by 'okena pair' + a pair redemption")
	flag.Parse()

	if *token == "" {
		fmt.Fprintln(os.Stderr, "okena-tui: --token (or OKENA_TOKEN) is required; pair first with 'okena pair'")
		os.Exit(1)
	}

	client := &http.Client{}
	fetch := func() (tui.Snapshot, error) {
		state, err := fetchState(client, *host, *token)
		if err != nil {
			return tui.Snapshot{}, err
		}
		services, err := fetchServices(client, *host, *token)
		if err != nil {
			return tui.Snapshot{}, err
		}
		return tui.Snapshot{State: state, Services: services}, nil
	}

	app := tui.NewApp(fetch)
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "okena-tui: %v\n", err)
		os.Exit(1)
	}
}

func fetchState(client *http.Client, host, token string) (remote.StateSnapshot, error) {
	req, err := http.NewRequest(http.MethodGet, "http://"+host+"/v1/remote/state", nil)
	if err != nil {
		return remote.StateSnapshot{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return remote.StateSnapshot{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return remote.StateSnapshot{}, fmt.Errorf("daemon returned %s: %s", resp.Status, body)
	}

	var state remote.StateSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return remote.StateSnapshot{}, err
	}
	return state, nil
}

func fetchServices(client *http.Client, host, token string) (map[string][]tui.ServiceStatus, error) {
	req, err := http.NewRequest(http.MethodGet, "http://"+host+"/v1/remote/services", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("daemon returned %s: %s", resp.Status, body)
	}

	var services map[string][]tui.ServiceStatus
	if err := json.NewDecoder(resp.Body).Decode(&services); err != nil {
		return nil, err
	}
	return services, nil
}
