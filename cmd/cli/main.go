// Package main provides the command-line client for the smartlist server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/smartlist/internal/api/connect"
	"github.com/osa030/smartlist/internal/app/rule"
)

var (
	app     = kingpin.New("smartlist", "smart playlist client")
	server  = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token   = app.Flag("token", "API token").Envar("SMARTLIST_TOKEN").String()
	timeout = app.Flag("timeout", "Request timeout").Default("5m").Duration()
	params  = app.Flag("param", "Request parameter (e.g. playlistRuleType-1=artist)").Short('p').StringMap()
	form    = app.Flag("form", "URL-encoded form body (e.g. playlistRuleType-1=artist&playlistRuleData-1=Air)").String()

	// preview command
	previewCmd = app.Command("preview", "Preview the first matching tracks")

	// create command
	createCmd  = app.Command("create", "Generate a playlist and save it to Spotify")
	createName = createCmd.Arg("name", "Playlist name").String()
	createInto = createCmd.Flag("into", "Replace the contents of this playlist (URL, URI or ID)").String()

	// describe command
	describeCmd = app.Command("describe", "Print the description the parameters produce")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := apiconnect.NewClient(http.DefaultClient, *server, *token)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	reqParams, err := requestParams(*form, *params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch command {
	case previewCmd.FullCommand():
		err = preview(ctx, client, reqParams)
	case createCmd.FullCommand():
		err = create(ctx, client, reqParams)
	case describeCmd.FullCommand():
		err = describe(ctx, client, reqParams)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// requestParams merges a form body with individual --param flags.
// Flags win over form fields with the same key.
func requestParams(formBody string, flags map[string]string) (map[string]string, error) {
	values, err := url.ParseQuery(formBody)
	if err != nil {
		return nil, fmt.Errorf("invalid form body: %w", err)
	}
	merged := rule.FromValues(values)
	for k, v := range flags {
		merged[k] = v
	}
	return merged, nil
}

func preview(ctx context.Context, client *apiconnect.Client, params map[string]string) error {
	resp, err := client.Preview(ctx, params)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tTITLE\tARTISTS\tALBUM\tDURATION")
	for i, t := range resp.Tracks {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			i+1, t.Name, strings.Join(t.Artists, ", "), t.Album, formatDuration(int64(t.DurationMs)))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d tracks, %s\n", len(resp.Tracks), formatDuration(resp.TotalDurationMs))
	if resp.Description != "" {
		fmt.Println(resp.Description)
	}
	return nil
}

func create(ctx context.Context, client *apiconnect.Client, params map[string]string) error {
	if *createName == "" && *createInto == "" {
		return fmt.Errorf("a playlist name or --into is required")
	}

	resp, err := client.Create(ctx, &apiconnect.CreateRequest{
		Name:        *createName,
		PlaylistURL: *createInto,
		Params:      params,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Saved %d tracks to %s\n", resp.TrackCount, resp.PlaylistURL)
	if resp.Description != "" {
		fmt.Println(resp.Description)
	}
	return nil
}

func describe(ctx context.Context, client *apiconnect.Client, params map[string]string) error {
	desc, err := client.Describe(ctx, params)
	if err != nil {
		return err
	}
	if desc == "" {
		desc = "(no limit or ordering)"
	}
	fmt.Println(desc)
	return nil
}

func formatDuration(ms int64) string {
	d := (time.Duration(ms) * time.Millisecond).Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
