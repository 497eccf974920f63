// roomctl browses and edits a data room through the HTTP API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"dataroom/internal/apiclient"
	"dataroom/internal/cache"
	"dataroom/internal/config"
	"dataroom/internal/engine"
	"dataroom/internal/events"
	"dataroom/internal/tree"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	apiURL  string
	token   string
	verbose bool
	width   int
	timeout time.Duration

	// Set by the root command before any subcommand runs
	client        *apiclient.Client
	eng           *engine.Engine
	cancelTimeout = func() {}
)

// Root is the main roomctl command
var Root = &cobra.Command{
	Use:   "roomctl",
	Short: "Browse and edit a data room",
	Long: `roomctl talks to a data room server. Paths are folder names joined
with "/", relative to the room root, e.g. Reports/2024.

Settings come from DATAROOM_API_URL, DATAROOM_TOKEN, DATAROOM_RATE_LIMIT and
DATAROOM_MAX_RETRIES (a .env file is read if present); flags override them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		cancelTimeout = cancel
		cmd.SetContext(ctx)
		return setup(ctx)
	},
}

func init() {
	flags := Root.PersistentFlags()
	flags.StringVar(&apiURL, "api-url", "", "API base URL (default $DATAROOM_API_URL)")
	flags.StringVar(&token, "token", "", "Access token (default $DATAROOM_TOKEN)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log requests and cache activity to stderr")
	flags.IntVar(&width, "width", 80, "Columns available for the breadcrumb line")
	flags.DurationVar(&timeout, "timeout", 2*time.Minute, "Give up after this long")
}

func setup(ctx context.Context) error {
	_ = godotenv.Load()
	cfg := config.LoadClient()
	if apiURL != "" {
		cfg.APIURL = apiURL
	}
	if token != "" {
		cfg.AccessToken = token
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	client = apiclient.NewFromConfig(cfg, logger)
	room, err := client.GetDataRoom(ctx)
	if err != nil {
		return fmt.Errorf("open data room: %w", err)
	}

	bus := events.NewBus(logger)
	bus.Subscribe(events.MutationFailed, func(ev events.Event) {
		fmt.Fprintf(os.Stderr, "%s failed: %s\n", ev.Op, ev.Message())
	})
	eng = engine.New(client, cache.NewStore(logger), bus, tree.RoomRef{ID: room.ID, Name: room.Name}, logger)
	return nil
}

func main() {
	err := Root.ExecuteContext(context.Background())
	cancelTimeout()
	if err != nil {
		os.Exit(1)
	}
}
