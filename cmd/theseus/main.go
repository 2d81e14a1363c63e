// Package main provides the theseus CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/richinex/theseus/config"
	"github.com/richinex/theseus/internal/payload"
	"github.com/richinex/theseus/mcpserver"
	"github.com/richinex/theseus/respond"
	"github.com/richinex/theseus/storage"
	"github.com/richinex/theseus/tools"
)

const version = "0.1.0"

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "theseus",
		Short: "Out-of-band storage and navigation for oversized JSON responses",
		Long: `Theseus stores oversized upstream JSON payloads out-of-band and serves
navigate/query/export operations over them, so a caller only ever sees
small envelopes and the slices it asks for.`,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(processCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(gcCmd())
	rootCmd.AddCommand(navigateCmd())
	rootCmd.AddCommand(toolsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildService wires settings into a store, gate, and service. The cleanup
// function closes the SQLite index when one is configured.
func buildService() (*respond.Service, []string, func(), error) {
	settings, err := config.New()
	if err != nil {
		return nil, nil, nil, err
	}

	var (
		store   *storage.ResponseStore
		cleanup = func() {}
	)
	if settings.Store.DBPath != "" {
		metaDB, err := storage.OpenSqlite(settings.Store.DBPath)
		if err != nil {
			return nil, nil, nil, err
		}
		store, err = storage.NewPersistentResponseStore(settings.Store.Dir, settings.Store.TTL, metaDB)
		if err != nil {
			metaDB.Close()
			return nil, nil, nil, err
		}
		cleanup = func() {
			if err := metaDB.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close metadata index: %v\n", err)
			}
		}
	} else {
		store, err = storage.NewResponseStore(settings.Store.Dir, settings.Store.TTL)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	gate := storage.NewGate(store, settings.Store.SizeThreshold)
	return respond.NewService(store, gate), settings.Export.AllowedPaths, cleanup, nil
}

func buildRegistry(service *respond.Service, allowedPaths []string) (*tools.Registry, error) {
	registry := tools.NewRegistry()
	toolset := []tools.Tool{
		tools.NewNavigateResponseTool(service),
		tools.NewQueryResponseTool(service),
		tools.NewExportResponseTool(service, allowedPaths),
	}
	for _, t := range toolset {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("failed to register tools: %w", err)
		}
	}
	return registry, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the navigate/query/export tools over MCP stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, allowedPaths, cleanup, err := buildService()
			if err != nil {
				return err
			}
			defer cleanup()

			registry, err := buildRegistry(service, allowedPaths)
			if err != nil {
				return err
			}

			server := mcpserver.New("theseus", version, registry)
			return server.Run(cmd.Context())
		},
	}
}

func processCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process [file]",
		Short: "Run a payload through the size gate (reads stdin when no file is given)",
		Long: `Process reads a JSON payload, tolerating markdown code blocks and
surrounding commentary, and runs it through the size gate. Payloads under
the threshold are echoed back; oversized payloads are stored and replaced
by their envelope.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				raw []byte
				err error
			)
			if len(args) == 1 {
				raw, err = os.ReadFile(args[0])
			} else {
				raw, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("failed to read payload: %w", err)
			}

			value, err := payload.Decode(string(raw))
			if err != nil {
				return err
			}

			service, _, cleanup, err := buildService()
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := service.Process(cmd.Context(), value)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored response metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, _, cleanup, err := buildService()
			if err != nil {
				return err
			}
			defer cleanup()

			entries := service.Store().List()
			if len(entries) == 0 {
				fmt.Println("No stored responses")
				return nil
			}
			for _, meta := range entries {
				structure := meta.Summary.Structure
				if structure == "" {
					structure = "scalar"
				}
				fmt.Printf("%s  %s  %d bytes  %s\n",
					meta.ID, meta.Timestamp.Format("2006-01-02 15:04:05"), meta.SizeBytes, structure)
			}
			return nil
		},
	}
}

func gcCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Evict stored responses older than the TTL",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, _, cleanup, err := buildService()
			if err != nil {
				return err
			}
			defer cleanup()

			evicted := service.Store().EvictExpired(context.Background())
			fmt.Printf("Evicted %d expired responses\n", evicted)
			return nil
		},
	}
}

func navigateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "navigate <response-id> [path]",
		Short: "Print the value at a path within a stored response",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, _, cleanup, err := buildService()
			if err != nil {
				return err
			}
			defer cleanup()

			path := ""
			if len(args) > 1 {
				path = args[1]
			}

			value, err := service.Navigate(cmd.Context(), args[0], path)
			if err != nil {
				return err
			}
			raw, err := json.MarshalIndent(value, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(raw))
			return nil
		},
	}
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Describe the tools exposed by serve",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, allowedPaths, cleanup, err := buildService()
			if err != nil {
				return err
			}
			defer cleanup()

			registry, err := buildRegistry(service, allowedPaths)
			if err != nil {
				return err
			}
			fmt.Println(registry.Description())
			return nil
		},
	}
}
