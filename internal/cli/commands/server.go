package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Inspect registered Minecraft servers",
	Long:  `List registered servers, show their details and check their RCON connection.`,
}

var serverListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all registered servers",
	Example: `  ivshop server list
  ivshop server list --output json`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		outputFormat, _ := cmd.Flags().GetString("output")

		a := mustApp()
		defer a.Close()

		servers, err := a.registry.ListAll(ctx)
		if err != nil {
			logger.Error("Failed to list servers", "error", err)
			os.Exit(1)
		}

		if outputFormat == "json" {
			data, _ := json.MarshalIndent(servers, "", "  ")
			fmt.Println(string(data))
			return
		}

		if len(servers) == 0 {
			fmt.Println("No servers found.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tADDRESS\tRCON\tONLINE\tPLAYERS\tCREATED")
		for _, server := range servers {
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%t\t%s\t%s\n",
				server.ID[:8]+"...",
				server.Name,
				server.RCONAddress(),
				server.RCONStatus,
				server.Online,
				server.Players,
				server.CreatedAt.Format("2006-01-02 15:04"),
			)
		}
		w.Flush()
	},
}

var serverInfoCmd = &cobra.Command{
	Use:   "info <server-id>",
	Short: "Show detailed information about a server",
	Example: `  ivshop server info 3f2a...
  ivshop server info 3f2a... --output json`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		outputFormat, _ := cmd.Flags().GetString("output")

		a := mustApp()
		defer a.Close()

		server, err := a.registry.Get(ctx, args[0])
		if err != nil {
			logger.Error("Failed to get server info", "error", err)
			os.Exit(1)
		}

		if outputFormat == "json" {
			data, _ := json.MarshalIndent(server, "", "  ")
			fmt.Println(string(data))
			return
		}

		domain := "-"
		if server.Domain != nil {
			domain = *server.Domain
		}

		fmt.Printf("\nServer Information:\n")
		fmt.Printf("==================\n\n")
		fmt.Printf("ID:           %s\n", server.ID)
		fmt.Printf("Name:         %s\n", server.Name)
		fmt.Printf("RCON:         %s (ok: %t)\n", server.RCONAddress(), server.RCONStatus)
		fmt.Printf("Container ID: %s\n", server.ContainerID)
		fmt.Printf("Owner:        %s\n", server.OwnerID)
		fmt.Printf("Admins:       %s\n", server.Admins)
		fmt.Printf("Domain:       %s\n", domain)
		fmt.Printf("Online:       %t (%s, %s)\n", server.Online, server.Version, server.Players)
		fmt.Printf("Created:      %s\n", server.CreatedAt.Format(time.RFC1123))
		fmt.Printf("Updated:      %s\n", server.UpdatedAt.Format(time.RFC1123))
		fmt.Println()
	},
}

var serverTestRCONCmd = &cobra.Command{
	Use:     "test-rcon <server-id>",
	Short:   "Check the RCON connection of a server",
	Long:    `Connect and authenticate to the server's console and store the outcome.`,
	Example: `  ivshop server test-rcon 3f2a...`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		a := mustApp()
		defer a.Close()

		if err := a.registry.TestRCON(ctx, args[0]); err != nil {
			logger.Error("RCON check failed", "server_id", args[0], "error", err)
			os.Exit(1)
		}

		fmt.Printf("✓ RCON connection of server %s works.\n", args[0])
	},
}

var serverAttachCmd = &cobra.Command{
	Use:   "attach-container <server-id> <container-id>",
	Short: "Route a server's console through a local container",
	Long: `Send console commands through rcon-cli inside a container running on this host.
The container must be running and started with the server's RCON_PASSWORD.
Pass an empty container id ("") to go back to direct RCON.`,
	Example: `  ivshop server attach-container 3f2a... mc-survival
  ivshop server attach-container 3f2a... ""`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		a := mustApp()
		defer a.Close()

		server, err := a.registry.AttachContainer(ctx, args[0], args[1])
		if err != nil {
			logger.Error("Failed to attach container", "server_id", args[0], "error", err)
			os.Exit(1)
		}

		if server.ContainerID == "" {
			fmt.Printf("✓ Server %s uses direct RCON.\n", server.ID)
			return
		}
		fmt.Printf("✓ Server %s now uses container %s.\n", server.ID, server.ContainerID)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.AddCommand(serverListCmd)
	serverListCmd.Flags().StringP("output", "o", "table", "Output format (table, json)")

	serverCmd.AddCommand(serverInfoCmd)
	serverInfoCmd.Flags().StringP("output", "o", "table", "Output format (table, json)")

	serverCmd.AddCommand(serverTestRCONCmd)
	serverCmd.AddCommand(serverAttachCmd)
}
