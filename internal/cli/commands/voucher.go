package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/CrazyWorldPL/IVshop/internal/models"
)

var voucherCmd = &cobra.Command{
	Use:   "voucher",
	Short: "Generate, list and redeem vouchers",
}

var voucherGenerateCmd = &cobra.Command{
	Use:   "generate <server-id> <product-id>",
	Short: "Generate a voucher for a product",
	Long:  `Generate a voucher code for a product. Without --code a random 6 character code is used.`,
	Example: `  ivshop voucher generate 3f2a... 9c1b...
  ivshop voucher generate 3f2a... 9c1b... --code SUMMER24`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		code, _ := cmd.Flags().GetString("code")
		ctx := context.Background()

		a := mustApp()
		defer a.Close()

		voucher, err := a.catalog.GenerateVoucher(ctx, args[0], models.GenerateVoucherRequest{
			ProductID:   args[1],
			VoucherCode: code,
		})
		if err != nil {
			logger.Error("Failed to generate voucher", "error", err)
			os.Exit(1)
		}

		fmt.Printf("✓ Voucher generated: %s\n", voucher.Code)
	},
}

var voucherListCmd = &cobra.Command{
	Use:     "list <server-id>",
	Short:   "List the vouchers of a server",
	Example: `  ivshop voucher list 3f2a... --output json`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		outputFormat, _ := cmd.Flags().GetString("output")
		ctx := context.Background()

		a := mustApp()
		defer a.Close()

		vouchers, err := a.catalog.ListVouchers(ctx, args[0])
		if err != nil {
			logger.Error("Failed to list vouchers", "error", err)
			os.Exit(1)
		}

		if outputFormat == "json" {
			data, _ := json.MarshalIndent(vouchers, "", "  ")
			fmt.Println(string(data))
			return
		}

		if len(vouchers) == 0 {
			fmt.Println("No vouchers found.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "CODE\tPRODUCT\tSTATUS\tPLAYER\tCREATED")
		for _, v := range vouchers {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				v.Code,
				v.ProductID[:8]+"...",
				v.Status,
				v.Player,
				v.CreatedAt.Format("2006-01-02 15:04"),
			)
		}
		w.Flush()
	},
}

var voucherRedeemCmd = &cobra.Command{
	Use:   "redeem <server-id> <code> <player>",
	Short: "Redeem a voucher for a player",
	Long: `Redeem a voucher exactly as the shop does: the product's commands are sent
to the server console and the voucher is marked used.`,
	Example: `  ivshop voucher redeem 3f2a... SUMMER24 Steve`,
	Args:    cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		a := mustApp()
		defer a.Close()

		redemption, err := a.fulfillment.Redeem(ctx, models.RedeemRequest{
			ServerID:    args[0],
			VoucherCode: args[1],
			PlayerNick:  args[2],
		})
		if err != nil {
			logger.Error("Failed to redeem voucher", "error", err)
			os.Exit(1)
		}

		fmt.Printf("✓ Voucher %s redeemed for %s (%d commands sent).\n", args[1], args[2], len(redemption.CommandList()))
	},
}

func init() {
	rootCmd.AddCommand(voucherCmd)

	voucherCmd.AddCommand(voucherGenerateCmd)
	voucherGenerateCmd.Flags().StringP("code", "c", "", "Voucher code (random when empty)")

	voucherCmd.AddCommand(voucherListCmd)
	voucherListCmd.Flags().StringP("output", "o", "table", "Output format (table, json)")

	voucherCmd.AddCommand(voucherRedeemCmd)
}
