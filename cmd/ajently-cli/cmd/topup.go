package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var topupCmd = &cobra.Command{
	Use:   "topup",
	Short: "创建充值订单",
	Long:  `创建一张 pending 充值订单，返回 provider_reference，用于后续回执对账。`,
	Run: func(cmd *cobra.Command, args []string) {
		rail, _ := cmd.Flags().GetString("rail")
		currency, _ := cmd.Flags().GetString("currency")
		amount, _ := cmd.Flags().GetString("amount")

		body := map[string]interface{}{
			"rail":     rail,
			"currency": currency,
			"amount":   amount,
		}
		if err := callAPI("POST", "/api/v1/credits/topup", body, nil); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(topupCmd)
	topupCmd.Flags().String("rail", "fiat", "充值渠道 (fiat / stablecoin)")
	topupCmd.Flags().String("currency", "USD", "币种")
	topupCmd.Flags().String("amount", "25", "金额 (1 单位兑 1 credit)")
}
