package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "查询余额 / 流水 / 充值订单",
	Run: func(cmd *cobra.Command, args []string) {
		if err := callAPI("GET", "/api/v1/credits", nil, nil); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
