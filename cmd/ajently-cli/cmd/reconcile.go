package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "模拟支付方回执 (webhook)",
	Long: `向 /webhooks/payments 发送一条回执，把指定订单推进到 completed 或 failed。
回执可重放，终态订单不会被二次入账。`,
	Run: func(cmd *cobra.Command, args []string) {
		reference, _ := cmd.Flags().GetString("reference")
		status, _ := cmd.Flags().GetString("status")
		note, _ := cmd.Flags().GetString("note")
		secret, _ := cmd.Flags().GetString("secret")

		if reference == "" {
			fmt.Println("必须指定 --reference")
			os.Exit(1)
		}

		body := map[string]interface{}{
			"provider_reference": reference,
			"status":             status,
			"note":               note,
		}
		headers := map[string]string{}
		if secret != "" {
			headers["x-webhook-secret"] = secret
		}
		if err := callAPI("POST", "/webhooks/payments", body, headers); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	reconcileCmd.Flags().String("reference", "", "订单的 provider_reference")
	reconcileCmd.Flags().String("status", "completed", "回执结果 (completed / failed)")
	reconcileCmd.Flags().String("note", "reconciled via ajently-cli", "备注")
	reconcileCmd.Flags().String("secret", "", "webhook 共享密钥")
}
