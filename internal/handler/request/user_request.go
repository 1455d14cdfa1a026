package request

// ConnectWalletRequest 连接钱包开户请求
type ConnectWalletRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required,len=42,startswith=0x"`
}
