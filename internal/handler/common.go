package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// demoUserID 解析当前用户
// 演示环境没有登录态: 优先取 X-User-ID 头，缺省落到 1 号演示用户。
// TODO: 钱包签名登录接入后改从会话中取 uid
func demoUserID(c *gin.Context) uint64 {
	if v := c.GetHeader("X-User-ID"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil && id > 0 {
			return id
		}
	}
	return 1
}
