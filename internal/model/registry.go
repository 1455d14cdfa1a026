package model

// AllModels 返回所有需要迁移的数据库模型对象
// 新增表时，只需要在这里添加即可，不需要修改 main.go
// 注意: 快照库整库重载，迁移只允许做加法 (新增表 / 新增可空列)
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Agent{},
		&Run{},
		&TopupOrder{},
		&LedgerEntry{},
		&OutboxMessage{},
	}
}
