package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectMemorySQLite 打开一个纯内存 SQLite 库
// 整个库只允许一条连接: 内存库的生命周期绑定在这条连接上，
// 连接池一旦换新连接，库就没了。持久化由 store 层的快照导出负责。
func ConnectMemorySQLite() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("无法打开内存数据库: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 单连接: 见上。MaxIdle 与 MaxOpen 一致，连接永不回收
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)

	return db, nil
}
