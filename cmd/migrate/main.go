package main

import (
	"flag"
	"log"

	"github.com/Gpcode233/Ajently/internal/model"
	"github.com/Gpcode233/Ajently/internal/store"
	"github.com/Gpcode233/Ajently/pkg/config"
	"github.com/Gpcode233/Ajently/pkg/logger"

	"gorm.io/gorm"
)

// 迁移工具: 打开快照文件，跑一遍 AutoMigrate (只做加法: 建表/补列)，
// 再写一次快照落盘。服务启动时也会迁移，这个命令用于部署前单独演练。
func main() {
	var seed bool
	flag.BoolVar(&seed, "seed", false, "also verify row counts after migration")
	flag.Parse()

	config.Init()
	logger.Init(config.Global.App.Env)
	defer logger.Sync()

	st, err := store.Open(config.Global.Store.Path)
	if err != nil {
		log.Fatalf("打开快照库失败: %v", err)
	}
	defer st.Close()

	// Open 内部已经做了 AutoMigrate，这里用一个空写事务强制导出一次快照，
	// 确保新 schema 落到磁盘文件里
	if err := st.Write(func(tx *gorm.DB) error { return nil }); err != nil {
		log.Fatalf("导出快照失败: %v", err)
	}

	if seed {
		for _, m := range model.AllModels() {
			var count int64
			if err := st.Read(func(db *gorm.DB) error {
				return db.Model(m).Count(&count).Error
			}); err != nil {
				log.Fatalf("统计表行数失败: %v", err)
			}
			log.Printf("%T: %d rows", m, count)
		}
	}

	log.Println("Migration completed successfully")
}
