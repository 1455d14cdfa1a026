package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Gpcode233/Ajently/internal/model"
	"github.com/Gpcode233/Ajently/pkg/database"
	"github.com/Gpcode233/Ajently/pkg/errno"
	"github.com/Gpcode233/Ajently/pkg/logger"
	"github.com/Gpcode233/Ajently/pkg/monitor"

	sqlite3 "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store 是嵌入式的快照库:
// 整库常驻内存 (单连接 SQLite)，每次写事务提交后把整库导出到磁盘文件。
// 核心设计:
//  1. 全部写事务经过单一 writer goroutine，channel 即 FIFO 队列，
//     严格按到达顺序执行，天然互斥 —— 余额校验、流水追加、幂等充值
//     全部依赖这里的串行化，而不是数据库行锁
//  2. 导出失败时从上一份磁盘快照重建内存态，内存永远不会悄悄领先磁盘
type Store struct {
	orm   *gorm.DB
	sqlDB *sql.DB
	path  string

	jobs chan writeJob
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type writeJob struct {
	fn   func(tx *gorm.DB) error
	done chan error
}

// Open 打开 (或新建) 快照库
// 顺序: 建内存库 -> 恢复磁盘快照 (如果有) -> AutoMigrate (只做加法) -> 启动 writer
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}

	orm, err := database.ConnectMemorySQLite()
	if err != nil {
		return nil, err
	}
	sqlDB, err := orm.DB()
	if err != nil {
		return nil, err
	}

	s := &Store{
		orm:   orm,
		sqlDB: sqlDB,
		path:  path,
		jobs:  make(chan writeJob, 64),
	}

	if _, err := os.Stat(path); err == nil {
		if err := s.restoreSnapshot(); err != nil {
			return nil, fmt.Errorf("加载磁盘快照失败: %w", err)
		}
		logger.Info("已从磁盘快照恢复", zap.String("path", path))
	}

	if err := orm.AutoMigrate(model.AllModels()...); err != nil {
		return nil, fmt.Errorf("迁移失败: %w", err)
	}

	s.wg.Add(1)
	go s.writer()

	return s, nil
}

// Read 在当前已提交状态上执行只读逻辑
// 不提供隔离保证: 读到的是调用那一刻最新提交的状态。
// 注意: 写事务闭包内禁止调用 Read (单连接会互相等死)，用事务句柄 tx。
func (s *Store) Read(fn func(db *gorm.DB) error) error {
	return fn(s.orm)
}

// Write 把写事务闭包排进 FIFO 队列并等待结果。
// 闭包内只做内存变更，不允许任何外部网络 I/O —— 链上核验、上传下载
// 必须在进入 Write 之前完成，保证写锁持有时间有界。
func (s *Store) Write(fn func(tx *gorm.DB) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	job := writeJob{fn: fn, done: make(chan error, 1)}
	s.jobs <- job
	s.mu.RUnlock()

	return <-job.done
}

// Close 停止接收新写入，排空队列并关闭底层连接
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.jobs)
	s.mu.Unlock()

	s.wg.Wait()
	return s.sqlDB.Close()
}

// writer 是唯一触碰可变状态的 goroutine
func (s *Store) writer() {
	defer s.wg.Done()
	for job := range s.jobs {
		job.done <- s.runWrite(job.fn)
	}
}

func (s *Store) runWrite(fn func(tx *gorm.DB) error) (err error) {
	// 闭包 panic 只算这一条事务失败，不能拖垮后面排队的事务
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("write transaction panic: %v", r)
		}
	}()

	if err = s.orm.Transaction(fn); err != nil {
		return err
	}

	// 提交成功，整库导出
	start := time.Now()
	if exportErr := s.exportSnapshot(); exportErr != nil {
		if monitor.Business != nil {
			monitor.Business.SnapshotExportFailedTotal.Inc()
		}
		logger.Error("快照导出失败，回退内存状态", zap.Error(exportErr))

		// 内存已经领先磁盘，不可信: 从上一份好快照重建
		if restoreErr := s.restoreSnapshot(); restoreErr != nil {
			// 回退也失败，宁可大声退出，不能带着未落盘的余额继续服务
			logger.Fatal("快照回退失败，内存状态不可信", zap.Error(restoreErr))
		}
		return errno.ErrPersistence
	}
	if monitor.Business != nil {
		monitor.Business.SnapshotExportDuration.Observe(time.Since(start).Seconds())
	}
	return nil
}

// exportSnapshot 用 SQLite Online Backup API 把内存库拷贝到临时文件，
// 再原子重命名覆盖正式快照。导出期间 writer 不处理下一条事务。
func (s *Store) exportSnapshot() error {
	tmp := s.path + ".tmp"
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return err
	}

	err := s.withRawConn(func(mem *sqlite3.SQLiteConn) error {
		file, err := openFileConn(tmp)
		if err != nil {
			return err
		}
		defer file.Close()
		return copyDatabase(file, mem)
	})
	if err != nil {
		return err
	}

	return os.Rename(tmp, s.path)
}

// restoreSnapshot 把磁盘快照整库拷回内存，覆盖当前内存态
func (s *Store) restoreSnapshot() error {
	// 首次导出就失败时磁盘上还没有快照，openFileConn 会凭空建一个空库，
	// 拷回来等于把建好的表全部清掉。没有上一份好快照就直接报错，由上层退出。
	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("no snapshot to restore from: %w", err)
	}
	return s.withRawConn(func(mem *sqlite3.SQLiteConn) error {
		file, err := openFileConn(s.path)
		if err != nil {
			return err
		}
		defer file.Close()
		return copyDatabase(mem, file)
	})
}

// withRawConn 从连接池取出那条唯一的连接，暴露底层 SQLite 连接
func (s *Store) withRawConn(fn func(conn *sqlite3.SQLiteConn) error) error {
	conn, err := s.sqlDB.Conn(context.Background())
	if err != nil {
		return err
	}
	defer conn.Close()

	return conn.Raw(func(driverConn interface{}) error {
		c, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection type %T", driverConn)
		}
		return fn(c)
	})
}

func openFileConn(path string) (*sqlite3.SQLiteConn, error) {
	drv := &sqlite3.SQLiteDriver{}
	conn, err := drv.Open(path)
	if err != nil {
		return nil, err
	}
	return conn.(*sqlite3.SQLiteConn), nil
}

// copyDatabase 把 src 整库备份进 dest (dest 原内容被替换)
func copyDatabase(dest, src *sqlite3.SQLiteConn) error {
	bk, err := dest.Backup("main", src, "main")
	if err != nil {
		return err
	}
	defer bk.Finish()

	for {
		done, err := bk.Step(-1) // -1: 一次拷完所有页
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}
