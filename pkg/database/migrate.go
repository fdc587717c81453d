package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsTable = "easyshifts_schema_migrations"

// MigrationStatus 当前迁移版本
type MigrationStatus struct {
	Version uint
	Dirty   bool
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("加载迁移文件失败: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return nil, fmt.Errorf("创建迁移驱动失败: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("初始化迁移实例失败: %w", err)
	}
	return m, nil
}

// RunMigrations 应用所有未执行的迁移
// dirty 状态直接报错，需人工修复后用 migrate --force 处理
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}

	if st, err := status(m); err != nil {
		return err
	} else if st.Dirty {
		return fmt.Errorf("数据库迁移处于 dirty 状态 (version=%d)", st.Version)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("执行迁移失败: %w", err)
	}

	st, err := status(m)
	if err != nil {
		return err
	}
	logger.Info("数据库迁移完成", zap.Uint("version", st.Version))
	return nil
}

// RollbackMigrations 回滚最近 steps 个迁移
func RollbackMigrations(db *sql.DB, steps int, logger *zap.Logger) error {
	if steps <= 0 {
		return fmt.Errorf("回滚步数必须大于 0")
	}
	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("回滚迁移失败: %w", err)
	}

	st, err := status(m)
	if err != nil {
		return err
	}
	logger.Info("数据库迁移已回滚", zap.Int("steps", steps), zap.Uint("version", st.Version))
	return nil
}

// ForceMigrationVersion 强制设置版本并清除 dirty 标记
func ForceMigrationVersion(db *sql.DB, version int, logger *zap.Logger) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	if err := m.Force(version); err != nil {
		return fmt.Errorf("强制设置迁移版本失败: %w", err)
	}
	logger.Warn("已强制设置迁移版本", zap.Int("version", version))
	return nil
}

// GetMigrationStatus 读取当前迁移版本；未执行过任何迁移时版本为 0
func GetMigrationStatus(db *sql.DB) (MigrationStatus, error) {
	m, err := newMigrator(db)
	if err != nil {
		return MigrationStatus{}, err
	}
	return status(m)
}

func status(m *migrate.Migrate) (MigrationStatus, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return MigrationStatus{}, nil
	}
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("读取迁移版本失败: %w", err)
	}
	return MigrationStatus{Version: version, Dirty: dirty}, nil
}
