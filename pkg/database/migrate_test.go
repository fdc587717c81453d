package database

import (
	"io/fs"
	"strings"
	"testing"
)

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("读取内嵌迁移目录失败: %v", err)
	}

	var ups, downs int
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	if ups == 0 {
		t.Fatal("至少应有一个 up 迁移")
	}
	if ups != downs {
		t.Errorf("up/down 迁移数量不一致: up=%d down=%d", ups, downs)
	}
}

func TestGormLogLevel(t *testing.T) {
	if gormLogLevel("debug") == gormLogLevel("info") {
		t.Error("debug 级别应打印 SQL，info 级别不应")
	}
}
