package testutil

import (
	"path/filepath"
	"testing"

	"whatsapp-intake/backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewSQLiteDB returns a migrated, private in-memory database that is closed
// when the test ends
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Message{}))

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// NewSQLiteFileDB returns a migrated WAL-mode database file in a temp dir,
// reachable through conns pooled connections so concurrent callers really
// interleave inside the store
func NewSQLiteFileDB(t testing.TB, conns int) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "intake.db") +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(conns)
	sqlDB.SetMaxIdleConns(conns)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Message{}))

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// StrPtr returns a pointer to s
func StrPtr(s string) *string {
	return &s
}
