// database_utils should be the canonical place to put shared DB utils.
// It should not include:
// 1. Any util that doesn't manipulate DB
// 2. Any util that contains business logic
package utils

import (
	"fmt"
	"os"
	"testing"

	"github.com/Luismorlan/infoflow/model"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	TestDBPrefix         = "testonlydb_"
	TestDBNameCharLength = 8
)

// GormTransaction is the callback function used during db.Transaction in Gorm.
type GormTransaction func(tx *gorm.DB) error

func randomTestDBName() string {
	return TestDBPrefix + RandomAlphabetString(TestDBNameCharLength)
}

// GetDBConnection get a connection to the database specified by env
func GetDBConnection() (*gorm.DB, error) {
	if path := os.Getenv("SQLITE_PATH"); path != "" {
		return GetSqliteConnection(path)
	}
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"), os.Getenv("DB_USER"), os.Getenv("DB_PASS"), os.Getenv("DB_NAME"), os.Getenv("DB_PORT"))
	return getDB(postgres.Open(dsn))
}

// GetSqliteConnection opens a sqlite database, used for local runs and tests.
// SQLite only allows one writer, so the pool is capped to a single connection.
func GetSqliteConnection(path string) (*gorm.DB, error) {
	db, err := getDB(sqlite.Open(path))
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Create a temp in-memory DB for testing, note that this function should only
// be called in a testing environment with test state manager testing.T
// The database is migrated and is released after the test case.
func CreateTempDB(t *testing.T) (*gorm.DB, string) {
	t.Helper()
	dbName := randomTestDBName()
	db, err := GetSqliteConnection(fmt.Sprintf("file:%s?mode=memory&cache=shared", dbName))
	if err != nil {
		t.Fatalf("fail to create temp DB with name: %s, %v", dbName, err)
	}
	if err := DatabaseSetupAndMigration(db); err != nil {
		t.Fatalf("fail to migrate temp DB %s: %v", dbName, err)
	}
	t.Cleanup(func() {
		conn, _ := db.DB()
		conn.Close()
	})
	return db, dbName
}

func getDB(dialector gorm.Dialector) (db *gorm.DB, err error) {
	return gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

func DatabaseSetupAndMigration(db *gorm.DB) error {
	return db.AutoMigrate(model.All()...)
}
