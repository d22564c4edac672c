package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arvandy/moodmate/internal/models"
)

func TestOpenSQLiteInMemoryAndMigrate(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite"})
	require.NoError(t, err)

	require.NoError(t, Migrate(db))

	// Schema must exist for every model.
	for _, model := range []any{
		&models.User{}, &models.Session{}, &models.VerificationToken{},
		&models.Mood{}, &models.CacheRecord{},
	} {
		require.True(t, db.Migrator().HasTable(model))
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	dsn, err := postgresDSN(Config{
		User:     "mood",
		Password: "s3cret",
		Name:     "moodmate",
		Host:     "db.internal",
		Port:     5433,
	})
	require.NoError(t, err)
	require.Contains(t, dsn, "host=db.internal")
	require.Contains(t, dsn, "port=5433")
	require.Contains(t, dsn, "dbname=moodmate")
	require.Contains(t, dsn, "sslmode=disable")
}

func TestPostgresDSNRequiresUserAndName(t *testing.T) {
	_, err := postgresDSN(Config{Host: "localhost"})
	require.Error(t, err)
}

func TestMySQLDSN(t *testing.T) {
	dsn, err := mysqlDSN(Config{User: "mood", Name: "moodmate"})
	require.NoError(t, err)
	require.Contains(t, dsn, "mood@tcp(127.0.0.1:3306)/moodmate")
	require.Contains(t, dsn, "parseTime=True")
	require.Contains(t, dsn, "loc=UTC")
}

func TestSQLiteDSNDefaultsToSharedMemory(t *testing.T) {
	dsn, err := sqliteDSN(Config{})
	require.NoError(t, err)
	require.Contains(t, dsn, ":memory:")
	require.Contains(t, dsn, "_foreign_keys=1")
}

func TestDSNOverrideWins(t *testing.T) {
	dsn, err := postgresDSN(Config{DSN: "postgres://u:p@h/db"})
	require.NoError(t, err)
	require.Equal(t, "postgres://u:p@h/db", dsn)
}
