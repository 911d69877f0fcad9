package gormsqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"time"

	gormdriver "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// DB holds a read pool and a single-connection writer over the same SQLite
// file. SQLite allows many readers but only one writer under WAL; keeping
// them on separate handles avoids writer starvation of reads.
type DB struct {
	R *gorm.DB
	W *gorm.DB
}

type Tx struct {
	*gorm.DB
}

type txFunc func(tx *Tx) error

func (db *DB) ReadTX(ctx context.Context, fn txFunc) error {
	return db.R.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Tx{DB: tx})
	}, &sql.TxOptions{ReadOnly: true})
}

func (db *DB) WriteTX(ctx context.Context, fn txFunc) error {
	return db.W.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Tx{DB: tx})
	})
}

// WriteSQLDB exposes the writer's database/sql handle, needed by goose.
func (db *DB) WriteSQLDB() (*sql.DB, error) {
	return db.W.DB()
}

func (db *DB) Close() error {
	var firstErr error
	for _, g := range []*gorm.DB{db.R, db.W} {
		if g == nil {
			continue
		}
		sqlDB, err := g.DB()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := sqlDB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ io.Closer = (*DB)(nil)

// Open builds the reader/writer pair for the SQLite file and applies the
// WAL pragma set to both.
func Open(file string) (*DB, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
		},
	)

	open := func() (*gorm.DB, error) {
		return gorm.Open(gormdriver.Dialector{DriverName: "sqlite", DSN: file}, &gorm.Config{
			PrepareStmt: true,
			Logger:      gormLogger,
		})
	}

	reader, err := open()
	if err != nil {
		return nil, fmt.Errorf("open read db: %w", err)
	}
	writer, err := open()
	if err != nil {
		_ = closeGORM(reader)
		return nil, fmt.Errorf("open write db: %w", err)
	}

	db := &DB{R: reader, W: writer}

	rdb, err := reader.DB()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("reader sql db: %w", err)
	}
	wdb, err := writer.DB()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("writer sql db: %w", err)
	}

	rdb.SetMaxOpenConns(runtime.NumCPU())
	rdb.SetMaxIdleConns(runtime.NumCPU())
	wdb.SetMaxOpenConns(1)
	wdb.SetMaxIdleConns(1)

	if err := applyPragmas(rdb, true); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("reader pragmas: %w", err)
	}
	if err := applyPragmas(wdb, false); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("writer pragmas: %w", err)
	}

	return db, nil
}

func applyPragmas(db *sql.DB, readOnly bool) error {
	stmts := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA temp_store = MEMORY;",
		"PRAGMA cache_size = -20000;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA trusted_schema = OFF;",
		fmt.Sprintf("PRAGMA query_only = %s;", onOff(readOnly)),
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

func closeGORM(g *gorm.DB) error {
	if g == nil {
		return nil
	}
	sqlDB, err := g.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
