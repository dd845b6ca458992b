package database

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cloudfinch-harshad/rampart/logger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/karrick/godirwalk"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

//go:embed schema/*.sql
var schemaFS embed.FS

var DB *sqlx.DB
var ReadWriteMu = &sync.RWMutex{}
var DBVersion string

const backupPrefix = "rampart.db."

// InitDb opens (and creates) the sqlite database at path.
func InitDb(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create database directory")
		}
	}
	db, err := sqlx.Connect("sqlite3", "file:"+path+"?_fk=1&_cslike=0&_busy_timeout=5000")
	if err != nil {
		return errors.Wrap(err, "open database")
	}
	db.SetMaxIdleConns(5)
	db.SetMaxOpenConns(5)
	DB = db
	logger.Log.Debugln("database opened: ", path)
	return nil
}

func CloseDb() error {
	if DB == nil {
		return nil
	}
	err := DB.Close()
	DB = nil
	return err
}

// UpgradeDB applies the embedded schema migrations.
func UpgradeDB() error {
	src, err := iofs.New(schemaFS, "schema")
	if err != nil {
		return errors.Wrap(err, "open embedded schema")
	}
	driver, err := sqlite3.WithInstance(DB.DB, &sqlite3.Config{})
	if err != nil {
		return errors.Wrap(err, "migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return errors.Wrap(err, "migration failed")
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "an error occurred while syncing the database")
	}
	vers, _, _ := m.Version()
	DBVersion = fmt.Sprint(vers)
	logger.Log.Infoln("database schema version ", DBVersion)
	return nil
}

// BackupName returns the file name used for a backup taken at t.
func BackupName(t time.Time) string {
	return backupPrefix + t.Format("20060102_150405")
}

// Backup the database into backupDir and keep at most maxbackups files there.
func Backup(backupDir string, maxbackups int) (string, error) {
	if DB == nil {
		return "", errors.New("database not initialized")
	}
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", errors.Wrap(err, "create backup directory")
	}
	backupPath := filepath.Join(backupDir, BackupName(time.Now()))
	ReadWriteMu.Lock()
	_, err := DB.Exec(`VACUUM INTO "` + backupPath + `"`)
	ReadWriteMu.Unlock()
	if err != nil {
		return "", errors.Wrap(err, "vacuum failed")
	}
	if err := RemoveOldDbBackups(backupDir, maxbackups); err != nil {
		logger.Log.Warnln("remove old backups: ", err)
	}
	return backupPath, nil
}

// RemoveOldDbBackups keeps the max newest backups in dir. max 0 keeps all.
func RemoveOldDbBackups(dir string, max int) error {
	if max <= 0 {
		return nil
	}
	files, err := oldDatabaseFiles(dir)
	if err != nil {
		return err
	}
	if len(files) <= max {
		return nil
	}
	for _, f := range files[max:] {
		errRemove := os.Remove(filepath.Join(dir, f.name))
		if err == nil && errRemove != nil {
			err = errRemove
		}
	}
	return err
}

func oldDatabaseFiles(dir string) ([]backupInfo, error) {
	dirents, err := godirwalk.ReadDirents(dir, nil)
	if err != nil {
		return nil, errors.Wrap(err, "can't read backup directory")
	}
	backupFiles := make([]backupInfo, 0, len(dirents))
	for _, f := range dirents {
		if f.IsDir() || !strings.HasPrefix(f.Name(), backupPrefix) {
			continue
		}
		if t, err := time.Parse("20060102_150405", strings.TrimPrefix(f.Name(), backupPrefix)); err == nil {
			backupFiles = append(backupFiles, backupInfo{timestamp: t, name: f.Name()})
		}
	}
	sort.Sort(byFormatTime(backupFiles))
	return backupFiles, nil
}

type backupInfo struct {
	timestamp time.Time
	name      string
}

// byFormatTime sorts by newest time formatted in the name.
type byFormatTime []backupInfo

func (b byFormatTime) Less(i, j int) bool {
	return b[i].timestamp.After(b[j].timestamp)
}

func (b byFormatTime) Swap(i, j int) {
	b[i], b[j] = b[j], b[i]
}

func (b byFormatTime) Len() int {
	return len(b)
}
