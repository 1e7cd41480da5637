package history

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"shardrun/internal/domain"
	"shardrun/internal/runerrors"
)

const (
	DefaultDatabase = "shardrun"
	historyTable    = "run_history"
)

// DBSettings holds the MySQL connection settings
type DBSettings struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

// LoadDBSettings reads DB_* settings from the environment, after loading the .env file
// in dir when there is one.
func LoadDBSettings(dir string) DBSettings {
	envPath := filepath.Join(dir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.WithField("file", envPath).Debug("no .env file, using environment")
	}
	return DBSettings{
		Host:     envOr("DB_HOST", "127.0.0.1"),
		Port:     envOr("DB_PORT", "3306"),
		User:     envOr("DB_USERNAME", "root"),
		Password: os.Getenv("DB_PASSWORD"),
		Database: envOr("DB_DATABASE", DefaultDatabase),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// DSN returns the data source name for the settings, optionally without the database
func (s DBSettings) DSN(withDatabase bool) string {
	cfg := mysql.NewConfig()
	cfg.User = s.User
	cfg.Passwd = s.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(s.Host, s.Port)
	cfg.ParseTime = true
	if withDatabase {
		cfg.DBName = s.Database
	}
	return cfg.FormatDSN()
}

// MySQLRecorder stores history records in the run_history table
type MySQLRecorder struct {
	settings DBSettings
	db       *sql.DB
}

// NewMySQLRecorder opens a connection pool for settings. Nothing is sent until first use.
func NewMySQLRecorder(settings DBSettings) (*MySQLRecorder, error) {
	if !isValidDatabaseName(settings.Database) {
		return nil, errors.WithStack(&runerrors.ErrInvalidArgument{
			Name:    "database",
			Value:   settings.Database,
			Message: "database names may only contain letters, digits, _ and $",
		})
	}
	db, err := sql.Open("mysql", settings.DSN(true))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open history database")
	}
	return &MySQLRecorder{settings: settings, db: db}, nil
}

// Init creates the history database and table when they are missing
func (r *MySQLRecorder) Init(ctx context.Context) error {
	server, err := sql.Open("mysql", r.settings.DSN(false))
	if err != nil {
		return errors.Wrap(err, "failed to connect to database server")
	}
	defer server.Close()

	if err := server.PingContext(ctx); err != nil {
		return errors.Wrap(err, "failed to ping database server")
	}
	exists, err := databaseExists(ctx, server, r.settings.Database)
	if err != nil {
		return errors.Wrapf(err, "failed to check database %s", r.settings.Database)
	}
	if !exists {
		if _, err := server.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", r.settings.Database)); err != nil {
			return errors.Wrapf(err, "failed to create database %s", r.settings.Database)
		}
		log.Infof("created database %s", r.settings.Database)
	}

	if _, err := r.db.ExecContext(ctx, createTableQuery); err != nil {
		return errors.Wrapf(err, "failed to create table %s", historyTable)
	}
	return nil
}

const createTableQuery = "CREATE TABLE IF NOT EXISTS `" + historyTable + "` (" +
	"`id` CHAR(36) NOT NULL PRIMARY KEY, " +
	"`name` VARCHAR(255) NOT NULL, " +
	"`created_at` DATETIME NOT NULL)"

// Create inserts a new history record
func (r *MySQLRecorder) Create(ctx context.Context, name string) (domain.HistoryRef, error) {
	ref := domain.HistoryRef{ID: uuid.NewString(), Name: name}
	query := "INSERT INTO `" + historyTable + "` (`id`, `name`, `created_at`) VALUES (?, ?, ?)"
	if _, err := r.db.ExecContext(ctx, query, ref.ID, ref.Name, time.Now().UTC()); err != nil {
		return domain.HistoryRef{}, errors.Wrap(err, "failed to insert history record")
	}
	return ref, nil
}

// Close closes the connection pool
func (r *MySQLRecorder) Close() error {
	return r.db.Close()
}

func databaseExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?)"
	err := db.QueryRowContext(ctx, query, name).Scan(&exists)
	return exists, err
}

// isValidDatabaseName accepts unquoted MySQL identifiers up to 64 characters
func isValidDatabaseName(name string) bool {
	if len(name) == 0 || len(name) > 64 {
		return false
	}
	return strings.IndexFunc(name, func(r rune) bool {
		return !(r == '_' || r == '$' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	}) < 0
}
