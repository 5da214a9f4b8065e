package postgres

import (
	"fmt"
	"net/url"
	"time"

	"github.com/tubechat/tubechat/pkg/config"
)

// Config holds PostgreSQL connection settings. ConnString wins when set;
// otherwise a DSN is built from the individual fields.
type Config struct {
	ConnString      string
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

// FromAppConfig maps the application database section.
func FromAppConfig(db *config.DatabaseConfig) *Config {
	return &Config{
		ConnString:      db.ConnString,
		Host:            db.Host,
		Port:            db.Port,
		User:            db.User,
		Password:        db.Password.Value(),
		DBName:          db.DBName,
		SSLMode:         db.SSLMode,
		MaxOpenConns:    db.MaxOpenConns,
		MaxIdleConns:    db.MaxIdleConns,
		ConnMaxLifetime: db.ConnMaxLifetime,
		PingTimeout:     db.PingTimeout,
	}
}

// DSN returns the connection string used by pgx and goose.
func (c *Config) DSN() string {
	if c.ConnString != "" {
		return c.ConnString
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%s", c.Host, c.Port),
		Path:   "/" + c.DBName,
	}
	q := u.Query()
	q.Set("sslmode", sslMode)
	u.RawQuery = q.Encode()
	return u.String()
}
