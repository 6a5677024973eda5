// Package config loads server and client settings from the environment,
// with command-line flags taking precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Server holds the settings of the vrt server.
type Server struct {
	Addr      string `env:"VRT_ADDR" envDefault:":8080"`
	DBPath    string `env:"VRT_DB" envDefault:"vrt.sqlite3"`
	MongoURI  string `env:"VRT_MONGO_URI"`
	MongoDB   string `env:"VRT_MONGO_DB" envDefault:"vrt"`
	AdminUser string `env:"VRT_ADMIN_USER" envDefault:"admin"`
	LogPath   string `env:"VRT_LOG"`

	AllowSignup bool     `env:"VRT_ALLOW_SIGNUP" envDefault:"true"`
	CORSOrigins []string `env:"VRT_CORS_ORIGINS" envSeparator:","`
	UploadLimit int64    `env:"VRT_UPLOAD_LIMIT" envDefault:"33554432"`
}

// UseMongo reports whether the server should store data in MongoDB.
func (s *Server) UseMongo() bool {
	return s.MongoURI != ""
}

const serverUsage = `Usage: vrt [flags]

Flags:
  -d, -db <path>          SQLite database path (default: vrt.sqlite3)
  -m, -mongo <uri>        MongoDB URI; replaces SQLite when set
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -user <name>        admin username on first run (default: admin)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -signup                 allow account registration (default: true)
  -h, -help               show this help and exit

Every flag can also be set through the environment: VRT_DB, VRT_MONGO_URI,
VRT_MONGO_DB, VRT_ADDR, VRT_ADMIN_USER, VRT_LOG, VRT_ALLOW_SIGNUP,
VRT_CORS_ORIGINS (comma separated) and VRT_UPLOAD_LIMIT (bytes).
`

// LoadServer reads the environment and then applies args. It returns
// flag.ErrHelp when help was requested; usage has been written to out then.
func LoadServer(args []string, out io.Writer) (*Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	fs := flag.NewFlagSet("vrt", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() { fmt.Fprint(out, serverUsage) }

	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "")
	fs.StringVar(&cfg.MongoURI, "mongo", cfg.MongoURI, "")
	fs.StringVar(&cfg.MongoURI, "m", cfg.MongoURI, "")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "")
	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "")
	fs.StringVar(&cfg.AdminUser, "user", cfg.AdminUser, "")
	fs.StringVar(&cfg.AdminUser, "u", cfg.AdminUser, "")
	fs.StringVar(&cfg.LogPath, "log", cfg.LogPath, "")
	fs.StringVar(&cfg.LogPath, "l", cfg.LogPath, "")
	fs.BoolVar(&cfg.AllowSignup, "signup", cfg.AllowSignup, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	if cfg.UploadLimit <= 0 {
		return nil, errors.New("upload limit must be positive")
	}
	cfg.AdminUser = strings.TrimSpace(cfg.AdminUser)
	return &cfg, nil
}

// Client holds the settings of the command-line client.
type Client struct {
	Server    string `env:"VRT_SERVER" envDefault:"http://localhost:8080"`
	StatePath string `env:"VRT_STATE"`
	// Timeout bounds how long a command waits for the server.
	Timeout time.Duration `env:"VRT_TIMEOUT" envDefault:"30s"`
	// Debug sends client logs to stderr.
	Debug bool `env:"VRT_DEBUG"`
}

// LoadClient reads the client settings from the environment. Without
// VRT_STATE the local state lives in the user's config directory.
func LoadClient() (*Client, error) {
	var cfg Client
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.StatePath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("locating config directory: %w", err)
		}
		cfg.StatePath = filepath.Join(dir, "vrt", "state.sqlite3")
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("timeout must be positive")
	}
	cfg.Server = strings.TrimRight(cfg.Server, "/")
	return &cfg, nil
}
