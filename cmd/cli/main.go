// Command ecoeat is the EcoEat client: browse near-expiry products, manage your
// listings and donations, and keep device-local favorites.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/and161185/ecoeat/internal/catalog"
	"github.com/and161185/ecoeat/internal/client"
	"github.com/and161185/ecoeat/internal/favorites"
	"github.com/and161185/ecoeat/internal/localstore"
	"github.com/and161185/ecoeat/internal/model"
	"github.com/and161185/ecoeat/internal/session"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// Global flags.
var (
	serverAddr string
	useTLS     bool
	caCert     string
	configDir  string
	timeout    time.Duration
	verbose    bool
	jsonOut    bool
)

var rootCmd = &cobra.Command{
	Use:           "ecoeat",
	Short:         "ecoeat lists near-expiry groceries and donations",
	Long:          "ecoeat is the client of the EcoEat catalog: search and sort products, publish and donate your own, keep favorites on this device.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version/build metadata",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ecoeat %s (%s)\n", version, buildDate)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&serverAddr, "addr", envOr("ECOEAT_ADDR", "localhost:8443"), "server address")
	pf.BoolVar(&useTLS, "tls", false, "connect over TLS")
	pf.StringVar(&caCert, "cacert", "", "CA certificate (PEM) for --tls; system roots when empty")
	pf.StringVar(&configDir, "config-dir", defaultConfigDir(), "directory holding the local database")
	pf.DurationVar(&timeout, "timeout", 30*time.Second, "per-command timeout")
	pf.BoolVarP(&verbose, "verbose", "v", false, "log diagnostics to stderr")
	pf.BoolVar(&jsonOut, "json", false, "print JSON instead of tables")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var ce *catalog.Error
		if verbose && errors.As(err, &ce) && ce.Err != nil {
			fmt.Fprintln(os.Stderr, "cause:", ce.Err)
		}
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultConfigDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "ecoeat")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "ecoeat")
}

func dbPath() string { return filepath.Join(configDir, "local.db") }

// app is everything a command may need, opened for the duration of one command.
type app struct {
	log     *zap.Logger
	local   *localstore.Store
	session *session.Session
	client  *client.Client
	catalog *catalog.Catalog
	favs    *favorites.Cache

	conn  *grpc.ClientConn
	unsub func()
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// openApp wires the local store, the session, the remote client and the view models.
// The catalog follows the session: signing in or out switches its donations owner.
func openApp() (*app, error) {
	log := newLogger()
	local, err := localstore.Open(dbPath())
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	conn, err := client.Dial(serverAddr, client.DialOptions{TLS: useTLS, CACert: caCert})
	if err != nil {
		_ = local.Close()
		return nil, fmt.Errorf("dial %s: %w", serverAddr, err)
	}

	a := &app{log: log, local: local, conn: conn}
	a.session = session.Open(local, log.Named("session"))
	a.client = client.New(conn, a.session)
	a.catalog = catalog.New(a.client, log.Named("catalog"), "")
	a.unsub = a.session.Subscribe(func(p *model.Principal) {
		if p == nil {
			a.catalog.SetOwner("")
			return
		}
		a.catalog.SetOwner(p.ID)
	})
	a.favs = favorites.NewCache(favorites.NewStore(local, log.Named("favorites")), log.Named("favorites"))
	a.favs.Start()
	return a, nil
}

// Close flushes favorites before the local store goes away.
func (a *app) Close() error {
	a.unsub()
	err := a.favs.Close()
	err = errors.Join(err, a.conn.Close())
	err = errors.Join(err, a.local.Close())
	_ = a.log.Sync()
	return err
}

func withApp(run func(ctx context.Context, a *app) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err = run(ctx, a)
	return errors.Join(err, a.Close())
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
