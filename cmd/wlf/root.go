package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	wlf "github.com/dangdungcntt/go-wlf"
	"github.com/dangdungcntt/go-wlf/internal/config"
	"github.com/dangdungcntt/go-wlf/internal/logging"
)

// app carries the state shared by every subcommand.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	log     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:   "wlf",
		Short: "Compile and render wlf view templates",
		Long: `wlf compiles view templates written in the wlf syntax into html/template
source, caches the result and renders it.

Configuration is read from .wlf.yml, WLF_<SECTION>_<OPTION> environment
variables and flags, flags taking precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
				a.v.Set("cache.enabled", false)
			}
			return a.load()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is .wlf.yml)")
	flags.String("views", "app/views", "views directory")
	flags.String("cache", "cache", "compiled templates directory")
	flags.Bool("no-cache", false, "never read or write compiled templates")
	flags.StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	bindFlags(a.v, flags, map[string]string{
		"views.dir":  "views",
		"cache.dir":  "cache",
		"log.level":  "log-level",
		"log.format": "log-format",
	})

	root.AddCommand(
		newCompileCmd(a),
		newRenderCmd(a),
		newPrecompileCmd(a),
		newCacheCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
	)
	return root
}

// bindFlags binds config keys to flag names.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if f := flags.Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

func (a *app) load() error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logging.New(&logging.Config{
		Level:     level,
		Format:    cfg.Log.Format,
		Output:    os.Stderr,
		Component: "wlf",
	})
	return nil
}

func (a *app) store() *wlf.FileStore {
	return wlf.NewFileStore(a.cfg.Views.Dir, a.cfg.Cache.Dir).WithExpiry(a.cfg.Cache.Expiry)
}

func (a *app) engine(tokens wlf.TokenProvider) *wlf.Engine {
	return wlf.New(a.store(), wlf.Options{
		Marker:        a.cfg.Views.Marker,
		CSRFField:     a.cfg.CSRF.Field,
		Tokens:        tokens,
		ExtendsDepth:  a.cfg.Views.ExtendsDepth,
		IncludeDepth:  a.cfg.Views.IncludeDepth,
		Disabled:      a.cfg.Views.Disabled,
		CacheDisabled: !a.cfg.Cache.Enabled,
		Logger:        a.log,
	})
}
