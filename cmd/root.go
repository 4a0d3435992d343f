package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"heapdb/config"
	"heapdb/db"
	"heapdb/metrics"
)

const defaultCatalogFile = "catalog.txt"

type cli struct {
	configFile  string
	catalogFile string
	stats       bool

	cfg config.Config
	db  *db.DB
}

// NewRootCmd builds the heapdb command tree. Every subcommand opens the data directory, loads its catalog file
// and closes the database when it is done.
func NewRootCmd() *cobra.Command {
	c := &cli{cfg: config.Default()}

	root := &cobra.Command{
		Use:               "heapdb",
		Short:             "Inspect and modify heap file tables",
		Long:              "heapdb operates on the heap files of a data directory through a page cache with strict two phase locking.",
		SilenceUsage:      true,
		PersistentPreRunE: c.preRun,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.postRun(cmd)
		},
	}

	fs := root.PersistentFlags()
	fs.StringVar(&c.configFile, "config-file", "", "`file` to load YAML config from")
	fs.StringVar(&c.catalogFile, "catalog", "", "catalog `file`, defaults to catalog.txt in the data directory")
	fs.BoolVar(&c.stats, "stats", false, "print buffer pool and lock metrics when done")
	fs.String("data-dir", c.cfg.DataDir, "`dir` holding the heap files")
	fs.Int("page-size", c.cfg.PageSize, "page size in bytes")
	fs.Int("pool-size", c.cfg.PoolSize, "number of pages the buffer pool caches")
	fs.Duration("lock-timeout", c.cfg.LockTimeout, "how long a lock request waits before aborting")
	fs.String("deadlock-policy", c.cfg.DeadlockPolicy, "abort-self or wound-readers")
	fs.String("log-level", c.cfg.Log.Level, "log level: debug, info, warn or error")
	fs.Bool("fsync", c.cfg.Fsync, "sync heap files on every page write")

	root.AddCommand(c.tablesCmd(), c.dumpCmd(), c.scanCmd(), c.insertCmd())
	return root
}

func Execute() error {
	return NewRootCmd().Execute()
}

func (c *cli) preRun(cmd *cobra.Command, args []string) error {
	if c.configFile != "" {
		cfg, err := config.Load(c.configFile)
		if err != nil {
			return err
		}
		c.cfg = cfg
	}

	// flags given on the command line win over the config file
	var err error
	cmd.Flags().Visit(func(flg *pflag.Flag) {
		if err == nil {
			err = c.applyFlag(cmd.Flags(), flg.Name)
		}
	})
	if err != nil {
		return err
	}
	if c.stats {
		c.cfg.Metrics.Enabled = true
	}

	c.db, err = db.Open(c.cfg)
	if err != nil {
		return err
	}

	catalogFile := c.catalogFile
	if catalogFile == "" {
		catalogFile = filepath.Join(c.cfg.DataDir, defaultCatalogFile)
		if _, statErr := os.Stat(catalogFile); os.IsNotExist(statErr) {
			return nil
		}
	}
	_, err = c.db.LoadSchema(catalogFile)
	return err
}

func (c *cli) applyFlag(fs *pflag.FlagSet, name string) (err error) {
	switch name {
	case "data-dir":
		c.cfg.DataDir, err = fs.GetString(name)
	case "page-size":
		c.cfg.PageSize, err = fs.GetInt(name)
	case "pool-size":
		c.cfg.PoolSize, err = fs.GetInt(name)
	case "lock-timeout":
		c.cfg.LockTimeout, err = fs.GetDuration(name)
	case "deadlock-policy":
		c.cfg.DeadlockPolicy, err = fs.GetString(name)
	case "log-level":
		c.cfg.Log.Level, err = fs.GetString(name)
	case "fsync":
		c.cfg.Fsync, err = fs.GetBool(name)
	}
	return err
}

func (c *cli) postRun(cmd *cobra.Command) error {
	if c.db == nil {
		return nil
	}

	if c.stats {
		samples, err := metrics.Snapshot(c.db.Gatherer())
		if err != nil {
			return err
		}
		tw := tablewriter.NewWriter(cmd.ErrOrStderr())
		tw.SetAutoFormatHeaders(false)
		tw.SetHeader([]string{"metric", "value"})
		for _, s := range samples {
			tw.Append([]string{s.Name, fmt.Sprintf("%g", s.Value)})
		}
		tw.Render()
	}

	return c.db.Close()
}
