// SPDX-License-Identifier: MIT

// Package cli implements the treemap command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gitlab.com/fisherprime/treemap"
	"gitlab.com/fisherprime/treemap/fswalk"
	"gitlab.com/fisherprime/treemap/internal/httputil"
	"gitlab.com/fisherprime/treemap/internal/server"
	"gitlab.com/fisherprime/treemap/population"
)

// CLI holds the state shared by every command.
type CLI struct {
	Logger *logrus.Logger
	Config Config

	out  io.Writer
	logw io.Writer

	configPath string
	verbose    bool
	debug      bool
	check      bool
	population bool
	refresh    bool
	width      int
	height     int
}

// CLI errors.
var (
	ErrNoTile = errors.New("no tile at point")
)

// New instantiates a CLI writing results to out & logs to logw.
func New(out, logw io.Writer) *CLI {
	return &CLI{Logger: newLogger(logw), Config: DefaultConfig(), out: out, logw: logw}
}

// RootCommand creates the root cobra command with every subcommand registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Treemap renders weighted hierarchies as nested rectangles",
		Long: `Treemap reads a directory hierarchy or the World Bank population dataset into a
weighted tree & lays it out as a treemap, each leaf taking an area proportional to its size.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", defaultConfigPath(), "configuration file")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	flags.BoolVar(&c.debug, "debug", false, "enable debug output of the tree operations")
	flags.BoolVar(&c.check, "check", false, "verify the tree's invariants after loading")
	flags.BoolVarP(&c.population, "population", "p", false, "load the World Bank population dataset instead of a path")
	flags.BoolVar(&c.refresh, "refresh", false, "bypass the cached population dataset")
	flags.IntVar(&c.width, "width", 0, "display width, overrides the configuration")
	flags.IntVar(&c.height, "height", 0, "display height, overrides the configuration")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.dumpCommand())
	root.AddCommand(c.pickCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.tuiCommand())

	return root
}

// setup loads the configuration file & applies flag overrides.
func (c *CLI) setup(cmd *cobra.Command, _ []string) (err error) {
	required := cmd.Flags().Changed("config")
	if c.Config, err = LoadConfig(c.configPath, required); err != nil {
		return
	}

	if cmd.Flags().Changed("width") {
		c.Config.Display.Width = c.width
	}
	if cmd.Flags().Changed("height") {
		c.Config.Display.Height = c.height
	}
	if c.Config.Display.Width < 0 || c.Config.Display.Height < 0 {
		return fmt.Errorf("%w: negative display %dx%d", ErrConfig, c.Config.Display.Width, c.Config.Display.Height)
	}

	setOutput(c.Logger, c.Config.Log, c.logw)
	if err = setLevel(c.Logger, c.Config.Log.Level, c.verbose); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	c.Logger.WithField("config", c.configPath).Debugf("configuration: %+v", c.Config)

	return
}

func (c *CLI) display() treemap.Rect {
	return treemap.Rect{W: c.Config.Display.Width, H: c.Config.Display.Height}
}

// loadTree reads the selected source, a path argument or the population dataset.
func (c *CLI) loadTree(ctx context.Context, args []string) (tree *treemap.Tree, root treemap.NodeID, err error) {
	cfg := treemap.DefConfig()
	cfg.Logger, cfg.Debug = c.Logger, c.debug

	if c.population {
		cfg.Separator = treemap.PopulationSeparator
		tree = treemap.New(treemap.WithConfig(cfg))

		logger := c.Logger.WithField("source", "population")

		var cache *httputil.Cache
		if cache, err = httputil.NewCache(c.Config.Cache.Dir, c.Config.Cache.TTL.Duration); err != nil {
			return
		}
		client := httputil.NewClient(cache.Namespace("worldbank:"), httputil.WithLogger(logger))

		root, err = population.Load(ctx, tree,
			population.WithClient(client),
			population.WithLogger(logger),
			population.WithDebug(c.debug),
			population.WithRefresh(c.refresh),
		)
	} else {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}
		tree = treemap.New(treemap.WithConfig(cfg))

		root, err = fswalk.Walk(ctx, path, tree, fswalk.WithConfig(&fswalk.Config{
			Logger:  c.Logger.WithField("source", "fs"),
			Debug:   c.debug,
			Workers: c.Config.Scan.Workers,
		}))
	}
	if err != nil {
		return
	}

	if c.check {
		err = tree.Check(ctx, root)
	}

	return
}

func (c *CLI) layoutCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "layout [path]",
		Short: "Print the treemap's tiles",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			tree, root, err := c.loadTree(cmd.Context(), args)
			if err != nil {
				return
			}

			display := c.display()
			tiles := tree.LayOut(root, display)

			if format == "" {
				format = formatText
				if f, ok := c.out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
					format = formatPreview
				}
			}

			if format == formatPreview {
				_, err = fmt.Fprintln(c.out, paint(tiles, display, treemap.NoNode))
				return
			}

			return writeTiles(c.out, tree, tiles, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: json, text or preview (default preview on a terminal, text otherwise)")

	return cmd
}

func (c *CLI) dumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dump [path]",
		Short: "Print the tree as an indented outline",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			tree, root, err := c.loadTree(cmd.Context(), args)
			if err != nil {
				return
			}

			return outline(c.out, tree, root, 0)
		},
	}
}

func (c *CLI) pickCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pick x y [path]",
		Short: "Describe the leaf displayed at a point",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			x, err := strconv.Atoi(args[0])
			if err != nil {
				return
			}
			y, err := strconv.Atoi(args[1])
			if err != nil {
				return
			}

			tree, root, err := c.loadTree(cmd.Context(), args[2:])
			if err != nil {
				return
			}

			s := newSession(tree, root, c.Logger)
			s.setSize(c.Config.Display.Width, c.Config.Display.Height+statusHeight)
			s.selectAt(x, y)

			if s.selected == treemap.NoNode {
				return fmt.Errorf("(%d, %d) %w", x, y, ErrNoTile)
			}

			_, err = fmt.Fprintln(c.out, s.status())
			return
		},
	}
}

func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve [path]",
		Short: "Serve the treemap over a JSON API",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			tree, root, err := c.loadTree(cmd.Context(), args)
			if err != nil {
				return
			}

			if !cmd.Flags().Changed("addr") {
				addr = c.Config.Server.Addr
			}

			srv := server.New(tree, root, server.WithLogger(c.Logger), server.WithDisplay(c.display()))
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides the configuration")

	return cmd
}

func (c *CLI) tuiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui [path]",
		Short: "Explore the treemap interactively",
		Long: `Explore the treemap interactively: left click selects a leaf (click again to deselect),
right click deletes the leaf under the cursor, up & down resize the selection by one percent.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			tree, root, err := c.loadTree(cmd.Context(), args)
			if err != nil {
				return
			}

			// Logs would garble the alternate screen.
			setOutput(c.Logger, c.Config.Log, io.Discard)

			p := tea.NewProgram(newModel(newSession(tree, root, c.Logger)),
				tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(cmd.Context()))
			_, err = p.Run()

			return
		},
	}
}
