// SPDX-License-Identifier: MIT

// Package fswalk reads a directory hierarchy into a [treemap.Tree], files weighted by their
// byte length.
package fswalk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"

	"gitlab.com/fisherprime/treemap"
)

type (
	// Config defines configuration options for a scan.
	Config struct {
		// Logger for scan messages, unreadable entries are reported here.
		Logger logrus.FieldLogger
		Debug  bool

		// Workers bounds the number of directories listed concurrently.
		Workers int
	}

	// Option defines the scan functional option type.
	Option func(*Config)

	// entry is the intermediate result of a scan.
	entry struct {
		name string
		size int64
		dir  bool

		// children keeps the os.ReadDir order.
		children []*entry
	}

	scanner struct {
		ctx  context.Context
		cfg  *Config
		pool *ants.Pool
		wg   sync.WaitGroup

		files, dirs, skipped atomic.Int64

		mu  sync.Mutex
		err error
	}
)

// Scan errors.
var (
	ErrScan = errors.New("failed to scan")
)

// DefConfig obtains the package's default scan options.
func DefConfig() *Config {
	return &Config{Logger: logrus.StandardLogger(), Workers: runtime.GOMAXPROCS(0)}
}

// WithConfig configures every scan option.
func WithConfig(cfg *Config) Option {
	return func(c *Config) { *c = *cfg }
}

// WithLogger configures the logger option.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithWorkers configures the size of the listing pool.
func WithWorkers(n int) Option {
	return func(c *Config) { c.Workers = n }
}

// Walk scans the hierarchy rooted at path & constructs it in t, returning the root's handle.
//
// A file becomes a leaf sized by its byte length, a directory a branch of its entries in
// listing order. The root is labelled with the base name of path. Symbolic links aren't
// followed; they are leaves sized by the link itself. Entries that can't be read are logged
// & skipped.
func Walk(ctx context.Context, path string, t *treemap.Tree, options ...Option) (root treemap.NodeID, err error) {
	root = treemap.NoNode

	cfg := DefConfig()
	for _, opt := range options {
		opt(cfg)
	}

	defer func() {
		if err != nil {
			err = fmt.Errorf("%w (%s): %w", ErrScan, path, err)
		}
	}()

	info, err := os.Lstat(path)
	if err != nil {
		return
	}

	top := &entry{name: filepath.Base(filepath.Clean(path)), size: info.Size(), dir: info.IsDir()}
	if top.dir {
		if err = scan(ctx, cfg, path, top); err != nil {
			return
		}
	}

	root = construct(t, top)
	t.SetRoot(root)

	if cfg.Debug {
		cfg.Logger.WithField("path", path).Debugf("constructed tree of size %d", t.Size(root))
	}

	return
}

// scan lists directories concurrently, filling in the intermediate tree below top.
func scan(ctx context.Context, cfg *Config, path string, top *entry) (err error) {
	s := &scanner{ctx: ctx, cfg: cfg}

	// Overloaded submissions run inline, recursion never waits on a busy pool.
	if s.pool, err = ants.NewPool(max(cfg.Workers, 1),
		ants.WithNonblocking(true),
		ants.WithLogger(cfg.Logger),
		ants.WithPanicHandler(func(r interface{}) { s.fail(fmt.Errorf("listing panicked: %v", r)) }),
	); err != nil {
		return
	}
	defer s.pool.Release()

	s.submit(path, top)
	s.wg.Wait()

	cfg.Logger.WithFields(logrus.Fields{
		"path":    path,
		"files":   s.files.Load(),
		"dirs":    s.dirs.Load(),
		"skipped": s.skipped.Load(),
	}).Info("scanned")

	if err = ctx.Err(); err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}

func (s *scanner) submit(path string, e *entry) {
	s.wg.Add(1)

	task := func() {
		defer s.wg.Done()
		s.list(path, e)
	}

	switch err := s.pool.Submit(task); {
	case errors.Is(err, ants.ErrPoolOverload):
		task()
	case err != nil:
		s.wg.Done()
		s.fail(err)
	}
}

// list reads a directory's entries into e, submitting its sub-directories.
func (s *scanner) list(path string, e *entry) {
	if s.ctx.Err() != nil {
		return
	}

	s.dirs.Add(1)
	logger := s.cfg.Logger.WithField("path", path)

	// Entries read before an error are kept.
	dirEntries, err := os.ReadDir(path)
	if err != nil {
		s.skipped.Add(1)
		logger.WithError(err).Warn("unreadable directory")
	}

	e.children = make([]*entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			s.skipped.Add(1)
			logger.WithError(err).WithField("entry", de.Name()).Warn("unreadable entry")
			continue
		}

		// Lstat semantics, a link to a directory isn't a directory.
		child := &entry{name: de.Name(), size: info.Size(), dir: de.IsDir()}
		e.children = append(e.children, child)

		if child.dir {
			s.submit(filepath.Join(path, child.name), child)
			continue
		}
		s.files.Add(1)
	}
}

func (s *scanner) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.err = errors.Join(s.err, err)
}

// construct builds the scanned entries in t, children before their parent.
func construct(t *treemap.Tree, e *entry) treemap.NodeID {
	if !e.dir {
		return t.Leaf(e.name, e.size)
	}

	ids := make([]treemap.NodeID, len(e.children))
	for index, child := range e.children {
		ids[index] = construct(t, child)
	}

	return t.Branch(e.name, ids...)
}
