// SPDX-License-Identifier: MIT
package treemap

import (
	"context"
	"errors"
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
)

type (
	// Builder defines an interface for weighted entities that can be read into a Tree.
	Builder interface {
		// Value obtains the label stored by the Builder.
		Value() string
		// Parent obtains the parent's label stored by the Builder, "" for the root.
		Parent() string
		// Size obtains the intrinsic size, used only when the entity has no children.
		Size() int64
	}

	// BuildSource is a wrapper type for []Builder used to generate a Tree.
	BuildSource struct {
		debug  bool
		logger logrus.FieldLogger

		list []Builder
	}

	// Record is a sample Builder interface implementation.
	Record struct {
		value  string
		parent string
		size   int64
	}

	// BuildOption defines the BuildSource functional option type.
	BuildOption func(*BuildSource)
)

// Tree building errors.
var (
	ErrBuildTree = errors.New("failed to build tree")

	ErrMissingRootNode   = errors.New("missing root node")
	ErrMultipleRootNodes = errors.New("tree has multiple root nodes")

	ErrEmptyTreeSrc   = errors.New("empty tree source")
	ErrInvalidTreeSrc = errors.New("invalid tree source")
	ErrDuplicateValue = errors.New("duplicate value")

	ErrLocateParents = errors.New("unable to locate parents(s)")

	ErrPanicked = errors.New("recovery from panic")
)

// NewRecord instantiates a [Record].
func NewRecord(value, parent string, size int64) *Record {
	return &Record{value: value, parent: parent, size: size}
}

// Value obtains the value stored by the Record.
func (r *Record) Value() string { return r.value }

// Parent obtains the parent stored by the Record.
func (r *Record) Parent() string { return r.parent }

// Size obtains the size stored by the Record.
func (r *Record) Size() int64 { return r.size }

// NewBuildSource instantiates a BuildSource.
func NewBuildSource(options ...BuildOption) *BuildSource {
	b := &BuildSource{list: []Builder{}, logger: defConfig.Logger}

	for _, opt := range options {
		opt(b)
	}

	return b
}

// WithBuilders configures the underlying list.
func WithBuilders(list []Builder) BuildOption {
	return func(b *BuildSource) { b.list = list }
}

// WithBuildLogger configures the logger option.
func WithBuildLogger(logger logrus.FieldLogger) BuildOption {
	return func(b *BuildSource) { b.logger = logger }
}

// WithDebug configures the debug option.
func WithDebug(debug bool) BuildOption {
	return func(b *BuildSource) { b.debug = debug }
}

// Add entities to the BuildSource.
func (b *BuildSource) Add(builders ...Builder) { b.list = append(b.list, builders...) }

// Len retrieves the length of the BuildSource.
func (b *BuildSource) Len() int { return len(b.list) }

// Build constructs the BuildSource's entities in a Tree, returning the root's handle.
//
// Children keep the order they have in the source. An entity with children gets the sum of
// their sizes, its own Size is ignored. The root becomes the Tree's display root.
//
// A failed Build may leave unreachable nodes in the Tree's arena.
func (b *BuildSource) Build(ctx context.Context, t *Tree) (root NodeID, err error) {
	root = NoNode

	defer func() {
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrBuildTree, err)
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanicked, r)
		}

		if err != nil {
			// Skip expensive operation if not debug.
			if b.debug {
				b.logger.Debugf("source: %s", spew.Sdump(b.list))
			}

			root = NoNode
			err = fmt.Errorf("%w: %w", ErrInvalidTreeSrc, err)
		}
	}()

	if b.Len() < 1 {
		err = ErrEmptyTreeSrc
		return
	}

	select {
	case <-ctx.Done():
		err = ctx.Err()
		return
	default:
	}

	var (
		rootIndex = -1
		seen      = make(map[string]struct{}, b.Len())
		children  = make(map[string][]Builder)
	)
	for index, entity := range b.list {
		value := entity.Value()
		if _, ok := seen[value]; ok {
			err = fmt.Errorf("(%s) %w", value, ErrDuplicateValue)
			return
		}
		seen[value] = struct{}{}

		parent := entity.Parent()
		if parent != "" {
			children[parent] = append(children[parent], entity)
			continue
		}

		// Disallow additional root node(s).
		if rootIndex > -1 {
			err = ErrMultipleRootNodes
			return
		}
		rootIndex = index
	}
	if rootIndex < 0 {
		err = ErrMissingRootNode
		return
	}

	rootEntity := b.list[rootIndex]
	if b.debug {
		b.logger.Debugf("root: %s, source length: %d", rootEntity.Value(), b.Len())
	}

	built := 0
	if root, err = b.construct(ctx, t, rootEntity, children, &built); err != nil {
		return
	}

	// Entities whose parents are missing or part of a cycle.
	if built != b.Len() {
		err = fmt.Errorf("%w for %d of %d entities", ErrLocateParents, b.Len()-built, b.Len())
		return
	}

	t.SetRoot(root)

	return
}

// construct builds an entity after its children (post-order).
func (b *BuildSource) construct(ctx context.Context, t *Tree, entity Builder, children map[string][]Builder, built *int) (id NodeID, err error) {
	select {
	case <-ctx.Done():
		err = ctx.Err()
		return
	default:
	}

	*built++

	subs := children[entity.Value()]
	if len(subs) < 1 {
		return t.Leaf(entity.Value(), entity.Size()), nil
	}

	ids := make([]NodeID, len(subs))
	for index, sub := range subs {
		if ids[index], err = b.construct(ctx, t, sub, children, built); err != nil {
			return
		}
	}

	return t.Branch(entity.Value(), ids...), nil
}
