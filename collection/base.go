package collection

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/gribidx/internal/conv"
	"github.com/hupe1980/gribidx/model"
	"github.com/hupe1980/gribidx/ncx"
)

// VariableIndex maps the coordinates of one variable to its records.
type VariableIndex struct {
	Param    model.Param
	Shape    model.Shape
	NDups    uint32
	NRecords uint32
	Missing  uint32
	Density  float32

	present *roaring.Bitmap
	records []model.Record
}

func newVariableIndex(v *ncx.Variable) *VariableIndex {
	present := v.Present
	if present == nil {
		present = roaring.New()
	}
	return &VariableIndex{
		Param:    v.Param,
		Shape:    v.Shape,
		NDups:    v.NDups,
		NRecords: v.NRecords,
		Missing:  v.Missing,
		Density:  v.Density,
		present:  present,
		records:  v.Records,
	}
}

// Len returns the number of present records.
func (v *VariableIndex) Len() int {
	return len(v.records)
}

// Record returns the record stored for c.
// It returns ErrNotFound when c lies outside the shape and ErrMissing when
// the slot is empty.
func (v *VariableIndex) Record(c model.Coord) (model.Record, error) {
	if !v.Shape.Contains(c) {
		return model.Record{}, fmt.Errorf("%w: coordinate %v outside shape %+v", ErrNotFound, c, v.Shape)
	}
	off, err := conv.IntToUint32(v.Shape.Offset(c))
	if err != nil {
		return model.Record{}, fmt.Errorf("%w: coordinate %v: %w", ErrNotFound, c, err)
	}
	if !v.present.Contains(off) {
		return model.Record{}, ErrMissing
	}
	return v.records[v.present.Rank(off)-1], nil
}

// Group is a set of variables sharing one grid definition.
type Group struct {
	Index       int
	GDSHash     uint32
	Description string
	Variables   []*VariableIndex
}

// Base is the index of a single archive collection.
type Base struct {
	name     string
	dir      string
	path     string
	topDir   string
	files    []string
	runtimes []int64
	groups   []*Group
	closed   atomic.Bool
}

func newBase(name, dir, p string, c *ncx.Collection) *Base {
	b := &Base{
		name:     name,
		dir:      dir,
		path:     p,
		topDir:   c.TopDir,
		files:    c.Files,
		runtimes: c.Runtimes,
	}
	if b.topDir == "" {
		b.topDir = dir
	}
	b.groups = make([]*Group, len(c.Groups))
	for gi := range c.Groups {
		g := &c.Groups[gi]
		grp := &Group{
			Index:       gi,
			GDSHash:     g.GDSHash,
			Description: g.Description,
			Variables:   make([]*VariableIndex, len(g.Variables)),
		}
		for vi := range g.Variables {
			grp.Variables[vi] = newVariableIndex(&g.Variables[vi])
		}
		b.groups[gi] = grp
	}
	return b
}

func (b *Base) Name() string          { return b.name }
func (b *Base) Path() string          { return b.path }
func (b *Base) Kind() ncx.Kind        { return ncx.KindBase }
func (b *Base) NumGroups() int        { return len(b.groups) }
func (b *Base) Runtimes() []time.Time { return toTimes(b.runtimes) }

// Files returns the archive files records point into.
func (b *Base) Files() []string {
	return slices.Clone(b.files)
}

// Group returns the group at index i.
func (b *Base) Group(i int) (*Group, bool) {
	if i < 0 || i >= len(b.groups) {
		return nil, false
	}
	return b.groups[i], true
}

func (b *Base) variable(group, variable int) (uint32, bool) {
	v, err := b.lookupVariable(group, variable)
	if err != nil {
		return 0, false
	}
	return v.NRecords, true
}

func (b *Base) lookupVariable(group, variable int) (*VariableIndex, error) {
	g, ok := b.Group(group)
	if !ok {
		return nil, newError(KindNotFound, b.name, b.path, fmt.Sprintf("group %d not found", group), nil)
	}
	if variable < 0 || variable >= len(g.Variables) {
		return nil, newError(KindNotFound, b.name, b.path, fmt.Sprintf("variable %d not found in group %d", variable, group), nil)
	}
	return g.Variables[variable], nil
}

// Lookup resolves c in the variable's sparse map.
func (b *Base) Lookup(ctx context.Context, group, variable int, c model.Coord) (model.Location, error) {
	if b.closed.Load() {
		return model.Location{}, newError(KindClosed, b.name, b.path, "lookup", nil)
	}
	if err := ctx.Err(); err != nil {
		return model.Location{}, err
	}
	v, err := b.lookupVariable(group, variable)
	if err != nil {
		return model.Location{}, err
	}
	rec, err := v.Record(c)
	switch {
	case errors.Is(err, ErrMissing):
		return model.Location{}, newError(KindMissing, b.name, b.path, fmt.Sprintf("%s %v", v.Param, c), nil)
	case err != nil:
		return model.Location{}, newError(KindNotFound, b.name, b.path, v.Param.String(), err)
	}
	if int(rec.FileNo) >= len(b.files) {
		return model.Location{}, newError(KindFormat, b.name, b.path,
			fmt.Sprintf("record %v references file %d of %d", rec, rec.FileNo, len(b.files)), nil)
	}
	return model.Location{
		Collection: b.name,
		Path:       path.Join(b.topDir, b.files[rec.FileNo]),
		Offset:     rec.Offset,
		Length:     rec.Length,
	}, nil
}

// Close marks the index closed. A base index holds no open handles.
func (b *Base) Close() error {
	b.closed.Store(true)
	return nil
}
