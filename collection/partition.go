package collection

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/gribidx/blobstore"
	"github.com/hupe1980/gribidx/model"
	"github.com/hupe1980/gribidx/ncx"
)

// Contribution is one partition's share of a partitioned variable.
type Contribution struct {
	Partno   int
	Groupno  int
	Varno    int
	Flags    uint32
	NDups    uint32
	NRecords uint32
	Missing  uint32
	Density  float32
}

// KnownMissing reports whether the partition is recorded as holding none
// of the variable's expected records. Density is informational: indexes
// written without it decode to zero.
func (c Contribution) KnownMissing() bool {
	return c.NRecords > 0 && c.Missing == c.NRecords
}

// Nested reports whether the contribution is served by a nested partition index.
func (c Contribution) Nested() bool {
	return c.Flags&ncx.FlagNested != 0
}

// TimeDiffers reports whether the partition uses its own time coordinate.
func (c Contribution) TimeDiffers() bool {
	return c.Flags&ncx.FlagTimeDiffers != 0
}

// PartitionedVariable is a variable assembled from partition contributions.
type PartitionedVariable struct {
	Param    model.Param
	Shape    model.Shape
	NDups    uint32
	NRecords uint32
	Missing  uint32
	Density  float32
	// Contributions are ordered by descending partition number.
	Contributions []Contribution
}

// PartitionedGroup is a group of a partition index.
type PartitionedGroup struct {
	Index       int
	GDSHash     uint32
	Description string
	Variables   []*PartitionedVariable
}

// Partition references a child index file.
type Partition struct {
	Number    int
	Name      string
	Filename  string
	Directory string
	// LastModified is the child's modification time recorded by the writer.
	LastModified time.Time
	// Runs lists the master runs the partition covers, ascending.
	Runs []int

	path string
}

// Path returns the store path of the partition's index file.
func (p *Partition) Path() string {
	return p.path
}

// localRun returns the position of a master run within the partition.
func (p *Partition) localRun(run int) (int, bool) {
	return slices.BinarySearch(p.Runs, run)
}

type contribRef struct {
	group    int
	variable int
	c        Contribution
}

// Partitioned is a collection index composed of partition indexes.
// Partitions are opened on first use and kept until Close.
type Partitioned struct {
	name  string
	dir   string
	path  string
	store blobstore.BlobStore
	opts  *options
	// chain is the index path of every ancestor followed by this index's.
	chain []string

	runtimes   []int64
	run2part   []uint32
	isPofP     bool
	partitions []*Partition
	groups     []*PartitionedGroup
	refs       [][]contribRef

	opening singleflight.Group

	mu       sync.Mutex
	children map[int]Index
	unusable map[int]error
	closed   bool
}

func newPartitioned(name, dir, p string, store blobstore.BlobStore, c *ncx.Collection, o *options) (*Partitioned, error) {
	if len(c.Partitions) == 0 {
		return nil, newError(KindFormat|KindIO, name, p, "reading index failed", errors.New("partition index lists no partitions"))
	}
	nparts := len(c.Partitions)
	for i, pn := range c.Run2Part {
		if int(pn) >= nparts {
			return nil, newError(KindFormat, name, p, "invalid run2part",
				fmt.Errorf("run2part[%d] = %d, collection has %d partitions", i, pn, nparts))
		}
	}
	if len(c.Runtimes) > 0 && len(c.Run2Part) != len(c.Runtimes) {
		return nil, newError(KindFormat, name, p, "invalid run2part",
			fmt.Errorf("run2part has %d entries for %d runtimes", len(c.Run2Part), len(c.Runtimes)))
	}

	chain := append(slices.Clone(o.chain), path.Clean(p))
	pc := &Partitioned{
		name:     name,
		dir:      dir,
		path:     p,
		store:    store,
		opts:     o,
		chain:    chain,
		runtimes: c.Runtimes,
		run2part: c.Run2Part,
		isPofP:   c.IsPartitionOfPartitions,
		refs:     make([][]contribRef, nparts),
		children: make(map[int]Index),
		unusable: make(map[int]error),
	}

	nruns := max(len(c.Run2Part), len(c.Runtimes))
	pc.partitions = make([]*Partition, nparts)
	for i := range c.Partitions {
		src := &c.Partitions[i]
		part := &Partition{
			Number:    i,
			Name:      src.Name,
			Filename:  src.Filename,
			Directory: src.Directory,
			path:      path.Clean(PartitionPath(*src)),
		}
		if src.LastModified != 0 {
			part.LastModified = time.UnixMilli(int64(src.LastModified)).UTC()
		}
		if slices.Contains(chain, part.path) {
			return nil, newError(KindFormat, name, p, "cyclic partition reference",
				fmt.Errorf("partition %d (%s) resolves to an ancestor index", i, part.path))
		}
		if len(src.Runs) > 0 {
			for j, r := range src.Runs {
				if (j > 0 && r <= src.Runs[j-1]) || (nruns > 0 && int(r) >= nruns) {
					pc.markUnusableLocked(i, newError(KindFormat, name, p, "invalid partition runs",
						fmt.Errorf("partition %d: run list %v not ascending within 0..%d", i, src.Runs, nruns-1)))
					break
				}
			}
			part.Runs = make([]int, len(src.Runs))
			for j, r := range src.Runs {
				part.Runs[j] = int(r)
			}
		} else {
			for r, pn := range c.Run2Part {
				if int(pn) == i {
					part.Runs = append(part.Runs, r)
				}
			}
		}
		pc.partitions[i] = part
	}

	for _, is := range c.Issues {
		if is.Partno >= 0 && is.Partno < nparts {
			pc.markUnusableLocked(is.Partno, newError(KindFormat, name, p, "malformed contribution", is))
			continue
		}
		o.logger.Warn("dropping malformed contribution", "collection", name, "path", p, "error", is)
	}

	pc.groups = make([]*PartitionedGroup, len(c.Groups))
	for gi := range c.Groups {
		g := &c.Groups[gi]
		grp := &PartitionedGroup{
			Index:       gi,
			GDSHash:     g.GDSHash,
			Description: g.Description,
			Variables:   make([]*PartitionedVariable, len(g.Variables)),
		}
		for vi := range g.Variables {
			grp.Variables[vi] = pc.assemble(gi, vi, &g.Variables[vi])
		}
		pc.groups[gi] = grp
	}
	return pc, nil
}

// assemble ties each contribution to its partition by number.
func (p *Partitioned) assemble(gi, vi int, v *ncx.Variable) *PartitionedVariable {
	pv := &PartitionedVariable{
		Param:    v.Param,
		Shape:    v.Shape,
		NDups:    v.NDups,
		NRecords: v.NRecords,
		Missing:  v.Missing,
		Density:  v.Density,
	}
	for _, src := range v.Partitions {
		c := Contribution{
			Partno:   int(src.Partno),
			Groupno:  int(src.Groupno),
			Varno:    int(src.Varno),
			Flags:    src.Flags,
			NDups:    src.NDups,
			NRecords: src.NRecords,
			Missing:  src.Missing,
			Density:  src.Density,
		}
		if c.Partno >= len(p.partitions) {
			p.opts.logger.Warn("dropping contribution for unknown partition",
				"collection", p.name, "group", gi, "variable", vi, "partno", c.Partno, "partitions", len(p.partitions))
			continue
		}
		if c.Missing > c.NRecords || !(c.Density >= 0 && c.Density <= 1) {
			p.markUnusableLocked(c.Partno, newError(KindFormat, p.name, p.path, "inconsistent contribution",
				fmt.Errorf("group %d variable %d partition %d: missing %d of %d records, density %v",
					gi, vi, c.Partno, c.Missing, c.NRecords, c.Density)))
		}
		pv.Contributions = append(pv.Contributions, c)
		p.refs[c.Partno] = append(p.refs[c.Partno], contribRef{group: gi, variable: vi, c: c})
	}
	slices.SortStableFunc(pv.Contributions, func(a, b Contribution) int {
		return cmp.Compare(b.Partno, a.Partno)
	})
	return pv
}

// markUnusableLocked excludes a partition from lookups. The first cause wins.
func (p *Partitioned) markUnusableLocked(partno int, err error) {
	if _, ok := p.unusable[partno]; ok {
		return
	}
	p.unusable[partno] = err
	p.opts.logger.Warn("partition unusable", "collection", p.name, "partno", partno, "error", err)
	p.opts.observer.PartitionUnusable(p.name, partno, err)
}

func (p *Partitioned) Name() string          { return p.name }
func (p *Partitioned) Path() string          { return p.path }
func (p *Partitioned) Kind() ncx.Kind        { return ncx.KindPartition }
func (p *Partitioned) NumGroups() int        { return len(p.groups) }
func (p *Partitioned) Runtimes() []time.Time { return toTimes(p.runtimes) }

// IsPartitionOfPartitions reports whether the partitions are themselves
// partition indexes.
func (p *Partitioned) IsPartitionOfPartitions() bool {
	return p.isPofP
}

// Run2Part returns the master run to partition number map.
func (p *Partitioned) Run2Part() []int {
	out := make([]int, len(p.run2part))
	for i, pn := range p.run2part {
		out[i] = int(pn)
	}
	return out
}

// Partitions returns copies of the partition references.
func (p *Partitioned) Partitions() []Partition {
	out := make([]Partition, len(p.partitions))
	for i, part := range p.partitions {
		out[i] = *part
		out[i].Runs = slices.Clone(part.Runs)
	}
	return out
}

// Group returns the group at index i.
func (p *Partitioned) Group(i int) (*PartitionedGroup, bool) {
	if i < 0 || i >= len(p.groups) {
		return nil, false
	}
	return p.groups[i], true
}

// Unusable returns the reason a partition was excluded from lookups, or nil.
func (p *Partitioned) Unusable(partno int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unusable[partno]
}

// OpenedPartitions returns the numbers of the partitions opened so far.
func (p *Partitioned) OpenedPartitions() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, 0, len(p.children))
	for n := range p.children {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

func (p *Partitioned) variable(group, variable int) (uint32, bool) {
	pv, err := p.lookupVariable(group, variable)
	if err != nil {
		return 0, false
	}
	return pv.NRecords, true
}

func (p *Partitioned) lookupVariable(group, variable int) (*PartitionedVariable, error) {
	g, ok := p.Group(group)
	if !ok {
		return nil, newError(KindNotFound, p.name, p.path, fmt.Sprintf("group %d not found", group), nil)
	}
	if variable < 0 || variable >= len(g.Variables) {
		return nil, newError(KindNotFound, p.name, p.path, fmt.Sprintf("variable %d not found in group %d", variable, group), nil)
	}
	return g.Variables[variable], nil
}

// child returns the opened index of a partition, opening it on first use.
// p.mu is never held across blob I/O; concurrent first uses of the same
// partition share one open.
func (p *Partitioned) child(ctx context.Context, partno int) (Index, error) {
	if idx, settled, err := p.cachedChild(partno); settled {
		return idx, err
	}

	ch := p.opening.DoChan(strconv.Itoa(partno), func() (any, error) {
		return p.openChild(context.WithoutCancel(ctx), partno)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Index), nil
	case <-ctx.Done():
		return nil, newError(KindIO, p.name, p.path, "waiting to open partition", ctx.Err())
	}
}

// cachedChild reports the settled state of a partition: its opened index,
// its unusable error, or settled == false when it has still to be opened.
func (p *Partitioned) cachedChild(partno int) (idx Index, settled bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, true, newError(KindClosed, p.name, p.path, "open partition", nil)
	}
	if idx, ok := p.children[partno]; ok {
		return idx, true, nil
	}
	if err := p.unusable[partno]; err != nil {
		return nil, true, err
	}
	return nil, false, nil
}

func (p *Partitioned) openChild(ctx context.Context, partno int) (Index, error) {
	// A previous flight may have settled the partition since the caller looked.
	if idx, settled, err := p.cachedChild(partno); settled {
		return idx, err
	}

	release, err := p.opts.limiter.AcquireOpen(ctx)
	if err != nil {
		return nil, newError(KindIO, p.name, p.path, "waiting to open partition", err)
	}
	defer release()

	part := p.partitions[partno]
	o := *p.opts
	o.chain = p.chain

	start := time.Now()
	idx, err := openPath(ctx, p.store, part.Name, part.Directory, part.path, &o)
	if err == nil {
		if err = p.checkChild(partno, idx); err != nil {
			_ = idx.Close()
		}
	}
	p.opts.observer.PartitionOpened(p.name, partno, time.Since(start), err)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		if isUnusable(err) && !p.closed {
			p.markUnusableLocked(partno, err)
		}
		return nil, err
	}
	if p.closed {
		_ = idx.Close()
		return nil, newError(KindClosed, p.name, p.path, "open partition", nil)
	}
	p.opts.logger.Debug("opened partition", "collection", p.name, "partno", partno, "path", part.path, "kind", idx.Kind())
	p.children[partno] = idx
	return idx, nil
}

// checkChild verifies the contributions against the opened partition.
func (p *Partitioned) checkChild(partno int, idx Index) error {
	for _, ref := range p.refs[partno] {
		n, ok := idx.variable(ref.c.Groupno, ref.c.Varno)
		if !ok {
			return newError(KindFormat, p.name, p.path, "contribution references missing variable",
				fmt.Errorf("group %d variable %d: partition %d has no group %d variable %d",
					ref.group, ref.variable, partno, ref.c.Groupno, ref.c.Varno))
		}
		if ref.c.NRecords > n {
			return newError(KindFormat, p.name, p.path, "contribution exceeds partition variable",
				fmt.Errorf("group %d variable %d: partition %d contributes %d records, its variable has %d",
					ref.group, ref.variable, partno, ref.c.NRecords, n))
		}
	}
	return nil
}

// Lookup resolves c through the newest usable partition covering c.Run.
func (p *Partitioned) Lookup(ctx context.Context, group, variable int, c model.Coord) (model.Location, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return model.Location{}, newError(KindClosed, p.name, p.path, "lookup", nil)
	}

	pv, err := p.lookupVariable(group, variable)
	if err != nil {
		return model.Location{}, err
	}

	for _, ct := range pv.Contributions {
		part := p.partitions[ct.Partno]
		local, ok := part.localRun(c.Run)
		if !ok || p.Unusable(ct.Partno) != nil {
			continue
		}
		if ct.KnownMissing() {
			return model.Location{}, newError(KindMissing, p.name, p.path,
				fmt.Sprintf("%s %v in partition %d", pv.Param, c, ct.Partno), nil)
		}

		idx, err := p.child(ctx, ct.Partno)
		if err != nil {
			if isUnusable(err) {
				continue
			}
			return model.Location{}, err
		}

		lc := c
		lc.Run = local
		loc, err := idx.Lookup(ctx, ct.Groupno, ct.Varno, lc)
		if err != nil && errors.Is(err, ErrNotFound) && !errors.Is(err, ErrFormat) {
			continue
		}
		return loc, err
	}

	return model.Location{}, newError(KindNotFound, p.name, p.path,
		fmt.Sprintf("no partition covers %s %v", pv.Param, c), nil)
}

// Verify opens every partition recursively and returns the joined causes
// of all partitions that cannot be used.
func (p *Partitioned) Verify(ctx context.Context) error {
	var errs []error
	for i, part := range p.partitions {
		if err := ctx.Err(); err != nil {
			return err
		}
		idx, err := p.child(ctx, i)
		if err != nil {
			errs = append(errs, fmt.Errorf("partition %d (%s): %w", i, part.path, err))
			continue
		}
		if nested, ok := idx.(*Partitioned); ok {
			if err := nested.Verify(ctx); err != nil {
				errs = append(errs, fmt.Errorf("partition %d (%s): %w", i, part.path, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Close closes every opened partition.
func (p *Partitioned) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	for _, idx := range p.children {
		if err := idx.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.children = nil
	return errors.Join(errs...)
}
