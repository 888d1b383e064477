package testutil

import (
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/gribidx/model"
	"github.com/hupe1980/gribidx/ncx"
)

// Temperature is the parameter used by the fixtures unless a test needs
// another one.
var Temperature = model.Param{Discipline: 0, Category: 0, Number: 0, LevelType: 103}

// Recorded is the modification time every fixture partition records.
var Recorded = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Missing returns a mask of n slots where each slot is missing with
// probability missingRate.
func (r *RNG) Missing(n int, missingRate float64) []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	mask := make([]bool, n)
	for i := range mask {
		mask[i] = r.rand.Float64() < missingRate
	}
	return mask
}

// Base returns a base collection with a single variable of the given shape.
// Each slot is missing with probability missingRate. Present records sit at
// offset slot*100 with a random length.
func (r *RNG) Base(name string, shape model.Shape, missingRate float64) *ncx.Collection {
	mask := r.Missing(shape.Size(), missingRate)

	v := ncx.Variable{Param: Temperature, Shape: shape, Present: roaring.New()}
	for slot, missing := range mask {
		if missing {
			continue
		}
		v.Present.Add(uint32(slot))
		v.Records = append(v.Records, model.Record{
			Offset: uint64(slot) * 100,
			Length: uint32(1 + r.Intn(99)),
		})
	}
	v.NRecords = uint32(len(v.Records))
	if size := shape.Size(); size > 0 {
		v.Density = float32(len(v.Records)) / float32(size)
	}

	runtimes := make([]int64, shape.Runs)
	for i := range runtimes {
		runtimes[i] = Recorded.Add(time.Duration(i) * 6 * time.Hour).UnixMilli()
	}

	return &ncx.Collection{
		Kind:     ncx.KindBase,
		Name:     name,
		Files:    []string{name + ".grib2"},
		Runtimes: runtimes,
		Groups:   []ncx.Group{{Description: "lat-lon", Variables: []ncx.Variable{v}}},
	}
}

// Base returns a fully populated base collection with shape
// {runs, 2, 1, 1}. The record of slot i sits at offsetBase + i*10.
func Base(name string, param model.Param, runs int, offsetBase uint64, length uint32) *ncx.Collection {
	shape := model.Shape{Runs: runs, Times: 2, Levels: 1, Ens: 1}
	v := ncx.Variable{Param: param, Shape: shape, Present: roaring.New(), Density: 1}
	for slot := range shape.Size() {
		v.Present.Add(uint32(slot))
		v.Records = append(v.Records, model.Record{Offset: offsetBase + uint64(slot)*10, Length: length})
	}
	v.NRecords = uint32(shape.Size())
	return &ncx.Collection{
		Kind:   ncx.KindBase,
		Name:   name,
		Files:  []string{name + ".grib2"},
		Groups: []ncx.Group{{Description: "lat-lon", Variables: []ncx.Variable{v}}},
	}
}

// PartitionRef returns a partition entry whose index file name is derived
// from its name.
func PartitionRef(name, dir string) ncx.Partition {
	return ncx.Partition{
		Name:         name,
		Directory:    dir,
		LastModified: uint64(Recorded.UnixMilli()),
	}
}

// Contribution returns a partition contribution with full density.
func Contribution(partno, nrecords uint32) ncx.PartitionVariable {
	return ncx.PartitionVariable{Partno: partno, NRecords: nrecords, Density: 1}
}

// Partitioned returns a partition collection with one variable fed by the
// given contributions.
func Partitioned(name string, param model.Param, parts []ncx.Partition, run2part []uint32, contribs ...ncx.PartitionVariable) *ncx.Collection {
	var n uint32
	for _, c := range contribs {
		n += c.NRecords
	}
	return &ncx.Collection{
		Kind:       ncx.KindPartition,
		Name:       name,
		Partitions: parts,
		Run2Part:   run2part,
		Groups: []ncx.Group{{
			Description: "lat-lon",
			Variables:   []ncx.Variable{{Param: param, NRecords: n, Density: 1, Partitions: contribs}},
		}},
	}
}

// Entry is a collection and the store directory it belongs in.
type Entry struct {
	Dir        string
	Collection *ncx.Collection
}

// GFS returns the gfs_0.5deg fixture: three base partitions under gfs/pN
// holding 2, 2 and 1 runs, and the partition collection over them with
// run2part [0,0,1,1,2]. Partition i stores its records from offset i*1000.
// The partition collection is the last entry.
func GFS(param model.Param, length uint32) []Entry {
	var (
		entries  []Entry
		parts    []ncx.Partition
		contribs []ncx.PartitionVariable
	)
	for i, runs := range []int{2, 2, 1} {
		name := "gfs_0.5deg-p" + strconv.Itoa(i)
		dir := "gfs/p" + strconv.Itoa(i)
		entries = append(entries, Entry{Dir: dir, Collection: Base(name, param, runs, uint64(i)*1000, length)})
		parts = append(parts, PartitionRef(name, dir))
		contribs = append(contribs, Contribution(uint32(i), uint32(runs*2)))
	}
	top := Partitioned("gfs_0.5deg", param, parts, []uint32{0, 0, 1, 1, 2}, contribs...)
	return append(entries, Entry{Dir: "gfs", Collection: top})
}
