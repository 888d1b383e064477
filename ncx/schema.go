package ncx

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/gribidx/model"
)

// Contribution flags.
const (
	// FlagTimeDiffers marks a contribution whose time coordinate differs
	// from the partition collection's.
	FlagTimeDiffers uint32 = 1 << 0
	// FlagNested marks a contribution served by a nested partition collection.
	FlagNested uint32 = 1 << 1
)

// Collection is the decoded body of an index file.
type Collection struct {
	Kind   Kind
	Name   string
	TopDir string
	// Files are archive paths relative to TopDir, addressed by Record.FileNo.
	Files []string
	// Runtimes are the master runtimes in unix milliseconds.
	Runtimes []int64
	Groups   []Group

	// Partition extension. Empty for base indexes.
	Partitions              []Partition
	IsPartitionOfPartitions bool
	Run2Part                []uint32

	// Issues lists contribution entries that failed to decode.
	// They are not part of Groups.
	Issues []Issue
}

// Group is a set of variables sharing one grid definition.
type Group struct {
	GDSHash     uint32
	Description string
	Variables   []Variable
}

// Variable is one parameter's sparse coordinate to record mapping.
type Variable struct {
	Param    model.Param
	Shape    model.Shape
	NDups    uint32
	NRecords uint32
	Missing  uint32
	Density  float32
	// Present has a bit per populated slot, in Shape.Offset order.
	Present *roaring.Bitmap
	// Records holds one entry per set bit of Present, in rank order.
	Records []model.Record

	// Partitions lists the per-partition contributions. Partition indexes only.
	Partitions []PartitionVariable
}

// PartitionVariable is one partition's contribution to a variable.
type PartitionVariable struct {
	Partno   uint32
	Groupno  uint32
	Varno    uint32
	Flags    uint32
	NDups    uint32
	NRecords uint32
	Missing  uint32
	Density  float32
}

// KnownMissing reports whether the partition is recorded as having none of
// the variable's expected records.
func (pv PartitionVariable) KnownMissing() bool {
	return pv.NRecords > 0 && pv.Missing == pv.NRecords
}

// Partition references a child index file.
type Partition struct {
	Name      string
	Filename  string
	Directory string
	// LastModified is the child index modification time in unix milliseconds
	// when the parent was written.
	LastModified uint64
	// Runs optionally lists the master runs the partition covers, ascending.
	// When empty, coverage is derived from Run2Part.
	Runs []uint32
}

// Issue records a contribution entry that could not be decoded.
type Issue struct {
	Group    int
	Variable int
	Entry    int
	// Partno is the partition number read before the failure, or -1.
	Partno int
	Err    error
}

func (i Issue) Error() string {
	return fmt.Sprintf("group %d variable %d contribution %d (partition %d): %v", i.Group, i.Variable, i.Entry, i.Partno, i.Err)
}

func (i Issue) Unwrap() error {
	return i.Err
}
