package ncx

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/gribidx/internal/conv"
	"github.com/hupe1980/gribidx/internal/hash"
	"github.com/hupe1980/gribidx/model"
	"google.golang.org/protobuf/encoding/protowire"
)

// Collection fields.
const (
	fieldName       protowire.Number = 1
	fieldTopDir     protowire.Number = 2
	fieldFiles      protowire.Number = 3
	fieldRuntimes   protowire.Number = 4
	fieldGroups     protowire.Number = 5
	fieldPartitions protowire.Number = 100
	fieldIsPofP     protowire.Number = 101
	fieldRun2Part   protowire.Number = 102
)

// Group fields.
const (
	fieldGDSHash     protowire.Number = 1
	fieldDescription protowire.Number = 2
	fieldVariables   protowire.Number = 3
)

// Variable fields.
const (
	fieldDiscipline   protowire.Number = 1
	fieldCategory     protowire.Number = 2
	fieldNumber       protowire.Number = 3
	fieldLevelType    protowire.Number = 4
	fieldShape        protowire.Number = 5
	fieldNDups        protowire.Number = 6
	fieldNRecords     protowire.Number = 7
	fieldMissing      protowire.Number = 8
	fieldDensity      protowire.Number = 9
	fieldPresent      protowire.Number = 10
	fieldRecords      protowire.Number = 11
	fieldContribution protowire.Number = 100
)

// PartitionVariable fields.
const (
	fieldPVPartno   protowire.Number = 1
	fieldPVGroupno  protowire.Number = 2
	fieldPVVarno    protowire.Number = 3
	fieldPVFlags    protowire.Number = 4
	fieldPVNDups    protowire.Number = 5
	fieldPVNRecords protowire.Number = 6
	fieldPVMissing  protowire.Number = 7
	fieldPVDensity  protowire.Number = 8
)

// Partition fields.
const (
	fieldPartName         protowire.Number = 1
	fieldPartFilename     protowire.Number = 2
	fieldPartDirectory    protowire.Number = 3
	fieldPartLastModified protowire.Number = 4
	fieldPartRuns         protowire.Number = 5
)

// Decode decodes a complete index file of either kind.
func Decode(b []byte) (*Collection, error) {
	kind, err := Sniff(b)
	if err != nil {
		return nil, err
	}
	h, err := DecodeHeader(b, kind.Magic())
	if err != nil {
		return nil, err
	}
	end := HeaderSize + int64(h.PayloadLen)
	if int64(len(b)) < end {
		return nil, decodeErr(len(b), "payload", fmt.Errorf("%w: have %d bytes, header declares %d", ErrTruncated, len(b)-HeaderSize, h.PayloadLen))
	}
	return DecodeBody(h, b[HeaderSize:end])
}

// DecodeBody verifies, decompresses and decodes the payload described by h.
func DecodeBody(h Header, payload []byte) (*Collection, error) {
	if uint32(len(payload)) != h.PayloadLen {
		return nil, decodeErr(HeaderSize, "payload", fmt.Errorf("%w: have %d bytes, header declares %d", ErrTruncated, len(payload), h.PayloadLen))
	}
	if sum := hash.CRC32C(payload); sum != h.Checksum {
		return nil, decodeErr(HeaderSize, "payload", fmt.Errorf("%w: got %08x, want %08x", ErrChecksum, sum, h.Checksum))
	}
	raw, err := decompress(payload, h.Compression, h.RawLen)
	if err != nil {
		return nil, decodeErr(HeaderSize, "payload", err)
	}
	if uint32(len(raw)) != h.RawLen {
		return nil, decodeErr(HeaderSize, "payload", fmt.Errorf("%w: decompressed %d bytes, header declares %d", ErrCompression, len(raw), h.RawLen))
	}

	d := &decoder{c: &Collection{Kind: h.Kind}}
	if err := d.collection(raw); err != nil {
		return nil, err
	}
	return d.c, nil
}

type decoder struct {
	c *Collection
}

func (d *decoder) partition() bool {
	return d.c.Kind == KindPartition
}

func (d *decoder) collection(b []byte) error {
	c := d.c
	return walk(b, 0, func(f field) error {
		var err error
		switch f.num {
		case fieldName:
			c.Name, err = f.text("name")
		case fieldTopDir:
			c.TopDir, err = f.text("topDir")
		case fieldFiles:
			var s string
			s, err = f.text("files")
			c.Files = append(c.Files, s)
		case fieldRuntimes:
			err = f.varints("runtimes", func(v uint64) error {
				c.Runtimes = append(c.Runtimes, protowire.DecodeZigZag(v))
				return nil
			})
		case fieldGroups:
			err = d.group(f)
		case fieldPartitions:
			if d.partition() {
				err = d.partitionRef(f)
			}
		case fieldIsPofP:
			if d.partition() {
				c.IsPartitionOfPartitions, err = f.boolean("isPartitionOfPartitions")
			}
		case fieldRun2Part:
			if d.partition() {
				c.Run2Part, err = f.uint32s("run2part", c.Run2Part)
			}
		}
		return err
	})
}

func (d *decoder) group(f field) error {
	b, off, err := f.delimited("group")
	if err != nil {
		return err
	}
	gi := len(d.c.Groups)
	var g Group
	err = walk(b, off, func(f field) error {
		var err error
		switch f.num {
		case fieldGDSHash:
			g.GDSHash, err = f.varint32("gdsHash")
		case fieldDescription:
			g.Description, err = f.text("description")
		case fieldVariables:
			var v Variable
			v, err = d.variable(f, gi, len(g.Variables))
			g.Variables = append(g.Variables, v)
		}
		return err
	})
	if err != nil {
		return err
	}
	d.c.Groups = append(d.c.Groups, g)
	return nil
}

func (d *decoder) variable(f field, gi, vi int) (Variable, error) {
	var v Variable
	b, off, err := f.delimited("variable")
	if err != nil {
		return v, err
	}
	var shape []uint32
	var recs []uint64
	presentOff := -1
	err = walk(b, off, func(f field) error {
		var err error
		switch f.num {
		case fieldDiscipline:
			v.Param.Discipline, err = f.varint32("discipline")
		case fieldCategory:
			v.Param.Category, err = f.varint32("category")
		case fieldNumber:
			v.Param.Number, err = f.varint32("number")
		case fieldLevelType:
			v.Param.LevelType, err = f.varint32("levelType")
		case fieldShape:
			shape, err = f.uint32s("shape", shape)
		case fieldNDups:
			v.NDups, err = f.varint32("ndups")
		case fieldNRecords:
			v.NRecords, err = f.varint32("nrecords")
		case fieldMissing:
			v.Missing, err = f.varint32("missing")
		case fieldDensity:
			v.Density, err = f.fixedFloat("density")
		case fieldPresent:
			var p []byte
			p, presentOff, err = f.delimited("present")
			if err == nil {
				v.Present = roaring.New()
				if uerr := v.Present.UnmarshalBinary(p); uerr != nil {
					err = decodeErr(presentOff, "present", fmt.Errorf("%w: %w", ErrMalformed, uerr))
				}
			}
		case fieldRecords:
			err = f.varints("records", func(x uint64) error {
				recs = append(recs, x)
				return nil
			})
		case fieldContribution:
			if d.partition() {
				pv, havePartno, perr := d.partitionVariable(f)
				if perr != nil {
					partno := -1
					if havePartno {
						partno = int(pv.Partno)
					}
					d.c.Issues = append(d.c.Issues, Issue{
						Group:    gi,
						Variable: vi,
						Entry:    len(v.Partitions) + d.issuesFor(gi, vi),
						Partno:   partno,
						Err:      perr,
					})
					return nil
				}
				v.Partitions = append(v.Partitions, pv)
			}
		}
		return err
	})
	if err != nil {
		return v, err
	}

	if len(shape) != 0 {
		if len(shape) != 4 {
			return v, decodeErr(off, "shape", fmt.Errorf("%w: %d dimensions, want 4", ErrMalformed, len(shape)))
		}
		if _, err := conv.MulUint32(shape...); err != nil {
			return v, decodeErr(off, "shape", fmt.Errorf("%w: slot count: %w", ErrMalformed, err))
		}
		v.Shape = model.Shape{Runs: int(shape[0]), Times: int(shape[1]), Levels: int(shape[2]), Ens: int(shape[3])}
	}

	if len(recs)%3 != 0 {
		return v, decodeErr(off, "records", fmt.Errorf("%w: %d values is not a multiple of 3", ErrMalformed, len(recs)))
	}
	if len(recs) > 0 {
		v.Records = make([]model.Record, len(recs)/3)
		for i := range v.Records {
			fileno, ferr := conv.Uint64ToUint32(recs[3*i])
			length, lerr := conv.Uint64ToUint32(recs[3*i+2])
			if err := errors.Join(ferr, lerr); err != nil {
				return v, decodeErr(off, "records", fmt.Errorf("%w: record %d: %w", ErrMalformed, i, err))
			}
			v.Records[i] = model.Record{FileNo: fileno, Offset: recs[3*i+1], Length: length}
		}
	}
	if v.Present == nil {
		v.Present = roaring.New()
	}
	if card := v.Present.GetCardinality(); card != uint64(len(v.Records)) {
		return v, decodeErr(max(presentOff, off), "present", fmt.Errorf("%w: %d present slots but %d records", ErrMalformed, card, len(v.Records)))
	}
	if !v.Present.IsEmpty() && int(v.Present.Maximum()) >= v.Shape.Size() {
		return v, decodeErr(max(presentOff, off), "present", fmt.Errorf("%w: slot %d outside shape of %d slots", ErrMalformed, v.Present.Maximum(), v.Shape.Size()))
	}
	return v, nil
}

// issuesFor counts earlier failed entries of the same variable so Entry
// keeps the position in the encoded list.
func (d *decoder) issuesFor(gi, vi int) int {
	n := 0
	for _, is := range d.c.Issues {
		if is.Group == gi && is.Variable == vi {
			n++
		}
	}
	return n
}

// partitionVariable decodes one contribution. On failure, havePartno
// reports whether pv.Partno was read before the error.
func (d *decoder) partitionVariable(f field) (pv PartitionVariable, havePartno bool, err error) {
	b, off, err := f.delimited("partitionVariable")
	if err != nil {
		return pv, false, err
	}
	err = walk(b, off, func(f field) error {
		var err error
		switch f.num {
		case fieldPVPartno:
			pv.Partno, err = f.varint32("partno")
			havePartno = err == nil
		case fieldPVGroupno:
			pv.Groupno, err = f.varint32("groupno")
		case fieldPVVarno:
			pv.Varno, err = f.varint32("varno")
		case fieldPVFlags:
			pv.Flags, err = f.varint32("flags")
		case fieldPVNDups:
			pv.NDups, err = f.varint32("ndups")
		case fieldPVNRecords:
			pv.NRecords, err = f.varint32("nrecords")
		case fieldPVMissing:
			pv.Missing, err = f.varint32("missing")
		case fieldPVDensity:
			pv.Density, err = f.fixedFloat("density")
		}
		return err
	})
	return pv, havePartno, err
}

func (d *decoder) partitionRef(f field) error {
	b, off, err := f.delimited("partition")
	if err != nil {
		return err
	}
	var p Partition
	err = walk(b, off, func(f field) error {
		var err error
		switch f.num {
		case fieldPartName:
			p.Name, err = f.text("partition.name")
		case fieldPartFilename:
			p.Filename, err = f.text("partition.filename")
		case fieldPartDirectory:
			p.Directory, err = f.text("partition.directory")
		case fieldPartLastModified:
			p.LastModified, err = f.varint("partition.lastModified")
		case fieldPartRuns:
			p.Runs, err = f.uint32s("partition.runs", p.Runs)
		}
		return err
	})
	if err != nil {
		return err
	}
	d.c.Partitions = append(d.c.Partitions, p)
	return nil
}
