package ncx

import (
	"fmt"

	"github.com/hupe1980/gribidx/internal/conv"
	"github.com/hupe1980/gribidx/internal/hash"
	"github.com/hupe1980/gribidx/model"
	"google.golang.org/protobuf/encoding/protowire"
)

// Encode encodes c as a complete index file. The magic is taken from c.Kind;
// the partition extension is written only for KindPartition.
func Encode(c *Collection, compression Compression) ([]byte, error) {
	if c.Kind != KindBase && c.Kind != KindPartition {
		return nil, fmt.Errorf("ncx: encode: invalid kind %v", c.Kind)
	}
	raw, err := appendCollection(nil, c)
	if err != nil {
		return nil, err
	}
	payload, used, err := compress(raw, compression)
	if err != nil {
		return nil, err
	}
	rawLen, err := conv.IntToUint32(len(raw))
	if err != nil {
		return nil, fmt.Errorf("ncx: encode: payload: %w", err)
	}
	h := Header{
		Kind:        c.Kind,
		Version:     Version,
		Compression: used,
		RawLen:      rawLen,
		// The stored payload is never larger than the raw one.
		PayloadLen: uint32(len(payload)),
		Checksum:   hash.CRC32C(payload),
	}
	out := h.AppendTo(make([]byte, 0, HeaderSize+len(payload)))
	return append(out, payload...), nil
}

func appendCollection(b []byte, c *Collection) ([]byte, error) {
	part := c.Kind == KindPartition

	b = appendString(b, fieldName, c.Name)
	b = appendString(b, fieldTopDir, c.TopDir)
	for _, f := range c.Files {
		b = protowire.AppendTag(b, fieldFiles, protowire.BytesType)
		b = protowire.AppendString(b, f)
	}
	if len(c.Runtimes) > 0 {
		zz := make([]uint64, len(c.Runtimes))
		for i, t := range c.Runtimes {
			zz[i] = protowire.EncodeZigZag(t)
		}
		b = appendPacked(b, fieldRuntimes, zz)
	}
	for gi := range c.Groups {
		g, err := appendGroup(nil, &c.Groups[gi], part)
		if err != nil {
			return nil, fmt.Errorf("ncx: encode group %d: %w", gi, err)
		}
		b = appendMessage(b, fieldGroups, g)
	}
	if !part {
		return b, nil
	}
	for i := range c.Partitions {
		b = appendMessage(b, fieldPartitions, appendPartition(nil, &c.Partitions[i]))
	}
	b = appendBool(b, fieldIsPofP, c.IsPartitionOfPartitions)
	b = appendPacked32(b, fieldRun2Part, c.Run2Part)
	return b, nil
}

func appendGroup(b []byte, g *Group, part bool) ([]byte, error) {
	b = appendUint(b, fieldGDSHash, uint64(g.GDSHash))
	b = appendString(b, fieldDescription, g.Description)
	for vi := range g.Variables {
		v, err := appendVariable(nil, &g.Variables[vi], part)
		if err != nil {
			return nil, fmt.Errorf("variable %d: %w", vi, err)
		}
		b = appendMessage(b, fieldVariables, v)
	}
	return b, nil
}

// shapeDims checks that every extent and the slot count fit in uint32.
func shapeDims(s model.Shape) ([4]uint32, error) {
	var dims [4]uint32
	for i, n := range []int{s.Runs, s.Times, s.Levels, s.Ens} {
		d, err := conv.IntToUint32(n)
		if err != nil {
			return dims, fmt.Errorf("shape %+v: %w", s, err)
		}
		dims[i] = d
	}
	if _, err := conv.MulUint32(dims[:]...); err != nil {
		return dims, fmt.Errorf("shape %+v: slot count: %w", s, err)
	}
	return dims, nil
}

func appendVariable(b []byte, v *Variable, part bool) ([]byte, error) {
	b = appendUint(b, fieldDiscipline, uint64(v.Param.Discipline))
	b = appendUint(b, fieldCategory, uint64(v.Param.Category))
	b = appendUint(b, fieldNumber, uint64(v.Param.Number))
	b = appendUint(b, fieldLevelType, uint64(v.Param.LevelType))
	if s := v.Shape; s != (model.Shape{}) {
		dims, err := shapeDims(s)
		if err != nil {
			return nil, err
		}
		b = appendPacked(b, fieldShape, []uint64{uint64(dims[0]), uint64(dims[1]), uint64(dims[2]), uint64(dims[3])})
	}
	b = appendUint(b, fieldNDups, uint64(v.NDups))
	b = appendUint(b, fieldNRecords, uint64(v.NRecords))
	b = appendUint(b, fieldMissing, uint64(v.Missing))
	b = appendFloat32(b, fieldDensity, v.Density)

	var card uint64
	if v.Present != nil {
		card = v.Present.GetCardinality()
	}
	if card != uint64(len(v.Records)) {
		return nil, fmt.Errorf("%d present slots but %d records", card, len(v.Records))
	}
	if card > 0 {
		p, err := v.Present.ToBytes()
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, fieldPresent, protowire.BytesType)
		b = protowire.AppendBytes(b, p)

		recs := make([]uint64, 0, 3*len(v.Records))
		for _, r := range v.Records {
			recs = append(recs, uint64(r.FileNo), r.Offset, uint64(r.Length))
		}
		b = appendPacked(b, fieldRecords, recs)
	}

	if part {
		for i := range v.Partitions {
			b = appendMessage(b, fieldContribution, appendPartitionVariable(nil, &v.Partitions[i]))
		}
	}
	return b, nil
}

func appendPartitionVariable(b []byte, pv *PartitionVariable) []byte {
	b = appendUint(b, fieldPVPartno, uint64(pv.Partno))
	b = appendUint(b, fieldPVGroupno, uint64(pv.Groupno))
	b = appendUint(b, fieldPVVarno, uint64(pv.Varno))
	b = appendUint(b, fieldPVFlags, uint64(pv.Flags))
	b = appendUint(b, fieldPVNDups, uint64(pv.NDups))
	b = appendUint(b, fieldPVNRecords, uint64(pv.NRecords))
	b = appendUint(b, fieldPVMissing, uint64(pv.Missing))
	b = appendFloat32(b, fieldPVDensity, pv.Density)
	return b
}

func appendPartition(b []byte, p *Partition) []byte {
	b = appendString(b, fieldPartName, p.Name)
	b = appendString(b, fieldPartFilename, p.Filename)
	b = appendString(b, fieldPartDirectory, p.Directory)
	b = appendUint(b, fieldPartLastModified, p.LastModified)
	b = appendPacked32(b, fieldPartRuns, p.Runs)
	return b
}
