package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/hupe1980/gribidx/blobstore"
	"github.com/hupe1980/gribidx/codec"
	"github.com/hupe1980/gribidx/collection"
	"github.com/hupe1980/gribidx/model"
	"github.com/hupe1980/gribidx/ncx"
)

type headerReport struct {
	Kind        string `json:"kind"`
	Version     uint32 `json:"version"`
	Compression string `json:"compression"`
	RawBytes    uint32 `json:"raw_bytes"`
	StoredBytes uint32 `json:"stored_bytes"`
}

type variableReport struct {
	Group    int         `json:"group"`
	Variable int         `json:"variable"`
	Param    string      `json:"param"`
	Shape    model.Shape `json:"shape"`
	NRecords uint32      `json:"nrecords"`
	Missing  uint32      `json:"missing"`
	NDups    uint32      `json:"ndups"`
	Density  float32     `json:"density"`
	// Partitions lists the contributing partition numbers, newest first.
	Partitions []int `json:"partitions,omitempty"`
}

type partitionReport struct {
	Number       int       `json:"number"`
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Runs         []int     `json:"runs"`
	LastModified time.Time `json:"last_modified,omitzero"`
}

type infoReport struct {
	Name       string            `json:"name"`
	Path       string            `json:"path"`
	Header     headerReport      `json:"header"`
	Runtimes   []time.Time       `json:"runtimes,omitempty"`
	Files      []string          `json:"files,omitempty"`
	Groups     int               `json:"groups"`
	Variables  []variableReport  `json:"variables,omitempty"`
	Partitions []partitionReport `json:"partitions,omitempty"`
	Run2Part   []int             `json:"run2part,omitempty"`
	Nested     bool              `json:"partition_of_partitions,omitempty"`
}

func readHeader(c *cli.Context, store blobstore.BlobStore, p string) (ncx.Header, error) {
	blob, err := store.Open(c.Context, p)
	if err != nil {
		return ncx.Header{}, err
	}
	defer blob.Close()

	buf := make([]byte, min(blob.Size(), ncx.HeaderSize))
	if err := blobstore.ReadFull(c.Context, blob, buf, 0); err != nil {
		return ncx.Header{}, err
	}
	kind, err := ncx.Sniff(buf)
	if err != nil {
		return ncx.Header{}, err
	}
	return ncx.DecodeHeader(buf, kind.Magic())
}

type listReport struct {
	Path   string        `json:"path"`
	Header *headerReport `json:"header,omitempty"`
	Error  string        `json:"error,omitempty"`
}

func newHeaderReport(h ncx.Header) headerReport {
	return headerReport{
		Kind:        h.Kind.String(),
		Version:     h.Version,
		Compression: h.Compression.String(),
		RawBytes:    h.RawLen,
		StoredBytes: h.PayloadLen,
	}
}

func listAction(c *cli.Context) error {
	if c.NArg() > 1 {
		return fmt.Errorf("%s: want at most one PREFIX", c.Command.Name)
	}
	store, _, err := openStore(c)
	if err != nil {
		return err
	}
	names, err := store.List(c.Context, c.Args().First())
	if err != nil {
		return err
	}

	reports := []listReport{}
	for _, name := range names {
		if !strings.HasSuffix(name, collection.IndexExt) {
			continue
		}
		r := listReport{Path: name}
		if h, err := readHeader(c, store, name); err != nil {
			r.Error = err.Error()
		} else {
			hr := newHeaderReport(h)
			r.Header = &hr
		}
		reports = append(reports, r)
	}

	return render(c, reports, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PATH\tKIND\tCOMPRESSION\tSIZE")
		for _, r := range reports {
			if r.Header == nil {
				fmt.Fprintf(tw, "%s\t-\t-\t%s\n", r.Path, r.Error)
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Path, r.Header.Kind, r.Header.Compression,
				humanize.Bytes(uint64(r.Header.StoredBytes)+ncx.HeaderSize))
		}
		_ = tw.Flush()
	})
}

func infoAction(c *cli.Context) error {
	idx, store, err := openIndex(c)
	if err != nil {
		return err
	}
	defer idx.Close()

	h, err := readHeader(c, store, idx.Path())
	if err != nil {
		return err
	}
	r := infoReport{
		Name:     idx.Name(),
		Path:     idx.Path(),
		Header:   newHeaderReport(h),
		Runtimes: idx.Runtimes(),
		Groups:   idx.NumGroups(),
	}
	if b, ok := idx.Base(); ok {
		r.Files = b.Files()
		for gi := range b.NumGroups() {
			g, _ := b.Group(gi)
			for vi, v := range g.Variables {
				r.Variables = append(r.Variables, variableReport{
					Group: gi, Variable: vi, Param: v.Param.String(), Shape: v.Shape,
					NRecords: v.NRecords, Missing: v.Missing, NDups: v.NDups, Density: v.Density,
				})
			}
		}
	}
	if p, ok := idx.Partitioned(); ok {
		r.Run2Part = p.Run2Part()
		r.Nested = p.IsPartitionOfPartitions()
		for _, part := range p.Partitions() {
			r.Partitions = append(r.Partitions, partitionReport{
				Number: part.Number, Name: part.Name, Path: part.Path(),
				Runs: part.Runs, LastModified: part.LastModified,
			})
		}
		for gi := range p.NumGroups() {
			g, _ := p.Group(gi)
			for vi, v := range g.Variables {
				vr := variableReport{
					Group: gi, Variable: vi, Param: v.Param.String(), Shape: v.Shape,
					NRecords: v.NRecords, Missing: v.Missing, NDups: v.NDups, Density: v.Density,
				}
				for _, ct := range v.Contributions {
					vr.Partitions = append(vr.Partitions, ct.Partno)
				}
				r.Variables = append(r.Variables, vr)
			}
		}
	}
	if !c.Bool("variables") {
		r.Variables = nil
	}

	return render(c, r, func(w io.Writer) {
		fmt.Fprintf(w, "%s (%s)\n", r.Name, r.Path)
		fmt.Fprintf(w, "  kind:        %s v%d\n", r.Header.Kind, r.Header.Version)
		fmt.Fprintf(w, "  payload:     %s stored, %s raw (%s)\n",
			humanize.Bytes(uint64(r.Header.StoredBytes)), humanize.Bytes(uint64(r.Header.RawBytes)), r.Header.Compression)
		fmt.Fprintf(w, "  groups:      %d\n", r.Groups)
		fmt.Fprintf(w, "  runtimes:    %d\n", len(r.Runtimes))
		if len(r.Files) > 0 {
			fmt.Fprintf(w, "  files:       %s\n", humanize.Comma(int64(len(r.Files))))
		}
		if len(r.Partitions) > 0 {
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "  PARTNO\tNAME\tRUNS\tMODIFIED\tPATH")
			for _, p := range r.Partitions {
				modified := "-"
				if !p.LastModified.IsZero() {
					modified = humanize.Time(p.LastModified)
				}
				fmt.Fprintf(tw, "  %d\t%s\t%v\t%s\t%s\n", p.Number, p.Name, p.Runs, modified, p.Path)
			}
			_ = tw.Flush()
		}
		if len(r.Variables) > 0 {
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "  GROUP\tVAR\tPARAM\tRECORDS\tMISSING\tDENSITY\tPARTITIONS")
			for _, v := range r.Variables {
				fmt.Fprintf(tw, "  %d\t%d\t%s\t%s\t%s\t%.2f\t%v\n", v.Group, v.Variable, v.Param,
					humanize.Comma(int64(v.NRecords)), humanize.Comma(int64(v.Missing)), v.Density, v.Partitions)
			}
			_ = tw.Flush()
		}
	})
}

type lookupReport struct {
	Coord    model.Coord     `json:"coord"`
	Location *model.Location `json:"location,omitempty"`
	Status   string          `json:"status"`
	Error    string          `json:"error,omitempty"`
}

func lookupAction(c *cli.Context) error {
	idx, _, err := openIndex(c)
	if err != nil {
		return err
	}
	defer idx.Close()

	coord := model.Coord{Run: c.Int("run"), Time: c.Int("time"), Level: c.Int("level"), Ens: c.Int("ens")}
	loc, err := idx.Lookup(c.Context, c.Int("group"), c.Int("variable"), coord)

	r := lookupReport{Coord: coord, Status: "found"}
	switch {
	case err == nil:
		r.Location = &loc
	case errors.Is(err, collection.ErrMissing):
		r.Status = "missing"
		r.Error = err.Error()
	case errors.Is(err, collection.ErrNotFound) && !errors.Is(err, collection.ErrFormat):
		r.Status = "not_found"
		r.Error = err.Error()
	default:
		return err
	}

	return render(c, r, func(w io.Writer) {
		if r.Location == nil {
			fmt.Fprintf(w, "%s %v: %s\n", r.Status, r.Coord, r.Error)
			return
		}
		fmt.Fprintf(w, "%s %s+%s (%s)\n", r.Location.Path,
			humanize.Comma(int64(r.Location.Offset)), humanize.Bytes(uint64(r.Location.Length)), r.Location.Collection)
	})
}

type verifyReport struct {
	Name     string   `json:"name"`
	OK       bool     `json:"ok"`
	Problems []string `json:"problems,omitempty"`
}

func verifyAction(c *cli.Context) error {
	idx, _, err := openIndex(c)
	if err != nil {
		return err
	}
	defer idx.Close()

	r := verifyReport{Name: idx.Name(), OK: true}
	if p, ok := idx.Partitioned(); ok {
		if err := p.Verify(c.Context); err != nil {
			r.OK = false
			r.Problems = unjoin(err)
		}
	}

	if err := render(c, r, func(w io.Writer) {
		if r.OK {
			fmt.Fprintf(w, "%s: ok\n", r.Name)
			return
		}
		fmt.Fprintf(w, "%s: %d unusable partition(s)\n", r.Name, len(r.Problems))
		for _, p := range r.Problems {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}); err != nil {
		return err
	}
	if !r.OK {
		return fmt.Errorf("%s: verification failed", r.Name)
	}
	return nil
}

func unjoin(err error) []string {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range j.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}

type staleReport struct {
	Partno   int       `json:"partno"`
	Path     string    `json:"path"`
	Recorded time.Time `json:"recorded"`
	Current  time.Time `json:"current,omitzero"`
	Error    string    `json:"error,omitempty"`
}

func staleAction(c *cli.Context) error {
	idx, _, err := openIndex(c)
	if err != nil {
		return err
	}
	defer idx.Close()

	p, ok := idx.Partitioned()
	if !ok {
		return fmt.Errorf("%s is a base index and has no partitions", idx.Name())
	}
	stale, err := p.StalePartitions(c.Context)
	if err != nil {
		return err
	}

	reports := make([]staleReport, 0, len(stale))
	for _, s := range stale {
		r := staleReport{Partno: s.Partno, Path: s.Path, Recorded: s.Recorded, Current: s.Current}
		if s.Err != nil {
			r.Error = s.Err.Error()
		}
		reports = append(reports, r)
	}

	return render(c, reports, func(w io.Writer) {
		if len(reports) == 0 {
			fmt.Fprintf(w, "%s: no stale partitions\n", idx.Name())
			return
		}
		for _, r := range reports {
			if r.Error != "" {
				fmt.Fprintf(w, "%d %s: %s\n", r.Partno, r.Path, r.Error)
				continue
			}
			fmt.Fprintf(w, "%d %s: modified %s the recorded time %s\n", r.Partno, r.Path,
				humanize.RelTime(r.Current, r.Recorded, "before", "after"), r.Recorded.Format(time.RFC3339))
		}
	})
}

// render writes v with the codec named by --format, or calls text.
func render(c *cli.Context, v any, text func(io.Writer)) error {
	format := c.String("format")
	if format == "text" {
		text(c.App.Writer)
		return nil
	}
	cd, ok := codec.ByName(format)
	if !ok {
		return fmt.Errorf("unknown format %q (want text or one of %v)", format, codec.Names())
	}
	b, err := cd.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "%s\n", b)
	return err
}
