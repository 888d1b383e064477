package model

import "fmt"

// Record locates one physical record inside one archive file.
// FileNo indexes the file list of the base collection that owns the record.
type Record struct {
	FileNo uint32
	Offset uint64
	Length uint32
}

// String returns a string representation of the Record.
func (r Record) String() string {
	return fmt.Sprintf("Rec(%d:%d+%d)", r.FileNo, r.Offset, r.Length)
}

// Location is a Record resolved to an archive path.
type Location struct {
	// Collection is the name of the base collection holding the record.
	Collection string
	// Path is the archive file path, joined with the collection directory.
	Path   string
	Offset uint64
	Length uint32
}

// String returns a string representation of the Location.
func (l Location) String() string {
	return fmt.Sprintf("%s@%d+%d", l.Path, l.Offset, l.Length)
}

// Param identifies a gridded parameter.
type Param struct {
	Discipline uint32
	Category   uint32
	Number     uint32
	LevelType  uint32
}

// String returns the conventional "d-c-n_L" form.
func (p Param) String() string {
	return fmt.Sprintf("%d-%d-%d_L%d", p.Discipline, p.Category, p.Number, p.LevelType)
}

// Coord addresses one slot of a variable.
// Run is a master runtime index of the collection being queried.
type Coord struct {
	Run   int
	Time  int
	Level int
	Ens   int
}

// String returns a string representation of the Coord.
func (c Coord) String() string {
	return fmt.Sprintf("(run=%d time=%d level=%d ens=%d)", c.Run, c.Time, c.Level, c.Ens)
}

// Shape is the extent of each Coord axis.
// A zero extent on any axis means the variable has no slots.
type Shape struct {
	Runs   int
	Times  int
	Levels int
	Ens    int
}

// Size returns the number of slots (expected records).
func (s Shape) Size() int {
	return s.Runs * s.Times * s.Levels * s.Ens
}

// Contains reports whether c lies inside the shape.
func (s Shape) Contains(c Coord) bool {
	return c.Run >= 0 && c.Run < s.Runs &&
		c.Time >= 0 && c.Time < s.Times &&
		c.Level >= 0 && c.Level < s.Levels &&
		c.Ens >= 0 && c.Ens < s.Ens
}

// Offset returns the row-major slot index of c.
// The caller must check Contains first.
func (s Shape) Offset(c Coord) int {
	return ((c.Run*s.Times+c.Time)*s.Levels+c.Level)*s.Ens + c.Ens
}

// Coord is the inverse of Offset.
func (s Shape) Coord(off int) Coord {
	var c Coord
	c.Ens = off % s.Ens
	off /= s.Ens
	c.Level = off % s.Levels
	off /= s.Levels
	c.Time = off % s.Times
	c.Run = off / s.Times
	return c
}
