// Package model defines the core value types shared by the codec and the
// collection index.
//
// # Identity Types
//
//   - Param: identity of a gridded parameter (discipline, category, number, level type)
//   - Record: physical address of one record inside one archive file
//   - Location: a Record resolved against its collection's file list
//
// # Coordinates
//
//   - Coord: logical position (run, time, level, ensemble) of one record
//   - Shape: extent of each coordinate axis of a variable
//
// All types are plain values and safe to copy.
package model
