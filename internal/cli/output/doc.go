// Package output renders command results for tagurl-cli.
//
// A Formatter writes a value as a table, JSON or YAML. Tables are derived
// from struct fields by reflection; the header of a column is the upper
// case json tag of its field. Fields tagged table:"wide" only appear with
// --wide, fields tagged table:"-" never do.
package output
