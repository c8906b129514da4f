// Package station emulates the tag side of the system: it reads the IDm of
// a card presented to a PC/SC reader and produces a fresh tag URL for it,
// taking the next counter on every touch.
package station
