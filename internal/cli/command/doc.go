// Package command defines the tagurl-cli commands.
//
// Offline commands work on a key table file and need no server:
//
//	encode     build a tag URL from a reading and a key
//	decode     verify a tag URL and print the reading
//	keygen     generate a random tag key
//	keys       list, add and remove keys in a key table
//	station    emulate a base station with a PC/SC reader
//
// The remote command group talks to a running tagurl-server through its
// HTTP API.
package command
