// Package bytecodec provides the small byte helpers shared by the tag URL
// encoder and decoder.
//
// Integers on the wire are little-endian. The record checksum is a SHA-1
// digest truncated to a fixed prefix; it is carried inside the encrypted
// region of the record, so only its preimage resistance matters.
//
// Callers guarantee bounds. None of the helpers return errors.
package bytecodec
