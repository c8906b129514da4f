// Package codec encodes tag readings into URL-safe tokens and decodes them
// back using a key lookup.
//
// Record layout (L = 29 + n bytes, n = payload length):
//
//	0x00     8  tag id          plaintext
//	0x08     4  counter (LE)    block-encrypted
//	0x0c     8  IDm             stream + block encrypted
//	0x14     n  payload         stream encrypted (first 4 bytes also block)
//	0x14+n   8  checksum        stream encrypted
//	0x1c+n   1  reserved (= 2)  plaintext
//
// Encoding computes the checksum as the first 8 bytes of SHA-1 over
// [0, 0x14+n), CTR-encrypts [0x0c, L-1) with the nonce tag id || counter ||
// 00000000, then AES-encrypts the single block [0x08, 0x18). Decoding undoes
// the block pass first, which reveals the counter needed to rebuild the
// nonce. The order of the two passes is part of the wire format.
//
// The checksum is an unkeyed hash. It authenticates only because it travels
// encrypted under the tag key.
package codec
