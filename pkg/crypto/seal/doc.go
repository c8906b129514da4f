// Package seal encrypts small secrets at rest.
//
// A Sealer derives a purpose-bound subkey from a master key with HKDF and
// seals values with an AEAD. The AEAD is either AES-GCM (default on amd64
// and arm64) or ChaCha20-Poly1305. Sealed values carry their random nonce
// as a prefix:
//
//	nonce || ciphertext || tag
//
// Master keys come from configuration as raw bytes or from a passphrase
// stretched with Argon2id.
package seal
