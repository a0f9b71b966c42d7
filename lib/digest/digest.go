// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest computes BLAKE3 digests of release assets. Digests
// are recorded in the run journal and logged at publication time so
// that consumers polling the "dev" tag can tell whether the attached
// archives actually changed between runs.
package digest

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Digest is a 32-byte BLAKE3 digest.
type Digest [32]byte

// assetDomainKey is the 32-byte key for BLAKE3 keyed hashing. Domain
// separation ensures asset digests can never collide with hashes
// computed over the same bytes in some other context. The byte values
// are the ASCII encoding of the domain name, zero-padded to 32 bytes,
// which keeps the key inspectable in hex dumps without sacrificing any
// cryptographic property.
var assetDomainKey = [32]byte{
	'g', 'e', 'n', '1', '9', '2', '.', 'r', 'e', 'l', 'e', 'a', 's', 'e', '.',
	'a', 's', 's', 'e', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// HashAsset computes the asset-domain BLAKE3 keyed digest of data.
func HashAsset(data []byte) Digest {
	hasher, err := blake3.NewKeyed(assetDomainKey[:])
	if err != nil {
		// NewKeyed fails only for a key that is not 32 bytes.
		panic("digest: keyed hasher initialization failed: " + err.Error())
	}
	hasher.Write(data)

	var digest Digest
	hasher.Sum(digest[:0])
	return digest
}

// HashAssetFile computes the asset-domain digest of the file at path.
// The file is streamed through the hash function (via io.Copy) to keep
// memory usage constant regardless of archive size.
func HashAssetFile(path string) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return Digest{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	hasher, err := blake3.NewKeyed(assetDomainKey[:])
	if err != nil {
		panic("digest: keyed hasher initialization failed: " + err.Error())
	}
	if _, err := io.Copy(hasher, file); err != nil {
		return Digest{}, fmt.Errorf("hashing %s: %w", path, err)
	}

	var digest Digest
	hasher.Sum(digest[:0])
	return digest, nil
}

// String returns the hex encoding of the digest. This is the canonical
// format used in journal records and log output.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Parse parses a hex-encoded digest string into a Digest. Returns an
// error if the string is not a valid 64-character hex encoding of 32
// bytes.
func Parse(hexString string) (Digest, error) {
	var digest Digest
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return digest, fmt.Errorf("parsing digest: %w", err)
	}
	if len(decoded) != 32 {
		return digest, fmt.Errorf("digest is %d bytes, want 32", len(decoded))
	}
	copy(digest[:], decoded)
	return digest, nil
}
