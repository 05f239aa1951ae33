// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package blobpool stores file content bytes on the host filesystem, sharded
// by the first two hex characters of a SHA-256 digest. The pool is
// content-addressed only at creation time; see Pool.Store for the accepted
// consequences of in-place overwrites.
package blobpool

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// HashLen is the length in characters of a lowercase hex SHA-256 digest.
const HashLen = 64

// Metadata describes a blob's current on-disk state, used to populate POSIX
// attributes on lookup/getattr replies.
type Metadata struct {
	Size  int64
	Mtime time.Time
	Mode  os.FileMode
}

// Pool is a sharded, content-addressed blob store rooted at Base.
type Pool struct {
	Base string
}

// New returns a Pool rooted at base. It does not create base; the caller
// (typically the mount command, reading FILES_PATH) is responsible for that.
func New(base string) *Pool {
	return &Pool{Base: base}
}

// PathOf returns the on-disk path for a blob given its hash, sharded by the
// hash's first two characters to keep any one directory's fan-out bounded.
func (p *Pool) PathOf(hash string) string {
	return filepath.Join(p.Base, hash[:2], hash)
}

// Store computes the SHA-256 of data, creates the shard directory if
// necessary, writes data to the resulting path at offset 0, and returns the
// hash. This is the only point at which the hash is guaranteed to match the
// blob's contents; subsequent in-place writes at nonzero offsets (see
// OpenForWrite) will desynchronize them, since the hash is never recomputed
// after creation.
func (p *Pool) Store(data []byte) (hash string, err error) {
	sum := sha256.Sum256(data)
	hash = hex.EncodeToString(sum[:])

	path := p.PathOf(hash)
	if err = os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("blobpool: mkdir shard: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return "", fmt.Errorf("blobpool: create blob: %w", err)
	}
	defer f.Close()

	if _, err = f.WriteAt(data, 0); err != nil {
		return "", fmt.Errorf("blobpool: write blob: %w", err)
	}

	return hash, nil
}

// OpenForWrite opens the existing blob for hash for pwrite-style access at
// arbitrary offsets. The blob must already exist (created by Store).
func (p *Pool) OpenForWrite(hash string) (*os.File, error) {
	f, err := os.OpenFile(p.PathOf(hash), os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("blobpool: open for write: %w", err)
	}
	return f, nil
}

// OpenForRead opens the blob for hash for pread-style access. Returns an
// error satisfying os.IsNotExist if the blob is missing, which callers (the
// read handler) are expected to treat as "no content yet" rather than EIO.
func (p *Pool) OpenForRead(hash string) (*os.File, error) {
	f, err := os.Open(p.PathOf(hash))
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Stat returns size/mtime/mode for the blob at hash.
func (p *Pool) Stat(hash string) (Metadata, error) {
	fi, err := os.Stat(p.PathOf(hash))
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{Size: fi.Size(), Mtime: fi.ModTime(), Mode: fi.Mode()}, nil
}

// Truncate adjusts the blob at hash to exactly size bytes.
func (p *Pool) Truncate(hash string, size int64) error {
	if err := os.Truncate(p.PathOf(hash), size); err != nil {
		return fmt.Errorf("blobpool: truncate: %w", err)
	}
	return nil
}

// Exists reports whether a blob file exists for hash without opening it.
func (p *Pool) Exists(hash string) bool {
	_, err := os.Stat(p.PathOf(hash))
	return err == nil
}
