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

package fs

import (
	"os"
	"time"

	"github.com/jacobsa/fuse/fuseops"
)

// attrTTL is the cache duration attached to every attribute reply. The
// catalog and blob pool are the only sources of truth, so the kernel only
// needs to avoid hammering them on every single syscall.
const attrTTL = time.Second

// dirAttrs returns attributes for any directory-kind inode (root, the two
// special collections, a comic, an episode, or a tag).
func (fs *FileSystem) dirAttrs() fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Nlink: 1,
		Uid:   fs.uid,
		Gid:   fs.gid,
		Mode:  os.ModeDir | 0755,
	}
}

// emptyFileAttrs returns attributes for a File row whose content_hash is
// still empty: a zero-length regular file with no backing blob yet.
func (fs *FileSystem) emptyFileAttrs() fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Nlink: 1,
		Uid:   fs.uid,
		Gid:   fs.gid,
		Mode:  0644,
		Size:  0,
	}
}

// blobFileAttrs returns attributes for a File row backed by a real blob,
// sourced from the blob's own on-disk metadata.
func (fs *FileSystem) blobFileAttrs(size int64, mtime time.Time) fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Nlink: 1,
		Uid:   fs.uid,
		Gid:   fs.gid,
		Mode:  0644,
		Size:  uint64(size),
		Mtime: mtime,
		Ctime: mtime,
	}
}

// symlinkAttrs returns attributes for a Tagged inode; size must be the byte
// length of the resolved target path, per POSIX's symlink size contract.
func (fs *FileSystem) symlinkAttrs(targetLen int) fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Nlink: 1,
		Uid:   fs.uid,
		Gid:   fs.gid,
		Mode:  os.ModeSymlink | 0777,
		Size:  uint64(targetLen),
	}
}
