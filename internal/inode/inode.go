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

// Package inode packs and unpacks the (kind, row id) pairs that the catalog
// filesystem uses as fuseops.InodeID values. No table is maintained anywhere;
// every inode is a pure function of a catalog row, so it survives a daemon
// restart without a generation counter.
package inode

import (
	"fmt"

	"github.com/jacobsa/fuse/fuseops"
)

// Kind identifies which catalog table (if any) an inode's row id refers to.
type Kind int

const (
	// Special inodes are not backed by a catalog row; their id is one of the
	// well-known constants below.
	Special Kind = iota
	Comic
	Episode
	File
	Tag
	// Tagged is a virtual symlink inode addressed by a Taggable row id.
	Tagged
)

func (k Kind) String() string {
	switch k {
	case Special:
		return "special"
	case Comic:
		return "comic"
	case Episode:
		return "episode"
	case File:
		return "file"
	case Tag:
		return "tag"
	case Tagged:
		return "tagged"
	default:
		return fmt.Sprintf("unknown-kind(%d)", int(k))
	}
}

// Marker bits, high to low. Exactly one is set for a non-special inode; none
// is set for a special inode, whose low bits carry one of the Root/Comics/Tags
// constants instead.
const (
	bitFile    = uint64(1) << 63
	bitEpisode = uint64(1) << 62
	bitComic   = uint64(1) << 61
	bitTag     = uint64(1) << 60
	bitTagged  = uint64(1) << 59

	idMask = bitTagged - 1
)

// Well-known special inodes. These are reserved and are never aliased by a
// catalog row (invariant 1 in the data model).
const (
	Root   = fuseops.InodeID(1)
	Comics = fuseops.InodeID(2)
	Tags   = fuseops.InodeID(3)
)

// Encode packs a kind and a catalog row id into an inode number. It is a
// total function over positive ids that fit in 59 bits; callers must not
// pass a row id that doesn't, since that is a programmer error (row ids come
// from an autoincrementing integer primary key and will not realistically
// approach 2^59).
func Encode(kind Kind, id uint64) fuseops.InodeID {
	if id&^idMask != 0 {
		panic(fmt.Sprintf("inode: row id %d does not fit in 59 bits", id))
	}

	switch kind {
	case Comic:
		return fuseops.InodeID(bitComic | id)
	case Episode:
		return fuseops.InodeID(bitEpisode | id)
	case File:
		return fuseops.InodeID(bitFile | id)
	case Tag:
		return fuseops.InodeID(bitTag | id)
	case Tagged:
		return fuseops.InodeID(bitTagged | id)
	default:
		panic(fmt.Sprintf("inode: Encode called with non-row kind %v", kind))
	}
}

// KindOf classifies an inode by inspecting its marker bits.
func KindOf(ino fuseops.InodeID) Kind {
	v := uint64(ino)
	switch {
	case v&bitFile != 0:
		return File
	case v&bitEpisode != 0:
		return Episode
	case v&bitComic != 0:
		return Comic
	case v&bitTag != 0:
		return Tag
	case v&bitTagged != 0:
		return Tagged
	default:
		return Special
	}
}

// IDOf masks off the marker bits, returning the catalog row id the inode
// refers to. Calling it on a Special inode returns the special constant
// itself (1, 2, or 3), which is not a catalog row id.
func IDOf(ino fuseops.InodeID) uint64 {
	return uint64(ino) & idMask
}
