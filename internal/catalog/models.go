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

// Package catalog is a thin typed wrapper over the relational store backing
// the comics/episodes/files/tags/taggables tables. It never returns partial
// results and never panics on a missing row; callers get ErrNotFound instead.
package catalog

import (
	"errors"
	"time"
)

// ErrNotFound is returned by every find method when no row matches.
var ErrNotFound = errors.New("catalog: not found")

// ErrAlreadyExists is returned by every insert method when the row would
// violate a uniqueness constraint. See SPEC_FULL.md's discussion of the
// reference implementation's "abort on duplicate insert" behavior; this
// package chooses the documented, non-fatal alternative.
var ErrAlreadyExists = errors.New("catalog: already exists")

// TargetKind identifies which table a Taggable's target_id column refers to.
type TargetKind string

const (
	TargetComic   TargetKind = "comic"
	TargetEpisode TargetKind = "episode"
	TargetFile    TargetKind = "file"
)

// Comic is a top-level catalog entry, unique by Name.
type Comic struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Episode belongs to exactly one Comic and is unique by (ComicID, Name).
type Episode struct {
	ID        int64
	Name      string
	ComicID   int64
	CreatedAt time.Time
}

// File belongs to exactly one Episode and is unique by (EpisodeID, Name).
// ContentHash is the empty string until the first non-empty write.
type File struct {
	ID          int64
	Name        string
	ContentHash string
	EpisodeID   int64
	AccessCount int64
	CreatedAt   time.Time
}

// HasContent reports whether a blob has ever been written for this file.
func (f *File) HasContent() bool {
	return f.ContentHash != ""
}

// Tag is a label, unique by Name.
type Tag struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Taggable binds one Tag to one catalog entity of a declared kind.
type Taggable struct {
	ID         int64
	TagID      int64
	TargetKind TargetKind
	TargetID   int64
	CreatedAt  time.Time
}
