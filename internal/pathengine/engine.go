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

// Package pathengine implements forward and reverse navigation across the
// virtual hierarchy root -> {comics, tags} -> comic -> episode -> file, and
// root -> tags -> tag -> tagged. It owns no state of its own; every call
// consults the catalog gateway for the step it's on.
package pathengine

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/jacobsa/fuse/fuseops"

	"github.com/comicfs/comicfs/internal/catalog"
	"github.com/comicfs/comicfs/internal/inode"
)

// ErrNotFound is returned when a path component has no corresponding catalog
// row, or when an inode kind has no defined place in one of the two
// directions of resolution.
var ErrNotFound = errors.New("pathengine: not found")

// Engine resolves paths against a catalog gateway.
type Engine struct {
	Catalog *catalog.Gateway
}

// New returns an Engine backed by cat.
func New(cat *catalog.Gateway) *Engine {
	return &Engine{Catalog: cat}
}

// Resolve walks path components starting at the root inode, consulting the
// catalog at each step. p must not have a leading slash; it is a sequence of
// components such as "comics/Naruto/Ep01". An empty p resolves to the root.
func (e *Engine) Resolve(ctx context.Context, p string) (fuseops.InodeID, error) {
	p = strings.Trim(p, "/")
	ino := inode.Root
	if p == "" {
		return ino, nil
	}

	for _, comp := range strings.Split(p, "/") {
		next, err := e.step(ctx, ino, comp)
		if err != nil {
			return 0, err
		}
		ino = next
	}
	return ino, nil
}

// step performs one lookup-equivalent hop from ino via the child named comp,
// per the dispatch table in the resolution spec.
func (e *Engine) step(ctx context.Context, ino fuseops.InodeID, comp string) (fuseops.InodeID, error) {
	switch inode.KindOf(ino) {
	case inode.Special:
		switch ino {
		case inode.Root:
			switch comp {
			case "comics":
				return inode.Comics, nil
			case "tags":
				return inode.Tags, nil
			default:
				return 0, ErrNotFound
			}
		case inode.Comics:
			c, err := e.Catalog.FindComicByName(ctx, comp)
			if err != nil {
				return 0, translate(err)
			}
			return inode.Encode(inode.Comic, uint64(c.ID)), nil
		case inode.Tags:
			t, err := e.Catalog.FindTagByName(ctx, comp)
			if err != nil {
				return 0, translate(err)
			}
			return inode.Encode(inode.Tag, uint64(t.ID)), nil
		}
	case inode.Comic:
		ep, err := e.Catalog.FindEpisodeByComicAndName(ctx, int64(inode.IDOf(ino)), comp)
		if err != nil {
			return 0, translate(err)
		}
		return inode.Encode(inode.Episode, uint64(ep.ID)), nil
	case inode.Episode:
		f, err := e.Catalog.FindFileByEpisodeAndName(ctx, int64(inode.IDOf(ino)), comp)
		if err != nil {
			return 0, translate(err)
		}
		return inode.Encode(inode.File, uint64(f.ID)), nil
	}
	// File and Tagged have no children, and a tag's synthetic symlink names
	// are not resolved here; walking a path through any of them is a caller
	// error.
	return 0, ErrNotFound
}

func translate(err error) error {
	if errors.Is(err, catalog.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// ReverseResolve walks parent links from ino back to the root, pushing name
// components, then reverses them and joins them onto base (the blob pool /
// mount root), returning "<base>/comics/...". Tagged inodes are not resolvable directly;
// callers must first load the underlying Taggable target and reverse-resolve
// that (see internal/fs's readlink handler).
func (e *Engine) ReverseResolve(ctx context.Context, base string, ino fuseops.InodeID) (string, error) {
	var comps []string

	for {
		switch inode.KindOf(ino) {
		case inode.File:
			f, err := e.Catalog.FindFile(ctx, int64(inode.IDOf(ino)))
			if err != nil {
				return "", translate(err)
			}
			comps = append(comps, f.Name)
			ino = inode.Encode(inode.Episode, uint64(f.EpisodeID))

		case inode.Episode:
			ep, err := e.Catalog.FindEpisode(ctx, int64(inode.IDOf(ino)))
			if err != nil {
				return "", translate(err)
			}
			comps = append(comps, ep.Name)
			ino = inode.Encode(inode.Comic, uint64(ep.ComicID))

		case inode.Comic:
			c, err := e.Catalog.FindComic(ctx, int64(inode.IDOf(ino)))
			if err != nil {
				return "", translate(err)
			}
			comps = append(comps, c.Name)
			ino = inode.Comics

		case inode.Tag:
			t, err := e.Catalog.FindTag(ctx, int64(inode.IDOf(ino)))
			if err != nil {
				return "", translate(err)
			}
			comps = append(comps, t.Name)
			ino = inode.Tags

		case inode.Special:
			switch ino {
			case inode.Comics:
				comps = append(comps, "comics")
				ino = inode.Root
				continue
			case inode.Tags:
				comps = append(comps, "tags")
				ino = inode.Root
				continue
			case inode.Root:
				return joinReversed(base, comps), nil
			}
			return "", ErrNotFound

		default:
			return "", fmt.Errorf("pathengine: %v has no reverse resolution: %w", inode.KindOf(ino), ErrNotFound)
		}
	}
}

func joinReversed(base string, comps []string) string {
	rev := make([]string, len(comps))
	for i, c := range comps {
		rev[len(comps)-1-i] = c
	}
	return path.Join(append([]string{base}, rev...)...)
}

// ResolveTarget interprets a symlink target string the way symlink(2)
// expects: an absolute target is used verbatim (after stripping base and
// normalizing); a relative target whose first component is itself a
// hierarchy root ("comics" or "tags") is rooted at base directly, since that
// is the bare form callers write (e.g. "comics/C") and the one the
// end-to-end round trip in the resolution spec requires; any other relative
// target is resolved against the reverse-resolved path of parent before
// normalizing. The returned string is a hierarchy path ("comics/C/E/f")
// suitable for Resolve, with no leading slash and no base prefix. ok is
// false when the normalized target, with base stripped, is neither "comics"
// nor a path under "comics/" (for example, a target under tags) — callers
// should reply EPERM in that case.
func (e *Engine) ResolveTarget(ctx context.Context, base string, parent fuseops.InodeID, target string) (hierarchyPath string, ok bool, err error) {
	clean := path.Clean(target)

	var abs string
	switch {
	case path.IsAbs(clean):
		abs = clean
	case isHierarchyRoot(clean):
		abs = path.Join(base, clean)
	default:
		parentPath, rerr := e.ReverseResolve(ctx, base, parent)
		if rerr != nil {
			return "", false, rerr
		}
		abs = path.Clean(path.Join(parentPath, clean))
	}

	rel := strings.TrimPrefix(abs, base)
	rel = strings.TrimPrefix(rel, "/")

	if !strings.HasPrefix(rel, "comics/") && rel != "comics" {
		return "", false, nil
	}
	return rel, true, nil
}

// isHierarchyRoot reports whether p's first path component names one of the
// virtual hierarchy's two top-level directories.
func isHierarchyRoot(p string) bool {
	first, _, _ := strings.Cut(p, "/")
	return first == "comics" || first == "tags"
}
