// Copyright 2024 Google Inc. All Rights Reserved.
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

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/comicfs/comicfs/internal/blobpool"
	"github.com/comicfs/comicfs/internal/catalog"
	"github.com/comicfs/comicfs/internal/config"
	comicfs "github.com/comicfs/comicfs/internal/fs"
	"github.com/comicfs/comicfs/internal/logger"
	"github.com/comicfs/comicfs/internal/pathengine"
)

// runMount opens the catalog and blob pool, mounts the file system, and
// blocks until the mount is unmounted (by the kernel, by SIGINT, or by the
// external unmount CLI).
func runMount(ctx context.Context, cfg *config.Config) error {
	log := logger.New(string(cfg.LogFilter))

	cat, err := catalog.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("comicfs: opening catalog: %w", err)
	}
	defer cat.Close()

	if err := os.MkdirAll(cfg.FilesPath, 0755); err != nil {
		return fmt.Errorf("comicfs: preparing blob pool: %w", err)
	}
	pool := blobpool.New(cfg.FilesPath)
	if limit := blobpool.RecommendedOpenFileLimit(); limit < 256 {
		log.Warn("low open file limit may throttle concurrent blob I/O", "recommended_max", limit)
	}
	paths := pathengine.New(cat)

	fsys := comicfs.New(cat, pool, paths, cfg.FilesPath, cfg.Uid, cfg.Gid, log)
	server := fuseutil.NewFileSystemServer(fsys)

	mountCfg := &fuse.MountConfig{
		FSName:  "comic",
		Subtype: "comicfs",
		Options: map[string]string{
			"rw": "",
		},
	}

	log.Info("mounting", "mount_point", cfg.MountPoint)
	mfs, err := fuse.Mount(cfg.MountPoint, server, mountCfg)
	if err != nil {
		return fmt.Errorf("comicfs: mount: %w", err)
	}

	registerSIGINTHandler(cfg.MountPoint, log)

	if err := mfs.Join(ctx); err != nil {
		return fmt.Errorf("comicfs: serving: %w", err)
	}

	log.Info("unmounted cleanly")
	return nil
}

// registerSIGINTHandler starts a goroutine that unmounts mountPoint in
// response to SIGINT, letting the blocked mfs.Join call in runMount return.
func registerSIGINTHandler(mountPoint string, log *slog.Logger) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)

	go func() {
		for range signalChan {
			log.Info("received SIGINT, attempting to unmount")
			if err := fuse.Unmount(mountPoint); err != nil {
				log.Error("unmount failed", "error", err)
				continue
			}
			log.Info("unmounted in response to SIGINT")
			return
		}
	}()
}
