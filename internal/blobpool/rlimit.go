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

package blobpool

import "golang.org/x/sys/unix"

// defaultFileLimit is used when RLIMIT_NOFILE cannot be queried.
const defaultFileLimit = 512

// reasonableFileLimit caps the heuristic below from recommending an
// unreasonably large number of concurrently open blobs.
const reasonableFileLimit = 1 << 15

// RecommendedOpenFileLimit reports how many blob file descriptors the pool
// can reasonably hold open at once, derived from the process's current
// RLIMIT_NOFILE. The mount command logs a warning when this comes back
// below a small fixed floor, since every outstanding read/write handler
// holds a blob file open for its duration.
func RecommendedOpenFileLimit() int {
	var rlimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlimit); err != nil {
		return defaultFileLimit
	}

	limit := rlimit.Cur/2 + rlimit.Cur/4
	if limit > reasonableFileLimit {
		limit = reasonableFileLimit
	}
	return int(limit)
}
