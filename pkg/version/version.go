/*
Copyright 2023 The MLTune Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package version holds the repo version string and the parser that turns
// dotted version strings into comparable tuples.
package version

import (
	"fmt"
	"strconv"
	"strings"

	"k8s.io/klog/v2"
)

// Version is the version of this repo.
const Version = "0.2.0"

// Info is an ordered version tuple; components are either int (numeric
// segments) or string (a release-candidate suffix such as "rc1"). It is
// never mutated after construction and is only used for comparisons.
type Info []interface{}

// VersionInfo is the parsed tuple for Version.
var VersionInfo = ParseVersionInfo(Version)

// ParseVersionInfo parses a dotted version string into an Info tuple.
// Purely numeric segments become ints; a segment containing "rc" is split
// into its numeric prefix followed by the "rcN" suffix, so "1.2.0rc1"
// parses to (1, 2, 0, "rc1"). Any other segment shape is dropped from the
// tuple; the drop is logged because callers comparing truncated tuples
// usually indicate a malformed version string upstream.
func ParseVersionInfo(versionStr string) Info {
	var info Info
	for _, seg := range strings.Split(versionStr, ".") {
		if n, err := strconv.Atoi(seg); err == nil {
			info = append(info, n)
			continue
		}
		if idx := strings.Index(seg, "rc"); idx >= 0 {
			patch, err := strconv.Atoi(seg[:idx])
			if err != nil {
				klog.Warningf("dropping malformed rc segment %q in version %q", seg, versionStr)
				continue
			}
			info = append(info, patch, fmt.Sprintf("rc%s", seg[idx+len("rc"):]))
			continue
		}
		klog.Warningf("dropping unrecognized segment %q in version %q", seg, versionStr)
	}
	return info
}

// Less reports whether a orders before b. Numeric components compare
// numerically; a release tagged "rcN" orders before the untagged release
// with the same numeric prefix, and rc suffixes compare lexically.
func Less(a, b Info) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ai, aNum := a[i].(int)
		bi, bNum := b[i].(int)
		switch {
		case aNum && bNum:
			if ai != bi {
				return ai < bi
			}
		case aNum && !bNum:
			// numeric vs rc suffix at the same position: the rc came from
			// a shorter numeric prefix and orders first
			return false
		case !aNum && bNum:
			return true
		default:
			as, bs := a[i].(string), b[i].(string)
			if as != bs {
				return as < bs
			}
		}
	}
	if len(a) != len(b) {
		// "1.2.0rc1" < "1.2.0": the longer tuple with an rc tail orders first
		if len(a) > len(b) {
			_, tailNum := a[n].(int)
			return !tailNum
		}
		_, tailNum := b[n].(int)
		return tailNum
	}
	return false
}
