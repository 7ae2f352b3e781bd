package main

import (
	"bufio"
	"os"
	"strings"
)

// pseudoFilesystems are mount types scan-all-local skips: virtual/
// synthetic filesystems that never hold real user data and would churn
// through scan time for nothing.
var pseudoFilesystems = map[string]bool{
	"proc": true, "sysfs": true, "devtmpfs": true, "devpts": true,
	"tmpfs": true, "cgroup": true, "cgroup2": true, "overlay": true,
	"squashfs": true, "debugfs": true, "tracefs": true, "mqueue": true,
	"securityfs": true, "pstore": true, "bpf": true, "autofs": true,
	"binfmt_misc": true, "configfs": true, "fusectl": true, "hugetlbfs": true,
}

// localRoots discovers the mount points worth scanning for a
// scan-all-local run by reading /proc/mounts (Linux) and filtering out
// pseudo-filesystems; on a platform without /proc/mounts, or if it
// can't be read, it falls back to the single OS root.
func localRoots() []string {
	roots := readProcMounts("/proc/mounts")
	if len(roots) > 0 {
		return roots
	}
	return []string{string(os.PathSeparator)}
}

func readProcMounts(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var roots []string
	seen := map[string]bool{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		mountPoint, fsType := fields[1], fields[2]
		if pseudoFilesystems[fsType] {
			continue
		}
		if seen[mountPoint] {
			continue
		}
		seen[mountPoint] = true
		roots = append(roots, mountPoint)
	}
	return roots
}
