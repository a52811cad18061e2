package supervisor

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// detectListeningPorts finds TCP ports a process is listening on, grounded
// on the teacher's port monitor: /proc/net/tcp plus inode-to-pid resolution
// on Linux, falling back to lsof elsewhere.
func detectListeningPorts(pid int) []int {
	if ports := scanProcNetTCP(pid); len(ports) > 0 {
		return ports
	}
	return scanLsof(pid)
}

// scanProcNetTCP walks /proc/net/tcp for LISTEN sockets, then resolves
// each socket inode back to an owning PID via /proc/<pid>/fd symlinks,
// keeping only those owned by pid.
func scanProcNetTCP(pid int) []int {
	file, err := os.Open("/proc/net/tcp")
	if err != nil {
		return nil
	}
	defer file.Close()

	inodes := make(map[int]int) // inode -> port
	scanner := bufio.NewScanner(file)
	scanner.Scan() // header
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 10 {
			continue
		}
		if fields[3] != "0A" { // TCP_LISTEN
			continue
		}
		addrParts := strings.Split(fields[1], ":")
		if len(addrParts) != 2 {
			continue
		}
		port, err := strconv.ParseInt(addrParts[1], 16, 32)
		if err != nil {
			continue
		}
		inode, err := strconv.Atoi(fields[9])
		if err != nil {
			continue
		}
		inodes[inode] = int(port)
	}

	ownedInodes := inodesOwnedByPID(pid)
	var ports []int
	for inode, port := range inodes {
		if ownedInodes[inode] {
			ports = append(ports, port)
		}
	}
	return ports
}

func inodesOwnedByPID(pid int) map[int]bool {
	fdDir := filepath.Join("/proc", strconv.Itoa(pid), "fd")
	entries, err := os.ReadDir(fdDir)
	if err != nil {
		return nil
	}

	owned := make(map[int]bool)
	for _, entry := range entries {
		target, err := os.Readlink(filepath.Join(fdDir, entry.Name()))
		if err != nil {
			continue
		}
		if !strings.HasPrefix(target, "socket:[") {
			continue
		}
		inodeStr := strings.TrimSuffix(strings.TrimPrefix(target, "socket:["), "]")
		inode, err := strconv.Atoi(inodeStr)
		if err != nil {
			continue
		}
		owned[inode] = true
	}
	return owned
}

// scanLsof falls back to lsof for platforms without /proc, the same
// tool the teacher's port monitor uses to resolve macOS PIDs.
func scanLsof(pid int) []int {
	out, err := exec.Command("lsof", "-a", "-p", fmt.Sprintf("%d", pid), "-i", "-P", "-n").Output()
	if err != nil {
		return nil
	}
	return parseLsofListenPorts(out)
}

// parseLsofListenPorts extracts listening TCP ports from `lsof -i` output
// lines of the form "... TCP *:3000 (LISTEN)" or "... TCP 127.0.0.1:3000 (LISTEN)".
func parseLsofListenPorts(out []byte) []int {
	var ports []int
	seen := make(map[int]bool)
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.Contains(line, "LISTEN") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		addr := fields[len(fields)-2]
		idx := strings.LastIndex(addr, ":")
		if idx < 0 {
			continue
		}
		port, err := strconv.Atoi(addr[idx+1:])
		if err != nil || seen[port] {
			continue
		}
		seen[port] = true
		ports = append(ports, port)
	}
	return ports
}
