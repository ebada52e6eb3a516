// Package input reads the host list and the optional nameserver list
// that a resolution run operates on. Hosts come from a file or from
// standard input, one per line; nameservers come from a file of IP
// addresses, one per line.
package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/lc/resolvr/internal/filesys"
)

// ErrNoHosts is returned when the host source contains no usable lines.
var ErrNoHosts = errors.New("no hosts to resolve")

// Hosts reads hostnames from path, or from r when path is empty
// (the CLI passes stdin). Blank lines and surrounding whitespace are
// dropped; order is preserved but carries no meaning downstream.
func Hosts(fs filesys.ReadFS, path string, r io.Reader) ([]string, error) {
	if path != "" {
		f, err := fs.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening host list %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	hosts, err := readLines(r)
	if err != nil {
		return nil, fmt.Errorf("reading host list: %w", err)
	}
	if len(hosts) == 0 {
		return nil, ErrNoHosts
	}
	return hosts, nil
}

// Nameservers reads resolver IP addresses from path and returns them in
// host:port form ready for a DNS exchange. Every line must parse as an
// IPv4 or IPv6 address; the well-known DNS port is appended.
func Nameservers(fs filesys.ReadFS, path string) ([]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening nameserver list %s: %w", path, err)
	}
	defer f.Close()

	lines, err := readLines(f)
	if err != nil {
		return nil, fmt.Errorf("reading nameserver list: %w", err)
	}

	servers := make([]string, 0, len(lines))
	for _, line := range lines {
		ip := net.ParseIP(line)
		if ip == nil {
			return nil, fmt.Errorf("invalid nameserver address %q in %s", line, path)
		}
		servers = append(servers, net.JoinHostPort(ip.String(), "53"))
	}
	if len(servers) == 0 {
		return nil, fmt.Errorf("nameserver list %s is empty", path)
	}
	return servers, nil
}

func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
