package snowflake

import (
	"crypto/rand"
	"encoding/binary"
	"net"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// NodeIDSource supplies a node id for a generator that was not given one.
//
// The generator validates whatever the source returns, so a source must
// produce values in [0, MaxNodeID]. The built-in sources mask their output to
// NodeIDBits and always comply.
type NodeIDSource func() int64

// interfaceAddrs is replaced in tests.
var interfaceAddrs = func() ([]net.HardwareAddr, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	addrs := make([]net.HardwareAddr, 0, len(ifaces))
	for _, iface := range ifaces {
		if len(iface.HardwareAddr) > 0 {
			addrs = append(addrs, iface.HardwareAddr)
		}
	}
	return addrs, nil
}

// HardwareNodeID derives a node id from the hardware addresses of all network
// interfaces on the host, hashed with xxhash and masked to NodeIDBits.
//
// Hosts with identical interface sets map to the same id, and distinct hosts
// may collide (1024 buckets); deployments that need a guarantee should assign
// ids explicitly or lease them (see package redislease). If the interfaces
// cannot be listed or none has a hardware address, a random id is returned.
func HardwareNodeID() int64 {
	addrs, err := interfaceAddrs()
	if err != nil || len(addrs) == 0 {
		return RandomNodeID()
	}
	d := xxhash.New()
	for _, addr := range addrs {
		_, _ = d.Write(addr)
	}
	return int64(d.Sum64() & uint64(MaxNodeID))
}

// RandomNodeID returns a node id from crypto/rand. If the random source fails
// the result is 0.
func RandomNodeID() int64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b[:]) & uint64(MaxNodeID))
}

// StaticNodeID returns a source that always yields id. The generator still
// validates it.
func StaticNodeID(id int64) NodeIDSource {
	return func() int64 { return id }
}

// NodeIDFromName maps a node name to a node id.
//
// Names ending in a decimal number ("n3", "worker-17", "42") use that number
// masked to NodeIDBits, so small clusters named in sequence get distinct ids.
// Any other name is hashed with xxhash.
func NodeIDFromName(name string) int64 {
	digits := name[strings.LastIndexFunc(name, notDigit)+1:]
	if digits != "" {
		if n, err := strconv.ParseUint(digits, 10, 63); err == nil {
			return int64(n) & MaxNodeID
		}
	}
	return int64(xxhash.Sum64String(name) & uint64(MaxNodeID))
}

func notDigit(r rune) bool { return r < '0' || r > '9' }
