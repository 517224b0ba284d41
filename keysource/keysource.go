// Package keysource implements the machine-identity key source (C1).
// spec.md treats this as an external collaborator; a Go service has no
// ambient "process identity" object to lean on the way the original
// desktop app's singleton did, so this package makes it a first-class,
// testable component implementing the documented fallback chain, grounded
// on AuthorKey::getInstance's constructor: try CPU identity, then MAC
// address, then (here) a host fingerprint, then a random fallback.
//
// The global-singleton pattern itself is re-architected per the "no
// singletons" design note: New returns an owned *Source the caller holds,
// rather than a package-level instance reached through a getter.
package keysource

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/klauspost/cpuid/v2"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/sys/unix"
)

// IDKind identifies which fallback strategy produced the seed.
type IDKind int

const (
	IDUnknown IDKind = iota
	IDCPUID
	IDMAC
	IDHostUname
	IDRandom
)

func (k IDKind) String() string {
	switch k {
	case IDCPUID:
		return "cpuid"
	case IDMAC:
		return "mac"
	case IDHostUname:
		return "host_uname"
	case IDRandom:
		return "random"
	default:
		return "unknown"
	}
}

// Source is a lazily, once-initialized 32-byte symmetric key derived from
// a stable machine identifier. After the first call to Key, it is
// read-only: safe for concurrent use by distinct facade calls.
type Source struct {
	once sync.Once
	key  [32]byte
	kind IDKind
	err  error
}

// New returns an uninitialized Source; the fallback chain runs lazily on
// first Key()/Kind() call.
func New() *Source {
	return &Source{}
}

// Key returns the derived 32-byte symmetric key, initializing the source
// on first call.
func (s *Source) Key() ([32]byte, error) {
	s.init()
	return s.key, s.err
}

// Kind reports which fallback strategy produced the seed, initializing the
// source on first call if necessary.
func (s *Source) Kind() IDKind {
	s.init()
	return s.kind
}

func (s *Source) init() {
	s.once.Do(func() {
		seed, kind, err := resolveSeed()
		if err != nil {
			s.err = err
			return
		}
		s.kind = kind
		s.err = deriveKey(seed, &s.key)
	})
}

// resolveSeed runs the fallback chain: CPU identity, then MAC address,
// then host uname fingerprint, then a random value. It always succeeds
// (the random fallback cannot fail) bar allocation failure.
func resolveSeed() (string, IDKind, error) {
	if id := cpuIdentity(); id != "" {
		return id, IDCPUID, nil
	}
	if mac := macAddress(); mac != "" {
		return mac, IDMAC, nil
	}
	if host := hostUname(); host != "" {
		return host, IDHostUname, nil
	}
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", IDUnknown, err
	}
	return fmt.Sprintf("%x", buf), IDRandom, nil
}

// cpuIdentity reports vendor/family/model/stepping via cpuid, mirroring
// the original's inline-asm CPUID-based identifier without cgo.
func cpuIdentity() string {
	if cpuid.CPU.VendorString == "" {
		return ""
	}
	return fmt.Sprintf("%s-f%d-m%d-s%d",
		cpuid.CPU.VendorString,
		cpuid.CPU.Family,
		cpuid.CPU.Model,
		cpuid.CPU.Stepping,
	)
}

// macAddress returns the first non-loopback hardware address found, or ""
// if none exists (e.g. a sandboxed container with no physical NIC).
func macAddress() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if len(iface.HardwareAddr) == 0 {
			continue
		}
		return iface.HardwareAddr.String()
	}
	return ""
}

// hostUname concatenates the kernel name, release, and machine fields,
// slotting in where the original used a second network-layer fallback.
func hostUname() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return ""
	}
	return fmt.Sprintf("%s-%s-%s",
		cstring(uts.Sysname[:]),
		cstring(uts.Release[:]),
		cstring(uts.Machine[:]),
	)
}

func cstring(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// deriveKey runs the seed through HKDF-SHA256 to produce a fixed 32-byte
// key, replacing the original's bare SHA256(seed): HKDF is the idiomatic
// way to turn variable-entropy input into a fixed-length symmetric key.
func deriveKey(seed string, out *[32]byte) error {
	h := hkdf.New(sha256.New, []byte(seed), nil, []byte("photohns-keysource-v1"))
	_, err := io.ReadFull(h, out[:])
	return err
}
