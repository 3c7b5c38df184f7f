package dns

import (
	"errors"
	"fmt"
	"io"
	"net/netip"
	"strings"

	"github.com/hashicorp/go-multierror"
	mdns "github.com/miekg/dns"
)

// NoResolverListMessage is returned by ReadAll when the file cannot be read.
const NoResolverListMessage = "Could not obtain system resolver list."

var (
	// ErrInvalidIndex is returned for resolver indexes below 1.
	ErrInvalidIndex = errors.New("resolver index must be 1 or greater")
	// ErrInvalidAddress is returned for anything that is not a single IP address.
	ErrInvalidAddress = errors.New("invalid resolver address")
)

// ParseAddress accepts one IPv4 or IPv6 address, optionally with a zone.
func ParseAddress(address string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(address)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w %q", ErrInvalidAddress, address)
	}
	// netip does not restrict zone characters
	if strings.ContainsAny(addr.Zone(), " \t\r\n#;") {
		return netip.Addr{}, fmt.Errorf("%w %q: bad zone", ErrInvalidAddress, address)
	}
	return addr, nil
}

// ValidateAddresses reports every entry of servers that ParseAddress rejects.
func ValidateAddresses(servers []string) error {
	var result *multierror.Error
	for i, server := range servers {
		if _, err := ParseAddress(server); err != nil {
			result = multierror.Append(result, fmt.Errorf("server %d: %w", i+1, err))
		}
	}
	return result.ErrorOrNil()
}

// ResolverFileStore reads and writes the resolver configuration file.
type ResolverFileStore struct {
	storage Storage
	path    string
}

// NewResolverFileStore creates a store for the file at path.
func NewResolverFileStore(storage Storage, path string) *ResolverFileStore {
	return &ResolverFileStore{
		storage: storage,
		path:    path,
	}
}

// Path returns the managed file.
func (f *ResolverFileStore) Path() string {
	return f.path
}

// Write emits one nameserver line. Index 1 replaces the file content, every
// other index appends. Addresses that are not a single IP are refused before
// the file is opened. The address is returned once the line is on disk.
func (f *ResolverFileStore) Write(index int, address string) (string, error) {
	if index < 1 {
		return "", fmt.Errorf("%w: got %d", ErrInvalidIndex, index)
	}
	if _, err := ParseAddress(address); err != nil {
		return "", err
	}

	var (
		w   io.WriteCloser
		err error
	)
	if index == 1 {
		w, err = f.storage.Create(f.path)
	} else {
		w, err = f.storage.Append(f.path)
	}
	if err != nil {
		return "", fmt.Errorf("open resolver file: %w", err)
	}

	if _, err := io.WriteString(w, "nameserver "+address+"\n"); err != nil {
		w.Close()
		return "", fmt.Errorf("write resolver file: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close resolver file: %w", err)
	}

	return address, nil
}

// ReadAll returns the file content, or NoResolverListMessage if it cannot be read.
func (f *ResolverFileStore) ReadAll() string {
	r, err := f.storage.Open(f.path)
	if err != nil {
		return NoResolverListMessage
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return NoResolverListMessage
	}
	return string(data)
}

// Servers returns the nameservers listed in the file.
func (f *ResolverFileStore) Servers() ([]string, error) {
	r, err := f.storage.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open resolver file: %w", err)
	}
	defer r.Close()

	conf, err := mdns.ClientConfigFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse resolver file: %w", err)
	}
	return conf.Servers, nil
}
