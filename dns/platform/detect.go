package dns

import (
	"bufio"
	"os/exec"
	"path"
	"strings"
)

// ManagerType is the program that owns the resolver configuration file.
type ManagerType int

const (
	// UnknownManager indicates the file could not be inspected
	UnknownManager ManagerType = iota
	// SystemdResolvedManager indicates systemd-resolved generates the file
	SystemdResolvedManager
	// NetworkManagerManager indicates NetworkManager generates the file
	NetworkManagerManager
	// ResolvconfManager indicates resolvconf generates the file
	ResolvconfManager
	// FileManager indicates nothing else manages the file
	FileManager
)

// String returns a human-readable name for the manager type
func (m ManagerType) String() string {
	switch m {
	case SystemdResolvedManager:
		return "systemd-resolved"
	case NetworkManagerManager:
		return "NetworkManager"
	case ResolvconfManager:
		return "resolvconf"
	case FileManager:
		return "file"
	default:
		return "unknown"
	}
}

// ManagerBus reports which resolver managers are active on this host.
type ManagerBus interface {
	SystemdResolvedRunning() bool
	NetworkManagerRunning() bool
	ResolvconfInstalled() bool
}

// ResolvconfInstalled reports whether the resolvconf binary is on PATH.
func (SystemManagerBus) ResolvconfInstalled() bool {
	_, err := exec.LookPath("resolvconf")
	return err == nil
}

// linkSignatures are the runtime directories managers generate the resolver
// file in. The distribution file is usually a symlink into one of them.
var linkSignatures = []struct {
	dir     string
	manager ManagerType
}{
	{"/run/systemd/resolve/", SystemdResolvedManager},
	{"/run/NetworkManager/", NetworkManagerManager},
	{"/run/resolvconf/", ResolvconfManager},
}

// headerSignatures are matched against the leading comment block.
var headerSignatures = []struct {
	marker  string
	manager ManagerType
}{
	{"NetworkManager", NetworkManagerManager},
	{"systemd-resolved", SystemdResolvedManager},
	{"resolvconf", ResolvconfManager},
}

// managerHint guesses the owner of the resolver file, first from where it
// links to and then from its comment header.
func managerHint(storage Storage, file string) ManagerType {
	if hint := linkHint(storage, file); hint != UnknownManager {
		return hint
	}
	return headerHint(storage, file)
}

func linkHint(storage Storage, file string) ManagerType {
	links, ok := storage.(LinkReader)
	if !ok {
		return UnknownManager
	}
	target, err := links.Readlink(file)
	if err != nil {
		return UnknownManager
	}
	if !path.IsAbs(target) {
		target = path.Join(path.Dir(file), target)
	}

	for _, sig := range linkSignatures {
		if strings.HasPrefix(target, sig.dir) {
			return sig.manager
		}
	}
	return UnknownManager
}

func headerHint(storage Storage, file string) ManagerType {
	r, err := storage.Open(file)
	if err != nil {
		return UnknownManager
	}
	defer r.Close()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		// resolv.conf accepts both comment characters
		if line[0] != '#' && line[0] != ';' {
			return FileManager
		}
		for _, sig := range headerSignatures {
			if strings.Contains(line, sig.marker) {
				return sig.manager
			}
		}
	}

	if scanner.Err() != nil {
		return UnknownManager
	}
	return FileManager
}

// DetectResolverManager combines the file header with runtime checks. A
// manager named in the header only counts if it is actually running.
func DetectResolverManager(storage Storage, path string, bus ManagerBus) ManagerType {
	switch hint := managerHint(storage, path); hint {
	case SystemdResolvedManager:
		if bus.SystemdResolvedRunning() {
			return SystemdResolvedManager
		}
		return FileManager

	case NetworkManagerManager:
		if bus.NetworkManagerRunning() {
			return NetworkManagerManager
		}
		return FileManager

	case ResolvconfManager:
		if bus.ResolvconfInstalled() {
			return ResolvconfManager
		}
		return FileManager

	default:
		return hint
	}
}
