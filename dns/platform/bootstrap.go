package dns

import "path/filepath"

const (
	// T1BootstrapVariable names the override for the T1 server seed list.
	T1BootstrapVariable = "OPENNIC_T1_BOOTSTRAP"
	// DomainsBootstrapVariable names the override for the domain seed list.
	DomainsBootstrapVariable = "OPENNIC_DOMAINS_BOOTSTRAP"

	T1BootstrapFile      = "bootstrap.t1"
	DomainsBootstrapFile = "bootstrap.domains"
)

// BootstrapSearchDirs are tried in order when no override applies.
var BootstrapSearchDirs = []string{
	"/usr/local/etc/",
	"/usr/etc/",
	"/etc/",
	"/opt/opennic/",
}

// PathResolver locates bootstrap files. Overrides are captured once at
// construction; every Resolve call checks the filesystem again.
type PathResolver struct {
	storage   Storage
	overrides map[string]string
	dirs      []string
}

// NewPathResolver creates a resolver. overrides maps a variable name such as
// T1BootstrapVariable to the path configured for it.
func NewPathResolver(storage Storage, overrides map[string]string) *PathResolver {
	copied := make(map[string]string, len(overrides))
	for k, v := range overrides {
		copied[k] = v
	}
	return &PathResolver{
		storage:   storage,
		overrides: copied,
		dirs:      BootstrapSearchDirs,
	}
}

// Resolve returns the override for nameOfVariable if it exists, else the first
// existing candidate under BootstrapSearchDirs, else filename unchanged.
func (r *PathResolver) Resolve(nameOfVariable, filename string) string {
	if override := r.overrides[nameOfVariable]; override != "" && r.storage.Exists(override) {
		return override
	}

	for _, dir := range r.dirs {
		candidate := filepath.Join(dir, filename)
		if r.storage.Exists(candidate) {
			return candidate
		}
	}

	return filename
}

// T1Path resolves the T1 bootstrap file.
func (r *PathResolver) T1Path() string {
	return r.Resolve(T1BootstrapVariable, T1BootstrapFile)
}

// DomainsPath resolves the domains bootstrap file.
func (r *PathResolver) DomainsPath() string {
	return r.Resolve(DomainsBootstrapVariable, DomainsBootstrapFile)
}
