//go:build !linux

package dns

func defaultInterfaceLister() InterfaceLister {
	return NetInterfaces{}
}
