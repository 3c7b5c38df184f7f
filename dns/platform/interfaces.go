package dns

import "net"

// Interface is one entry of the network interface snapshot taken when a
// resolver update session begins.
type Interface struct {
	Index        int    `json:"index"`
	Name         string `json:"name"`
	MTU          int    `json:"mtu"`
	HardwareAddr string `json:"hardwareAddr,omitempty"`
	Up           bool   `json:"up"`
}

// InterfaceLister captures the current interfaces.
type InterfaceLister interface {
	Interfaces() ([]Interface, error)
}

// InterfaceListerFunc adapts a function to InterfaceLister.
type InterfaceListerFunc func() ([]Interface, error)

func (f InterfaceListerFunc) Interfaces() ([]Interface, error) {
	return f()
}

// NetInterfaces lists interfaces through the net package.
type NetInterfaces struct{}

func (NetInterfaces) Interfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	result := make([]Interface, 0, len(ifaces))
	for _, iface := range ifaces {
		result = append(result, Interface{
			Index:        iface.Index,
			Name:         iface.Name,
			MTU:          iface.MTU,
			HardwareAddr: iface.HardwareAddr.String(),
			Up:           iface.Flags&net.FlagUp != 0,
		})
	}
	return result, nil
}
