//go:build linux

package dns

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
)

// NetlinkInterfaces lists links through rtnetlink.
type NetlinkInterfaces struct{}

func (NetlinkInterfaces) Interfaces() ([]Interface, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	result := make([]Interface, 0, len(links))
	for _, link := range links {
		attrs := link.Attrs()
		if attrs == nil {
			continue
		}
		result = append(result, Interface{
			Index:        attrs.Index,
			Name:         attrs.Name,
			MTU:          attrs.MTU,
			HardwareAddr: attrs.HardwareAddr.String(),
			Up:           attrs.Flags&net.FlagUp != 0,
		})
	}
	return result, nil
}

func defaultInterfaceLister() InterfaceLister {
	return NetlinkInterfaces{}
}
