package discovery

import (
	"fmt"
	"net"
)

// InterfaceAddr 是某个网卡上的一个 IPv4 地址。
type InterfaceAddr struct {
	IP    string
	Index int
}

// AddrSource 枚举本机可对外公布的地址。
type AddrSource func() ([]InterfaceAddr, error)

// LocalIPv4Addrs 返回所有已启用、非回环网卡上的 IPv4 地址，按枚举顺序排列。
func LocalIPv4Addrs() ([]InterfaceAddr, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}
	var out []InterfaceAddr
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			v4 := ipnet.IP.To4()
			if v4 == nil || v4.IsLoopback() {
				continue
			}
			out = append(out, InterfaceAddr{IP: v4.String(), Index: iface.Index})
		}
	}
	return out, nil
}

// orderFor 把探测到达的网卡地址排到最前，其余保持枚举顺序。
// ifIndex 为 0 表示未知。
func orderFor(addrs []InterfaceAddr, ifIndex int) []string {
	out := make([]string, 0, len(addrs))
	if ifIndex > 0 {
		for _, a := range addrs {
			if a.Index == ifIndex {
				out = append(out, a.IP)
			}
		}
	}
	for _, a := range addrs {
		if ifIndex > 0 && a.Index == ifIndex {
			continue
		}
		out = append(out, a.IP)
	}
	return out
}
