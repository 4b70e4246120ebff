// Package discovery 实现局域网内的 UDP 广播发现协议：
// 服务端 Responder 应答探测报文，客户端 Client 广播探测并解析地址列表。
package discovery

import (
	"net"
	"strings"
	"time"
)

const (
	DefaultPort    = 41234
	DefaultTimeout = 2000 * time.Millisecond

	RequestMarker  = "DISCOVER_LOCALBROWSER_SERVER"
	ResponseMarker = "LOCALBROWSER_SERVER_HERE"

	BroadcastAddr = "255.255.255.255"

	maxDatagram = 2048
)

// IsRequest 只接受与探测标记完全一致的报文。
func IsRequest(payload []byte) bool {
	return string(payload) == RequestMarker
}

// EncodeResponse 生成应答报文；没有可用地址时退回到不带列表的旧格式，
// 由客户端使用报文来源地址。
func EncodeResponse(addrs []string) []byte {
	if len(addrs) == 0 {
		return []byte(ResponseMarker)
	}
	return []byte(ResponseMarker + ":" + strings.Join(addrs, ","))
}

// ParseResponse 解析应答报文。ok 为 false 表示不是应答；
// ok 为 true 且 addrs 为空表示旧格式，地址取报文来源。
// 列表中无法解析为 IPv4 的项会被丢弃，重复项只保留第一次出现。
func ParseResponse(payload []byte) (addrs []string, ok bool) {
	s := string(payload)
	if !strings.HasPrefix(s, ResponseMarker) {
		return nil, false
	}
	rest := s[len(ResponseMarker):]
	if rest == "" {
		return nil, true
	}
	if rest[0] != ':' {
		return nil, false
	}

	seen := make(map[string]struct{})
	for _, part := range strings.Split(rest[1:], ",") {
		ip := net.ParseIP(strings.TrimSpace(part))
		if ip == nil || ip.To4() == nil {
			continue
		}
		v4 := ip.To4().String()
		if _, dup := seen[v4]; dup {
			continue
		}
		seen[v4] = struct{}{}
		addrs = append(addrs, v4)
	}
	return addrs, true
}
