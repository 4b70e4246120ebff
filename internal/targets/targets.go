// Package targets 解析用户输入的服务端地址，例如 "192.168.1.10"、
// "192.168.1.10:5000" 或 "http://host:5000/api"。
package targets

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// ErrEmpty 表示输入为空。
var ErrEmpty = errors.New("empty server address")

// Parse 从输入中提取主机与端口；输入未带端口时使用 defaultPort。
// 主机名统一转为小写，IPv6 地址去掉方括号。
func Parse(address string, defaultPort int) (string, int, error) {
	addr := strings.TrimSpace(address)
	if addr == "" {
		return "", 0, ErrEmpty
	}

	// 处理带协议前缀的输入。
	if strings.Contains(addr, "://") {
		u, err := url.Parse(addr)
		if err != nil {
			return "", 0, fmt.Errorf("parse %q: %w", address, err)
		}
		addr = u.Host
	}
	addr = strings.TrimPrefix(addr, "//")

	// 去除可能存在的账号密码片段（user:pass@host）。
	if at := strings.LastIndex(addr, "@"); at != -1 {
		addr = addr[at+1:]
	}
	// 去除剩余的路径或查询参数。
	if cut := strings.IndexAny(addr, "/?#"); cut != -1 {
		addr = addr[:cut]
	}
	addr = strings.TrimSpace(addr)

	host, port := addr, defaultPort
	switch {
	case strings.HasPrefix(addr, "["):
		// [::1] 或 [::1]:5000
		end := strings.Index(addr, "]")
		if end == -1 {
			return "", 0, fmt.Errorf("parse %q: missing ']'", address)
		}
		host = addr[1:end]
		if rest := addr[end+1:]; rest != "" {
			if !strings.HasPrefix(rest, ":") {
				return "", 0, fmt.Errorf("parse %q: unexpected %q after host", address, rest)
			}
			p, err := parsePort(rest[1:])
			if err != nil {
				return "", 0, fmt.Errorf("parse %q: %w", address, err)
			}
			port = p
		}
	case strings.Count(addr, ":") == 1:
		// 单冒号视为 host:port，多冒号是裸 IPv6。
		h, ps, err := net.SplitHostPort(addr)
		if err != nil {
			return "", 0, fmt.Errorf("parse %q: %w", address, err)
		}
		p, err := parsePort(ps)
		if err != nil {
			return "", 0, fmt.Errorf("parse %q: %w", address, err)
		}
		host, port = h, p
	}

	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return "", 0, fmt.Errorf("parse %q: missing host", address)
	}
	if port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("parse %q: port %d out of range", address, port)
	}
	return host, port, nil
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(s)
	if err != nil || p < 1 || p > 65535 {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	return p, nil
}

// BaseURL 返回 API 调用使用的基础地址，例如 http://192.168.1.10:5000。
func BaseURL(host string, port int) string {
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}
