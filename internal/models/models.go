package models

import "time"

// DirectoryEntry 表示共享根目录下的一个文件或目录。
// Path 使用正斜杠分隔、相对于共享根目录，且不带前导斜杠。
type DirectoryEntry struct {
	Name        string    `json:"name"`
	IsDirectory bool      `json:"isDirectory"`
	Path        string    `json:"path"`
	Size        *int64    `json:"size"`
	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`
}

// FirewallRule 描述一条由服务端创建的防火墙放行规则。
type FirewallRule struct {
	Name      string    `json:"name"`
	Direction string    `json:"direction"`
	Protocol  string    `json:"protocol"`
	Port      int       `json:"port"`
	CreatedAt time.Time `json:"createdAt"`
}

// 防火墙规则方向与协议。
const (
	DirectionInbound  = "in"
	DirectionOutbound = "out"

	ProtocolTCP = "TCP"
	ProtocolUDP = "UDP"
)

// KnownServer 是客户端最近一次选定的服务端地址。
type KnownServer struct {
	Address    string    `json:"address"`
	Port       int       `json:"port"`
	Candidates []string  `json:"candidates"`
	LastSeen   time.Time `json:"lastSeen"`
}

// ClientConn 表示一个已连接到 HTTP 服务的客户端。
type ClientConn struct {
	RemoteAddr string    `json:"remoteAddr"`
	Since      time.Time `json:"since"`
}
