//go:build !windows

package firewall

import "os"

// Elevated 在非 Windows 平台上以 root 身份作为管理员判定。
func Elevated() (bool, error) {
	return os.Geteuid() == 0, nil
}
