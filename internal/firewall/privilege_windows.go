//go:build windows

package firewall

import "golang.org/x/sys/windows"

// Elevated 报告当前进程令牌是否已提升为管理员。
func Elevated() (bool, error) {
	return windows.GetCurrentProcessToken().IsElevated(), nil
}
