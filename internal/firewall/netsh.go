package firewall

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/hitushen/localbrowser/internal/models"
)

// DefaultCommandTimeout 是单条 netsh 命令的超时。
const DefaultCommandTimeout = 5 * time.Second

// Runner 执行外部命令并返回合并后的输出。
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner 通过 os/exec 执行命令。
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Netsh 是基于 Windows netsh advfirewall 的 Backend。
type Netsh struct {
	Runner  Runner
	Timeout time.Duration
}

// NewNetsh 使用真实命令执行器创建 Netsh。
func NewNetsh() *Netsh {
	return &Netsh{Runner: ExecRunner{}, Timeout: DefaultCommandTimeout}
}

// Exists 查询规则；netsh 找不到规则时以非零码退出，视为不存在。
func (n *Netsh) Exists(ctx context.Context, name string) (bool, error) {
	_, err := n.run(ctx, "show", "rule", "name="+name)
	if err == nil {
		return true, nil
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return false, nil
}

func (n *Netsh) Add(ctx context.Context, rule models.FirewallRule) error {
	_, err := n.run(ctx, "add", "rule",
		"name="+rule.Name,
		"dir="+rule.Direction,
		"action=allow",
		"protocol="+rule.Protocol,
		"localport="+strconv.Itoa(rule.Port),
	)
	if err != nil {
		return fmt.Errorf("add firewall rule %q: %w", rule.Name, err)
	}
	return nil
}

// Delete 删除规则；退出码 1 表示规则不存在，返回 ErrRuleNotFound。
func (n *Netsh) Delete(ctx context.Context, name string) error {
	_, err := n.run(ctx, "delete", "rule", "name="+name)
	if err == nil {
		return nil
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) && coder.ExitCode() == 1 {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, name)
	}
	return fmt.Errorf("delete firewall rule %q: %w", name, err)
}

func (n *Netsh) run(ctx context.Context, args ...string) ([]byte, error) {
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	runner := n.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	full := append([]string{"advfirewall", "firewall"}, args...)
	out, err := runner.Run(ctx, "netsh", full...)
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return out, &commandError{err: err, output: msg}
		}
		return out, err
	}
	return out, nil
}

// commandError 附带命令输出，同时保留原始错误以便读取退出码。
type commandError struct {
	err    error
	output string
}

func (e *commandError) Error() string { return e.err.Error() + ": " + e.output }
func (e *commandError) Unwrap() error { return e.err }
