// Package firewall 管理服务端口的防火墙放行规则。
// 只有 Windows 下的 netsh 适配器会真正执行命令，其他平台由调用方跳过。
package firewall

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/hitushen/localbrowser/internal/logging"
	"github.com/hitushen/localbrowser/internal/metrics"
	"github.com/hitushen/localbrowser/internal/models"
)

var (
	// ErrPrivilegeRequired 表示当前进程没有管理员权限。
	ErrPrivilegeRequired = errors.New("administrator privilege required")
	// ErrRuleNotFound 由 Backend.Delete 在规则不存在时返回。
	ErrRuleNotFound = errors.New("firewall rule not found")
)

// RulePrefix 是本程序创建的所有规则名的前缀。
const RulePrefix = "LocalBrowserServer"

// Backend 是平台防火墙命令的抽象。
type Backend interface {
	Exists(ctx context.Context, name string) (bool, error)
	Add(ctx context.Context, rule models.FirewallRule) error
	Delete(ctx context.Context, name string) error
}

// Ledger 持久化已创建的规则，进程异常退出后下次启动可据此清理。
type Ledger interface {
	RecordRule(ctx context.Context, rule models.FirewallRule) error
	ForgetRule(ctx context.Context, name string) error
	ListRules(ctx context.Context) ([]models.FirewallRule, error)
}

// Gate 在 Backend 之上提供幂等的放行/撤销操作，并记录本次启动确保过的规则。
type Gate struct {
	backend  Backend
	ledger   Ledger
	elevated func() (bool, error)

	mu      sync.Mutex
	ensured []models.FirewallRule
}

// GateOption 配置 Gate。
type GateOption func(*Gate)

func WithLedger(l Ledger) GateOption {
	return func(g *Gate) { g.ledger = l }
}

// WithElevationCheck 替换默认的权限检测，主要用于测试。
func WithElevationCheck(fn func() (bool, error)) GateOption {
	return func(g *Gate) {
		if fn != nil {
			g.elevated = fn
		}
	}
}

func NewGate(backend Backend, opts ...GateOption) *Gate {
	g := &Gate{backend: backend, elevated: Elevated}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Supported 报告当前平台是否有可用的防火墙适配器。
func Supported() bool {
	return runtime.GOOS == "windows"
}

// RuleName 生成规则名，例如 "LocalBrowserServer Inbound TCP 5000"。
func RuleName(direction, protocol string, port int) string {
	dir := "Inbound"
	if direction == models.DirectionOutbound {
		dir = "Outbound"
	}
	return fmt.Sprintf("%s %s %s %d", RulePrefix, dir, protocol, port)
}

func (g *Gate) checkPrivilege() error {
	ok, err := g.elevated()
	if err != nil {
		return fmt.Errorf("check privilege: %w", err)
	}
	if !ok {
		return ErrPrivilegeRequired
	}
	return nil
}

// RuleExists 查询规则是否存在。
func (g *Gate) RuleExists(ctx context.Context, name string) (bool, error) {
	if err := g.checkPrivilege(); err != nil {
		return false, err
	}
	ok, err := g.backend.Exists(ctx, name)
	metrics.RecordFirewallOp("exists", err)
	return ok, err
}

// EnsureInboundAllowed 确保入站规则存在，已存在时不再添加。
func (g *Gate) EnsureInboundAllowed(ctx context.Context, protocol string, port int) (models.FirewallRule, error) {
	return g.ensure(ctx, models.DirectionInbound, protocol, port)
}

// EnsureOutboundAllowed 确保出站规则存在，已存在时不再添加。
func (g *Gate) EnsureOutboundAllowed(ctx context.Context, protocol string, port int) (models.FirewallRule, error) {
	return g.ensure(ctx, models.DirectionOutbound, protocol, port)
}

func (g *Gate) ensure(ctx context.Context, direction, protocol string, port int) (models.FirewallRule, error) {
	rule := models.FirewallRule{
		Name:      RuleName(direction, protocol, port),
		Direction: direction,
		Protocol:  protocol,
		Port:      port,
	}
	exists, err := g.RuleExists(ctx, rule.Name)
	if err != nil {
		return rule, err
	}
	if !exists {
		err := g.backend.Add(ctx, rule)
		metrics.RecordFirewallOp("add", err)
		if err != nil {
			return rule, err
		}
		logging.Info("firewall rule added", zap.String("rule", rule.Name))
	} else {
		logging.Debug("firewall rule already present", zap.String("rule", rule.Name))
	}

	if g.ledger != nil {
		if err := g.ledger.RecordRule(ctx, rule); err != nil {
			logging.Warn("record firewall rule", zap.String("rule", rule.Name), zap.Error(err))
		}
	}
	g.mu.Lock()
	g.ensured = append(g.ensured, rule)
	g.mu.Unlock()
	return rule, nil
}

// RetractRule 删除规则；规则本就不存在视为成功。
func (g *Gate) RetractRule(ctx context.Context, name string) error {
	if err := g.checkPrivilege(); err != nil {
		return err
	}
	err := g.backend.Delete(ctx, name)
	if errors.Is(err, ErrRuleNotFound) {
		logging.Debug("firewall rule already absent", zap.String("rule", name))
		err = nil
	}
	metrics.RecordFirewallOp("delete", err)
	if err != nil {
		return err
	}
	if g.ledger != nil {
		if err := g.ledger.ForgetRule(ctx, name); err != nil {
			logging.Warn("forget firewall rule", zap.String("rule", name), zap.Error(err))
		}
	}
	return nil
}

// Ensured 返回本次启动确保过的规则。
func (g *Gate) Ensured() []models.FirewallRule {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]models.FirewallRule(nil), g.ensured...)
}

// RetractEnsured 撤销本次启动确保过的全部规则，单条失败不影响其余规则。
func (g *Gate) RetractEnsured(ctx context.Context) error {
	g.mu.Lock()
	rules := g.ensured
	g.ensured = nil
	g.mu.Unlock()

	var errs []error
	for _, rule := range rules {
		if err := g.RetractRule(ctx, rule.Name); err != nil {
			errs = append(errs, err)
			continue
		}
		logging.Info("firewall rule removed", zap.String("rule", rule.Name))
	}
	return errors.Join(errs...)
}

// RetractStale 清理上次运行遗留在账本中的规则。
func (g *Gate) RetractStale(ctx context.Context) error {
	if g.ledger == nil {
		return nil
	}
	rules, err := g.ledger.ListRules(ctx)
	if err != nil {
		return fmt.Errorf("list recorded rules: %w", err)
	}
	var errs []error
	for _, rule := range rules {
		if err := g.RetractRule(ctx, rule.Name); err != nil {
			errs = append(errs, err)
			continue
		}
		logging.Info("stale firewall rule removed", zap.String("rule", rule.Name))
	}
	return errors.Join(errs...)
}
