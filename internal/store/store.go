package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hitushen/localbrowser/internal/models"
)

// ErrNoKnownServer 表示客户端还没有保存过任何服务端地址。
var ErrNoKnownServer = errors.New("no known server")

// Store 封装了对 SQLite 数据库的持久化访问。
// 服务端用它记录创建过的防火墙规则，客户端用它记住上次选定的服务端。
type Store struct {
	DB *sql.DB
}

// New 根据给定的 SQLite 文件路径初始化 Store。
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite 更适合单写入，这里保持简单配置。

	s := &Store{DB: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close 释放数据库资源。
func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS firewall_rules (
			name TEXT PRIMARY KEY,
			direction TEXT NOT NULL,
			protocol TEXT NOT NULL,
			port INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS known_servers (
			address TEXT NOT NULL,
			port INTEGER NOT NULL,
			last_seen TIMESTAMP NOT NULL,
			PRIMARY KEY (address, port)
		);`,
	}
	for _, stmt := range schema {
		if _, err := s.DB.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	// 早期版本的 known_servers 没有候选地址列。
	if err := s.ensureColumn("known_servers", "candidates", `TEXT NOT NULL DEFAULT ''`); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) ensureColumn(table, column, ddl string) error {
	rows, err := s.DB.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		if strings.EqualFold(name, column) {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	_, err = s.DB.Exec(fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, ddl))
	return err
}

// RecordRule 记录一条已确保存在的防火墙规则，重复记录会覆盖。
func (s *Store) RecordRule(ctx context.Context, rule models.FirewallRule) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO firewall_rules (name, direction, protocol, port)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			direction = excluded.direction,
			protocol = excluded.protocol,
			port = excluded.port`,
		rule.Name, rule.Direction, rule.Protocol, rule.Port)
	if err != nil {
		return fmt.Errorf("record rule %q: %w", rule.Name, err)
	}
	return nil
}

// ForgetRule 删除规则记录，记录不存在时不报错。
func (s *Store) ForgetRule(ctx context.Context, name string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM firewall_rules WHERE name = ?`, name)
	return err
}

// ListRules 按创建顺序返回全部规则记录。
func (s *Store) ListRules(ctx context.Context) ([]models.FirewallRule, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT name, direction, protocol, port, created_at FROM firewall_rules ORDER BY created_at ASC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []models.FirewallRule
	for rows.Next() {
		var r models.FirewallRule
		if err := rows.Scan(&r.Name, &r.Direction, &r.Protocol, &r.Port, &r.CreatedAt); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// SaveKnownServer 保存客户端选定的服务端地址，LastSeen 为零值时使用当前时间。
func (s *Store) SaveKnownServer(ctx context.Context, srv models.KnownServer) error {
	seen := srv.LastSeen
	if seen.IsZero() {
		seen = time.Now()
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO known_servers (address, port, candidates, last_seen)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(address, port) DO UPDATE SET
			candidates = excluded.candidates,
			last_seen = excluded.last_seen`,
		srv.Address, srv.Port, strings.Join(srv.Candidates, ","), seen.UTC())
	if err != nil {
		return fmt.Errorf("save known server %s: %w", srv.Address, err)
	}
	return nil
}

// LastKnownServer 返回最近一次保存的服务端，没有记录时返回 ErrNoKnownServer。
func (s *Store) LastKnownServer(ctx context.Context) (*models.KnownServer, error) {
	var srv models.KnownServer
	var candidates string
	err := s.DB.QueryRowContext(ctx,
		`SELECT address, port, candidates, last_seen FROM known_servers ORDER BY last_seen DESC LIMIT 1`).
		Scan(&srv.Address, &srv.Port, &candidates, &srv.LastSeen)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoKnownServer
		}
		return nil, err
	}
	if candidates != "" {
		srv.Candidates = strings.Split(candidates, ",")
	}
	return &srv, nil
}
