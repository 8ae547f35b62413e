package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ericfisherdev/aimanager/internal/domain/model"
	"github.com/ericfisherdev/aimanager/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.MCPServerStore = (*MCPServerRepo)(nil)

// MCPServerRepo is the SQLite implementation of MCPServerStore. Args and
// env are stored as JSON text.
type MCPServerRepo struct {
	table[model.MCPServer]
}

// NewMCPServerRepo creates a new MCPServerRepo backed by the given DB.
func NewMCPServerRepo(db *DB) *MCPServerRepo {
	return &MCPServerRepo{
		table: table[model.MCPServer]{
			db:         db,
			name:       "mcp_servers",
			columns:    "id, name, type, timeout, command, args, env, created_at, updated_at",
			searchable: []string{"name", "command", "args", "type"},
			scan:       scanMCPServer,
		},
	}
}

// Create inserts a server definition. A duplicate name returns ErrConflict.
func (r *MCPServerRepo) Create(ctx context.Context, in model.MCPServerInput) (int64, error) {
	return r.InsertSealed(ctx, model.MCPServer{
		Name:    in.Name,
		Type:    in.Type,
		Timeout: in.Timeout,
		Command: in.Command,
		Args:    in.Args,
		Env:     in.Env,
	})
}

// InsertSealed inserts s as given. Servers carry no encrypted columns.
func (r *MCPServerRepo) InsertSealed(ctx context.Context, s model.MCPServer) (int64, error) {
	const query = `INSERT INTO mcp_servers (name, type, timeout, command, args, env, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	args, err := encodeArgs(s.Args)
	if err != nil {
		return 0, fmt.Errorf("encode args for mcp server %q: %w", s.Name, err)
	}
	env, err := encodeEnv(s.Env)
	if err != nil {
		return 0, fmt.Errorf("encode env for mcp server %q: %w", s.Name, err)
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = model.DefaultMCPTimeout
	}

	id, err := r.insert(ctx, query, s.Name, nullString(string(s.Type)), timeout, s.Command, args, env,
		stampOrNow(s.CreatedAt), stampOrNow(s.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert mcp server %q: %w", s.Name, driven.ErrConflict)
		}
		return 0, fmt.Errorf("insert mcp server %q: %w", s.Name, err)
	}
	return id, nil
}

// FindByName returns the server registered under name.
func (r *MCPServerRepo) FindByName(ctx context.Context, name string) (*model.MCPServer, error) {
	s, err := r.findOne(ctx, "name = ?", name)
	if err != nil {
		return nil, fmt.Errorf("find mcp server %q: %w", name, err)
	}
	return s, nil
}

// Update applies the non-nil fields of patch. Renaming onto an existing
// name returns ErrConflict.
func (r *MCPServerRepo) Update(ctx context.Context, id int64, patch model.MCPServerPatch) (bool, error) {
	set := &setClause{}
	if patch.Name != nil {
		set.add("name", *patch.Name)
	}
	if patch.Type != nil {
		set.add("type", nullString(string(*patch.Type)))
	}
	if patch.Timeout != nil {
		set.add("timeout", *patch.Timeout)
	}
	if patch.Command != nil {
		set.add("command", *patch.Command)
	}
	if patch.Args != nil {
		args, err := encodeArgs(*patch.Args)
		if err != nil {
			return false, fmt.Errorf("encode args for mcp server %d: %w", id, err)
		}
		set.add("args", args)
	}
	if patch.Env != nil {
		env, err := encodeEnv(*patch.Env)
		if err != nil {
			return false, fmt.Errorf("encode env for mcp server %d: %w", id, err)
		}
		set.add("env", env)
	}
	set.add("updated_at", now())

	ok, err := r.update(ctx, id, set)
	if err != nil {
		if isUniqueViolation(err) {
			return false, fmt.Errorf("update mcp server %d: %w", id, driven.ErrConflict)
		}
		return false, fmt.Errorf("update mcp server %d: %w", id, err)
	}
	return ok, nil
}

func encodeArgs(args []string) (string, error) {
	if args == nil {
		args = []string{}
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func encodeEnv(env map[string]string) (sql.NullString, error) {
	if len(env) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(env)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func scanMCPServer(s scanner) (*model.MCPServer, error) {
	var m model.MCPServer
	var (
		serverType, env      sql.NullString
		timeout              sql.NullInt64
		args                 string
		createdAt, updatedAt sql.NullString
	)

	err := s.Scan(&m.ID, &m.Name, &serverType, &timeout, &m.Command, &args, &env, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	m.Type = model.MCPServerType(serverType.String)
	m.Timeout = model.DefaultMCPTimeout
	if timeout.Valid {
		m.Timeout = timeout.Int64
	}

	m.Args = []string{}
	if args != "" {
		if err := json.Unmarshal([]byte(args), &m.Args); err != nil {
			return nil, fmt.Errorf("decode args: %w", err)
		}
	}
	if env.Valid && env.String != "" {
		if err := json.Unmarshal([]byte(env.String), &m.Env); err != nil {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	if m.CreatedAt, err = parseNullTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if m.UpdatedAt, err = parseNullTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &m, nil
}
