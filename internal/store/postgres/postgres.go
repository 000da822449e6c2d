// Package postgres 提供基于 Postgres JSONB 的文档存储后端。
// 每个集合的文档存放在同一张 documents 表中，变更事件经 NATS 广播，
// 驱动实时查询重新计算并推送全量快照。
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"

	"github.com/peter-abah/conecr/internal/store"
)

// 时间戳以 UTC 定宽字符串写入 JSONB：小数秒固定 6 位，不省略末尾零，
// 文本序与时间序严格一致，排序与键集分页可以直接作用于文本值。
// 与 buildFieldOpSQL 里 to_char 的 'YYYY-MM-DD"T"HH24:MI:SS.US"Z"' 格式逐字对应
const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       JSONB NOT NULL DEFAULT '{}'::jsonb,
	PRIMARY KEY (collection, id)
);
`

// Store Postgres 文档存储
type Store struct {
	db     *pgxpool.Pool
	nc     *nats.Conn
	logger *slog.Logger
}

// New 创建 Postgres 存储
func New(db *pgxpool.Pool, nc *nats.Conn) *Store {
	return &Store{
		db:     db,
		nc:     nc,
		logger: slog.Default(),
	}
}

// EnsureSchema 建表
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schema)
	return err
}

// Query 按条件查询
func (s *Store) Query(ctx context.Context, q store.Query) ([]store.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	sql, args := buildQuerySQL(q)
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]store.Document, 0)
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		data := make(map[string]any)
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("decode document %s/%s: %w", q.Collection, id, err)
		}
		result = append(result, store.Document{ID: id, Data: data})
	}
	return result, rows.Err()
}

// Get 按 ID 查找
func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	var raw []byte
	err := s.db.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Document{}, store.ErrNotFound
		}
		return store.Document{}, err
	}

	data := make(map[string]any)
	if err := json.Unmarshal(raw, &data); err != nil {
		return store.Document{}, fmt.Errorf("decode document %s/%s: %w", collection, id, err)
	}
	return store.Document{ID: id, Data: data}, nil
}

// UpsertMerge 不存在则创建，存在则按字段合并
func (s *Store) UpsertMerge(ctx context.Context, collection, id string, fields map[string]any) error {
	raw, err := marshalFields(fields)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, id) DO UPDATE SET data = documents.data || EXCLUDED.data
	`, collection, id, raw)
	if err != nil {
		return err
	}

	s.publishChange(collection, id)
	return nil
}

// Insert 插入新文档，返回分配的 ID
func (s *Store) Insert(ctx context.Context, collection string, fields map[string]any) (string, error) {
	raw, err := marshalFields(fields)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err = s.db.Exec(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)`,
		collection, id, raw,
	)
	if err != nil {
		return "", err
	}

	s.publishChange(collection, id)
	return id, nil
}

// UpdateFields 字段级原子操作。每个操作是一条独立的 UPDATE，
// 整批在同一事务内执行
func (s *Store) UpdateFields(ctx context.Context, collection, id string, ops ...store.FieldOp) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, op := range ops {
		sql, args, err := buildFieldOpSQL(collection, id, op)
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return store.ErrNotFound
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	s.publishChange(collection, id)
	return nil
}

// Delete 删除文档；不存在时静默成功
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	)
	if err != nil {
		return err
	}

	s.publishChange(collection, id)
	return nil
}

// buildQuerySQL 构造查询语句。字段名来自内部常量而非外部输入
func buildQuerySQL(q store.Query) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, data FROM documents WHERE collection = $1`)
	args := []any{q.Collection}

	for _, f := range q.Filters {
		switch f.Op {
		case store.OpEqual:
			args = append(args, f.Value)
			fmt.Fprintf(&sb, ` AND data->>'%s' = $%d`, f.Field, len(args))
		case store.OpIn:
			args = append(args, f.Value)
			fmt.Fprintf(&sb, ` AND data->>'%s' = ANY($%d)`, f.Field, len(args))
		case store.OpArrayContains:
			args = append(args, f.Value)
			fmt.Fprintf(&sb, ` AND data->'%s' ? $%d`, f.Field, len(args))
		}
	}

	if q.StartAfter != nil {
		op := ">"
		if q.Descending {
			op = "<"
		}
		args = append(args, startAfterArg(q.StartAfter))
		fmt.Fprintf(&sb, ` AND data->>'%s' %s $%d`, q.OrderBy, op, len(args))
	}

	if q.OrderBy != "" {
		dir := "ASC"
		if q.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, ` ORDER BY data->>'%s' %s`, q.OrderBy, dir)
	}

	if q.Limit > 0 {
		fmt.Fprintf(&sb, ` LIMIT %d`, q.Limit)
	}

	return sb.String(), args
}

// buildFieldOpSQL 构造单个字段操作的 UPDATE 语句
func buildFieldOpSQL(collection, id string, op store.FieldOp) (string, []any, error) {
	base := []any{collection, id, op.Field}

	switch op.Kind {
	case store.FieldSet:
		value, err := json.Marshal(resolveServerTime(op.Value, time.Now().UTC()))
		if err != nil {
			return "", nil, err
		}
		return `
			UPDATE documents SET data = jsonb_set(data, ARRAY[$3], $4::jsonb)
			WHERE collection = $1 AND id = $2
		`, append(base, string(value)), nil

	case store.FieldServerTimestamp:
		return `
			UPDATE documents
			SET data = jsonb_set(data, ARRAY[$3], to_jsonb(to_char(now() AT TIME ZONE 'utc', 'YYYY-MM-DD"T"HH24:MI:SS.US"Z"')))
			WHERE collection = $1 AND id = $2
		`, base, nil

	case store.FieldArrayUnion:
		values, err := json.Marshal(op.Values)
		if err != nil {
			return "", nil, err
		}
		return `
			UPDATE documents
			SET data = jsonb_set(data, ARRAY[$3], (
				SELECT coalesce(jsonb_agg(DISTINCT m.v), '[]'::jsonb)
				FROM (
					SELECT jsonb_array_elements(coalesce(data->$3, '[]'::jsonb)) AS v
					UNION ALL
					SELECT jsonb_array_elements($4::jsonb) AS v
				) m
			))
			WHERE collection = $1 AND id = $2
		`, append(base, string(values)), nil

	case store.FieldArrayRemove:
		values, err := json.Marshal(op.Values)
		if err != nil {
			return "", nil, err
		}
		return `
			UPDATE documents
			SET data = jsonb_set(data, ARRAY[$3], (
				SELECT coalesce(jsonb_agg(m.v), '[]'::jsonb)
				FROM jsonb_array_elements(coalesce(data->$3, '[]'::jsonb)) AS m(v)
				WHERE NOT $4::jsonb @> jsonb_build_array(m.v)
			))
			WHERE collection = $1 AND id = $2
		`, append(base, string(values)), nil

	case store.FieldDelete:
		return `
			UPDATE documents SET data = data - $3
			WHERE collection = $1 AND id = $2
		`, base, nil
	}

	return "", nil, fmt.Errorf("postgres: unknown field op %q", op.Kind)
}

// marshalFields 序列化字段并替换服务器时间占位符
func marshalFields(fields map[string]any) ([]byte, error) {
	now := time.Now().UTC()
	resolved := make(map[string]any, len(fields))
	for k, v := range fields {
		resolved[k] = resolveServerTime(v, now)
	}
	return json.Marshal(resolved)
}

func resolveServerTime(v any, now time.Time) any {
	if v == store.ServerTime {
		return now.Format(timestampLayout)
	}
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(timestampLayout)
	}
	return v
}

func startAfterArg(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(timestampLayout)
	}
	return v
}
