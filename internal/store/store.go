package store

import (
	"context"
	"errors"
	"fmt"
)

// MaxInValues In 过滤器允许的最大字面值数量
// 超出该数量的批量查询必须由调用方预先分片
const MaxInValues = 10

var (
	// ErrNotFound 按 ID 直接查找时文档不存在
	// 注意与空查询结果区分：空结果是合法的空列表，不是错误
	ErrNotFound = errors.New("document not found")
)

// Document 存储中的一条文档
type Document struct {
	ID   string
	Data map[string]any
}

// FilterOp 过滤操作符
type FilterOp string

const (
	OpEqual         FilterOp = "=="             // 字段等于
	OpIn            FilterOp = "in"             // 字段属于给定集合（最多 MaxInValues 个值）
	OpArrayContains FilterOp = "array-contains" // 数组字段包含给定值
)

// Filter 查询过滤条件
type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

// Query 查询描述
// StartAfter 用于键集分页：排序字段严格大于（降序时严格小于）该值的文档才会返回
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Descending bool
	StartAfter any
	Limit      int
}

// Validate 校验查询合法性
func (q Query) Validate() error {
	if q.Collection == "" {
		return errors.New("store: query collection is required")
	}
	for _, f := range q.Filters {
		if f.Op == OpIn {
			values, ok := f.Value.([]string)
			if !ok {
				return fmt.Errorf("store: in filter on %q requires a []string value", f.Field)
			}
			if len(values) > MaxInValues {
				return fmt.Errorf("store: in filter on %q has %d values, max is %d", f.Field, len(values), MaxInValues)
			}
		}
	}
	if q.StartAfter != nil && q.OrderBy == "" {
		return errors.New("store: start-after requires an order-by field")
	}
	return nil
}

// FieldOpKind 字段级原子操作类型
type FieldOpKind string

const (
	FieldSet             FieldOpKind = "set"
	FieldServerTimestamp FieldOpKind = "server-timestamp"
	FieldArrayUnion      FieldOpKind = "array-union"
	FieldArrayRemove     FieldOpKind = "array-remove"
	FieldDelete          FieldOpKind = "delete"
)

// FieldOp 字段级原子操作
// 所有变更都以字段为粒度表达（并集、差集、合并写入），
// 避免整文档读-改-写，以容忍并发写入者
type FieldOp struct {
	Field  string
	Kind   FieldOpKind
	Value  any
	Values []string
}

// Set 设置字段值
func Set(field string, value any) FieldOp {
	return FieldOp{Field: field, Kind: FieldSet, Value: value}
}

// ServerTimestamp 写入时由存储后端赋值当前服务器时间
func ServerTimestamp(field string) FieldOp {
	return FieldOp{Field: field, Kind: FieldServerTimestamp}
}

// ArrayUnion 数组字段并集（自动去重）
func ArrayUnion(field string, values ...string) FieldOp {
	return FieldOp{Field: field, Kind: FieldArrayUnion, Values: values}
}

// ArrayRemove 数组字段差集
func ArrayRemove(field string, values ...string) FieldOp {
	return FieldOp{Field: field, Kind: FieldArrayRemove, Values: values}
}

// DeleteField 删除字段
func DeleteField(field string) FieldOp {
	return FieldOp{Field: field, Kind: FieldDelete}
}

// serverTime 字段值占位符类型
type serverTime struct{}

// ServerTime Insert/UpsertMerge 字段值占位符，写入时替换为服务器时间
var ServerTime = serverTime{}

// Unsubscribe 取消订阅句柄，可安全地重复调用
type Unsubscribe func()

// Store 文档存储能力抽象
// 本核心不实现存储本身，只依赖该抽象；
// 具体后端见 store/memory 与 store/postgres
type Store interface {
	// Query 按条件查询，空结果返回空列表
	Query(ctx context.Context, q Query) ([]Document, error)

	// Get 按 ID 查找，不存在时返回 ErrNotFound
	Get(ctx context.Context, collection, id string) (Document, error)

	// Subscribe 建立实时查询。每次底层数据变化时把完整的当前结果集
	// 推送给 fn（全量快照，不是增量 diff）；订阅建立时立即推送一次当前快照。
	// 同一订阅内的回调按存储端观察到变化的顺序串行触发。
	Subscribe(ctx context.Context, q Query, fn func([]Document)) (Unsubscribe, error)

	// UpsertMerge 不存在则创建，存在则按字段合并
	UpsertMerge(ctx context.Context, collection, id string, fields map[string]any) error

	// Insert 插入新文档，返回服务端分配的 ID
	Insert(ctx context.Context, collection string, fields map[string]any) (string, error)

	// UpdateFields 对已有文档执行字段级原子操作，文档不存在时返回 ErrNotFound
	UpdateFields(ctx context.Context, collection, id string, ops ...FieldOp) error

	// Delete 删除文档，文档不存在时不报错
	Delete(ctx context.Context, collection, id string) error
}
