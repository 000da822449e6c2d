package postgres

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-abah/conecr/internal/store"
)

func TestTimestampTextOrderMatchesTimeOrder(t *testing.T) {
	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	// 小数秒末尾为零的组合是陷阱：省略末尾零的格式会让
	// "…00.5Z" 排在 "…00.52Z" 之后。定宽格式必须不受影响
	times := []time.Time{
		base,
		base.Add(500 * time.Millisecond),
		base.Add(520 * time.Millisecond),
		base.Add(time.Second),
		base.Add(time.Second + 999999*time.Microsecond),
		base.Add(2 * time.Second),
	}

	formatted := make([]string, 0, len(times))
	for _, ts := range times {
		s, ok := resolveServerTime(ts, time.Now().UTC()).(string)
		require.True(t, ok)
		formatted = append(formatted, s)
	}

	sorted := make([]string, len(formatted))
	copy(sorted, formatted)
	sort.Strings(sorted)
	assert.Equal(t, formatted, sorted, "lexicographic order must equal chronological order")
}

func TestTimestampLayout_FixedWidth(t *testing.T) {
	// 所有时间戳等宽，且与 to_char 的 .US 微秒格式逐字对应
	for _, ts := range []time.Time{
		time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 9, 1, 10, 0, 0, 500000000, time.UTC),
	} {
		formatted := ts.Format(timestampLayout)
		assert.Len(t, formatted, len("2026-09-01T10:00:00.000000Z"))
	}
	assert.Equal(t, "2026-09-01T10:00:00.500000Z",
		time.Date(2026, 9, 1, 10, 0, 0, 500000000, time.UTC).Format(timestampLayout))

	// 写入的字符串可以被模型层按 RFC3339 语法解析回来
	parsed, err := time.Parse(time.RFC3339Nano, "2026-09-01T10:00:00.500000Z")
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, time.Duration(parsed.Nanosecond()))
}

func TestBuildQuerySQL(t *testing.T) {
	sql, args := buildQuerySQL(store.Query{
		Collection: "chats",
		Filters:    []store.Filter{{Field: "participants", Op: store.OpArrayContains, Value: "u1"}},
		OrderBy:    "updatedAt",
		Descending: true,
		StartAfter: time.Date(2026, 9, 1, 10, 0, 0, 500000000, time.UTC),
		Limit:      25,
	})

	assert.Contains(t, sql, `data->'participants' ? $2`)
	assert.Contains(t, sql, `data->>'updatedAt' < $3`)
	assert.Contains(t, sql, `ORDER BY data->>'updatedAt' DESC`)
	assert.Contains(t, sql, `LIMIT 25`)
	require.Len(t, args, 3)
	// 游标也走定宽格式，保证与已存储的文本可比
	assert.Equal(t, "2026-09-01T10:00:00.500000Z", args[2])
}
