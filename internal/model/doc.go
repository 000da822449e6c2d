package model

import "time"

// 文档字段的取值辅助函数。
// 内存后端保留 Go 原生类型（time.Time、[]string），
// Postgres 后端经过 JSON 反序列化后得到 string 与 []any，两种形态都要兼容。

func docString(data map[string]any, field string) string {
	if v, ok := data[field].(string); ok {
		return v
	}
	return ""
}

func docTime(data map[string]any, field string) time.Time {
	switch v := data[field].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func docStringSlice(data map[string]any, field string) []string {
	switch v := data[field].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
