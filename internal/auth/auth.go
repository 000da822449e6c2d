// Package auth 提供当前主体（principal）能力与 JWT 令牌服务。
// 当前主体不是进程级全局状态，而是显式放在 context 里传递，
// 需要认证的操作从 context 取出主体，取不到即返回未认证错误。
package auth

import (
	"context"

	apperrors "github.com/peter-abah/conecr/internal/errors"
)

type principalKey struct{}

// WithPrincipal 把已认证的用户 ID 放入 context
func WithPrincipal(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, principalKey{}, uid)
}

// Principal 取出当前主体的用户 ID
// 未认证时返回 ErrUnauthenticated
func Principal(ctx context.Context) (string, error) {
	uid, ok := ctx.Value(principalKey{}).(string)
	if !ok || uid == "" {
		return "", apperrors.ErrUnauthenticated
	}
	return uid, nil
}
