package model

import "github.com/peter-abah/conecr/internal/store"

// User 用户资料
// uid 由认证提供方分配，稳定且不会被重新分配；
// 资料字段仅允许本人修改
type User struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	About       string `json:"about"`
	PhotoURL    string `json:"photoUrl,omitempty"`
}

// UserFromDocument 从存储文档构建用户
func UserFromDocument(doc store.Document) *User {
	return &User{
		UID:         doc.ID,
		DisplayName: docString(doc.Data, "displayName"),
		About:       docString(doc.Data, "about"),
		PhotoURL:    docString(doc.Data, "photoUrl"),
	}
}

// Fields 转换为存储字段
func (u *User) Fields() map[string]any {
	fields := map[string]any{
		"uid":         u.UID,
		"displayName": u.DisplayName,
		"about":       u.About,
	}
	if u.PhotoURL != "" {
		fields["photoUrl"] = u.PhotoURL
	}
	return fields
}
