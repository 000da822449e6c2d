package chat

// DeriveChatID 由两个用户 ID 推导私聊会话 ID。
// 纯函数：交换律（DeriveChatID(a,b) == DeriveChatID(b,a)）且确定，
// 因此任意一方都能在没有已有记录的情况下"创建"同一个会话，
// 创建变成以该 ID 为键的幂等 upsert，而不是有竞态的先查后插。
// 认证提供方分配的 uid 不含下划线，不同的 uid 对不会发生碰撞。
// uidA == uidB 属于未定义行为，由上游守卫。
func DeriveChatID(uidA, uidB string) string {
	if uidB < uidA {
		uidA, uidB = uidB, uidA
	}
	return uidA + "_" + uidB
}
