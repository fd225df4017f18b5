package domain

// GuestUserID 是访客在历史记录和聊天记录中使用的用户 ID 哨兵值。
// 访客没有对应的 users 表记录，持久化层不对该列做外键约束。
const GuestUserID uint = 0

// Identity 表示一个连接解析出的身份。
// 要么是已认证用户（携带真实的 UserID），要么是访客（只有展示名）。
// 广播和日志路径统一消费 Identity，不再关心来源。
type Identity struct {
	UserID uint   // 已认证用户的 ID；访客为 GuestUserID
	Name   string // 展示名（用户名或访客昵称）
	Guest  bool   // 是否为访客身份
}

// AuthenticatedIdentity 构造一个已认证用户身份。
func AuthenticatedIdentity(userID uint, name string) Identity {
	return Identity{UserID: userID, Name: name}
}

// GuestIdentity 构造一个访客身份。
func GuestIdentity(name string) Identity {
	return Identity{UserID: GuestUserID, Name: name, Guest: true}
}

// StorageUserID 返回写入持久层时使用的用户 ID。
func (i Identity) StorageUserID() uint {
	if i.Guest {
		return GuestUserID
	}
	return i.UserID
}
