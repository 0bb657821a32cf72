package model

// Actor 已认证的操作者
// 认证/会话签发由外部网关完成，核心只拿到已解析的身份做授权判断
// 商户角色下 ID 为商户ID，AdminID 为其所属目的国管理员ID
type Actor struct {
	ID      int64  `json:"id"`
	Role    string `json:"role"`
	AdminID int64  `json:"admin_id,omitempty"`
}

// IsAdmin 两类管理员角色之一
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdminDestination || a.Role == RoleAdminOrigin
}

// CanActOn 操作授权判断：商户只能操作自己名下的交易，管理员不受限
func (a Actor) CanActOn(t *RemitTransaction) bool {
	if a.Role == RoleVendor {
		return t.VendorID == a.ID
	}
	return a.IsAdmin()
}
