package request

// GenerateInviteRequest 生成邀请码，MaxUses 为 0 时使用默认次数
type GenerateInviteRequest struct {
	RoomId  string `json:"roomId" binding:"required"`
	MaxUses int    `json:"maxUses" binding:"min=0,max=1000"`
}

// JoinViaInviteRequest 通过邀请码加入
type JoinViaInviteRequest struct {
	Code string `json:"code" binding:"required,len=8,alphanum"`
}

// MemberRequest 添加或移除成员
type MemberRequest struct {
	RoomId     string `json:"roomId" binding:"required"`
	TargetId   string `json:"targetId" binding:"required,max=64"`
	TargetName string `json:"targetName" binding:"max=64"`
}
