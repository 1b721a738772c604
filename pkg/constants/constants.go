package constants

const (
	SYSTEM_ACTOR_ID   = "raftai" // 系统/AI 参与者 ID，每个房间的固定管理员成员
	SYSTEM_ACTOR_NAME = "RaftAI" // 系统参与者显示名

	ROOM_ID_SEP      = "_" // 房间确定性 ID 的分隔符，参与者 ID 中不得出现
	INVITE_CODE_LEN  = 8   // 邀请码长度
	MB               = 1024 * 1024
	ROOM_LIST_TTL    = 30 // 用户房间列表缓存有效期（分钟）
	SNIFF_HEAD_BYTES = 3072
	SEARCH_LIMIT     = 100 // 消息检索最多返回条数
)
