package redis

// RoomListKey 用户所在房间 ID 列表的缓存键
func RoomListKey(userId string) string {
	return "room_list_" + userId
}

// RoomListVersionKey 用户房间列表缓存的版本号，成员关系变化时自增
func RoomListVersionKey(userId string) string {
	return "room_list_ver_" + userId
}
