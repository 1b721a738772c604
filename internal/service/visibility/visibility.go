// Package visibility 按平台角色收窄房间列表
// 只影响展示范围，操作是否允许始终以房间内的成员/角色校验为准
package visibility

import (
	"raft_chat_server/internal/dto/respond"
	"raft_chat_server/internal/model"
)

// 平台角色
const (
	RoleFounder    = "founder"
	RoleVC         = "vc"
	RoleExchange   = "exchange"
	RoleIdo        = "ido"
	RoleInfluencer = "influencer"
	RoleAgency     = "agency"
	RoleAdmin      = "admin"
)

// roomKinds 角色可见的房间类型
var roomKinds = map[string][]string{
	RoleVC:         {model.RoomTypeDeal, model.RoomTypeOps},
	RoleExchange:   {model.RoomTypeListing, model.RoomTypeOps},
	RoleIdo:        {model.RoomTypeIdo, model.RoomTypeOps},
	RoleInfluencer: {model.RoomTypeCampaign},
	RoleAgency:     {model.RoomTypeProposal},
}

// Visible 判断单个房间对调用方是否可见
func Visible(room respond.RoomView, role, callerId string) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleFounder:
		return room.Initiator.Id == callerId
	}
	for _, kind := range roomKinds[role] {
		if room.Type == kind {
			return true
		}
	}
	return false
}

// FilterRoomsForCaller 返回调用方可见的房间，保持原有顺序；未知角色什么也看不到
func FilterRoomsForCaller(rooms []respond.RoomView, role, callerId string) []respond.RoomView {
	visible := make([]respond.RoomView, 0, len(rooms))
	for _, room := range rooms {
		if Visible(room, role, callerId) {
			visible = append(visible, room)
		}
	}
	return visible
}
