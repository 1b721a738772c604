package snowflake

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

var (
	node     *snowflake.Node
	nodeOnce sync.Once
)

// Init 初始化雪花算法节点，重复调用只生效一次
// machineID 超出 0-1023 时退回节点 1
func Init(machineID int64) {
	nodeOnce.Do(func() {
		if machineID < 0 || machineID > 1023 {
			zap.L().Warn("invalid snowflake machine id, using 1", zap.Int64("machineID", machineID))
			machineID = 1
		}
		var err error
		node, err = snowflake.NewNode(machineID)
		if err != nil {
			zap.L().Fatal("failed to initialize snowflake node", zap.Error(err))
		}
		zap.L().Info("snowflake node initialized", zap.Int64("machineID", machineID))
	})
}

// ID 同一节点内严格递增的雪花 ID
// 消息同时用它作为 uuid 和同一时间戳下的排序序号
type ID struct {
	Seq  int64
	Uuid string
}

// Next 生成下一个 ID
func Next() ID {
	Init(1)
	id := node.Generate()
	return ID{Seq: id.Int64(), Uuid: id.String()}
}

// GenerateID 生成雪花 ID (int64)
func GenerateID() int64 {
	return Next().Seq
}

// GenerateIDString 生成雪花 ID (string)，避免 JavaScript 精度丢失
func GenerateIDString() string {
	return Next().Uuid
}
