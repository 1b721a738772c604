package mysql

import (
	"fmt"

	"raft_chat_server/internal/config"
	"raft_chat_server/internal/dao/repository"
	"raft_chat_server/internal/model"

	"go.uber.org/zap"
	mysqldriver "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Init 初始化数据库连接并返回 Repository 层实例
// 执行步骤：
//  1. 根据 driver 构建 DSN 并选择方言
//  2. 使用 GORM 建立数据库连接
//  3. 执行 AutoMigrate 自动迁移表结构
//  4. 创建并返回 Repository 实例
func Init(conf *config.DatabaseConfig) (*repository.Repositories, *gorm.DB, error) {
	dialector, err := openDialector(conf)
	if err != nil {
		return nil, nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", conf.Driver, err)
	}

	// 只新增表和字段，不会删除已有数据
	if err := db.AutoMigrate(
		&model.Room{},
		&model.RoomMember{},
		&model.RoomPin{},
		&model.RoomMute{},
		&model.Message{},
		&model.MessageReaction{},
		&model.MessageRead{},
		&model.Invite{},
		&model.InviteUsage{},
		&model.FileUpload{},
		&model.AuditLog{},
		&model.Report{},
	); err != nil {
		return nil, nil, fmt.Errorf("auto migrate: %w", err)
	}

	zap.L().Info("database connected", zap.String("driver", conf.Driver), zap.String("database", conf.DatabaseName))
	return NewRepositories(db), db, nil
}

func openDialector(conf *config.DatabaseConfig) (gorm.Dialector, error) {
	switch conf.Driver {
	case "mysql":
		// 格式：user:password@tcp(host:port)/database?params
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			conf.User, conf.Password, conf.Host, conf.Port, conf.DatabaseName)
		return mysqldriver.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			conf.Host, conf.Port, conf.User, conf.Password, conf.DatabaseName)
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", conf.Driver)
	}
}
