package main

import (
	"context"
	"log"

	"Lee_Meet/internal/config"
	"Lee_Meet/internal/handler"
	"Lee_Meet/internal/model"
	"Lee_Meet/internal/pkg"
	"Lee_Meet/internal/repository/mysql"
	"Lee_Meet/internal/repository/redis"
	"Lee_Meet/internal/router"
	"Lee_Meet/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.MustLoad()

	pkg.SetSecrets(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret)

	if err := mysql.InitDB(cfg.MySQL.DSN); err != nil {
		panic(err)
	}
	if err := redis.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		panic(err)
	}

	// 自动建表（开发阶段 OK）
	mysql.DB.AutoMigrate(
		&model.User{},
		&model.Community{},
		&model.CommunityMember{},
		&model.Room{},
		&model.RoomInvite{},
		&model.RoomRequest{},
		&model.RoomOutbox{},
	)

	// 仓储
	roomRepo := mysql.NewRoomRepository(mysql.DB)
	inviteRepo := mysql.NewRoomInviteRepository(mysql.DB)
	requestRepo := mysql.NewRoomRequestRepository(mysql.DB)
	communityRepo := mysql.NewCommunityRepository(mysql.DB)
	memberRepo := mysql.NewCommunityMemberRepository(mysql.DB)
	userRepo := mysql.NewUserRepository(mysql.DB)
	outboxRepo := mysql.NewOutboxRepository(mysql.DB)
	participants := redis.NewParticipantRepository()

	// 外部会议供应商
	var provider service.MeetingProvider
	if cfg.Provider.BaseURL != "" {
		provider = service.NewHTTPMeetingProvider(cfg.Provider.BaseURL, cfg.Provider.Timeout)
	} else {
		provider = &service.StaticMeetingProvider{Base: cfg.Provider.InviteLinkBase}
	}

	// 服务
	inviteSvc := service.NewInviteService(inviteRepo, cfg.Provider.InviteLinkBase)
	roomSvc := service.NewRoomService(roomRepo, memberRepo, inviteSvc, participants, outboxRepo)
	joinSvc := service.NewJoinService(roomRepo, memberRepo, inviteSvc, participants, provider, outboxRepo)
	notifier := service.NewMailNotifier(pkg.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, userRepo)
	requestSvc := service.NewRequestService(requestRepo, memberRepo, inviteSvc, notifier, cfg.Request.ApprovalWindow)
	communitySvc := service.NewCommunityService(communityRepo, memberRepo)
	userSvc := service.NewUserService(userRepo)

	// 后台任务：申请过期落库 + 发件箱投递
	ctx := context.Background()
	go requestSvc.RunExpirer(ctx, cfg.Request.ExpireSweep)

	sender := service.LogSender
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Brokers[0] != "" {
		producer, err := pkg.NewKafkaProducer(pkg.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		})
		if err != nil {
			log.Printf("kafka producer init failed, falling back to log sender: %v", err)
		} else {
			defer producer.Close()
			sender = func(ctx context.Context, ev *model.RoomOutbox) error {
				return producer.Send(ctx, ev.RoomID, []byte(ev.Payload))
			}
		}
	}
	go service.NewOutboxRelayer(outboxRepo, sender).Run(ctx)

	// Gin
	r := router.InitRouter(router.Handlers{
		User:      handler.NewUserHandler(userSvc),
		Community: handler.NewCommunityHandler(communitySvc),
		Room:      handler.NewRoomHandler(roomSvc, joinSvc),
		Request:   handler.NewRequestHandler(requestSvc),
		Bootstrap: handler.NewBootstrapHandler(communitySvc, requestSvc),
	})
	if err := r.Run(cfg.HTTP.Address); err != nil {
		log.Fatal(err)
	}
}
