package service

import (
	"context"
	"log"

	"Lee_Meet/internal/pkg"
	"Lee_Meet/internal/repository"
)

// MailNotifier 审批结果邮件通知，尽力而为：发失败只记日志
type MailNotifier struct {
	cfg   pkg.SMTPConfig
	users repository.UserRepository
}

func NewMailNotifier(cfg pkg.SMTPConfig, users repository.UserRepository) *MailNotifier {
	return &MailNotifier{cfg: cfg, users: users}
}

func (n *MailNotifier) emailOf(ctx context.Context, uid uint64) string {
	user, err := n.users.FindByID(ctx, uid)
	if err != nil {
		log.Printf("notifier: lookup user %d: %v", uid, err)
		return ""
	}
	return user.Email
}

func (n *MailNotifier) RequestApproved(ctx context.Context, requesterUID uint64, meetName, inviteLink string) {
	to := n.emailOf(ctx, requesterUID)
	if to == "" || n.cfg.Host == "" {
		return
	}
	var body string
	if inviteLink != "" {
		body = pkg.InviteHTML(meetName, inviteLink)
	} else {
		body = pkg.ResolvedHTML(meetName, "approved", "")
	}
	go func() {
		if err := pkg.SendEmail(n.cfg, to, "房间申请已通过", body); err != nil {
			log.Printf("notifier: send approved mail to %s: %v", to, err)
		}
	}()
}

func (n *MailNotifier) RequestRejected(ctx context.Context, requesterUID uint64, meetName, note string) {
	to := n.emailOf(ctx, requesterUID)
	if to == "" || n.cfg.Host == "" {
		return
	}
	body := pkg.ResolvedHTML(meetName, "rejected", note)
	go func() {
		if err := pkg.SendEmail(n.cfg, to, "房间申请未通过", body); err != nil {
			log.Printf("notifier: send rejected mail to %s: %v", to, err)
		}
	}()
}
