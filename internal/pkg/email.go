package pkg

import (
	"crypto/tls"
	"fmt"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string // 发件人邮箱
	Password string // 授权码/密码
	From     string // 显示的发件人，可与 Username 相同
}

func SendEmail(cfg SMTPConfig, to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	return d.DialAndSend(m)
}

// InviteHTML 审批通过后发给申请人的邀请链接邮件
func InviteHTML(meetName, inviteLink string) string {
	return fmt.Sprintf(`<p>您好，</p><p>您申请的房间 <b>%s</b> 已通过审批。</p><p>加入链接：<a href="%s">%s</a></p><p>请勿将链接泄露给他人。</p>`, meetName, inviteLink, inviteLink)
}

// ResolvedHTML 审批结果通知（驳回时也发）
func ResolvedHTML(meetName, status, note string) string {
	if note == "" {
		note = "无"
	}
	return fmt.Sprintf(`<p>您好，</p><p>您申请的房间 <b>%s</b> 审批结果：<b>%s</b>。</p><p>备注：%s</p>`, meetName, status, note)
}
