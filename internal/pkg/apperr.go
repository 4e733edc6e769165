package pkg

import (
	"errors"
	"fmt"
)

// Kind 稳定的错误种类，客户端据此判断，msg 只给人看
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindUnauthorized        Kind = "unauthorized"
	KindInvalidTransition   Kind = "invalid_transition"
	KindInvalidVisibility   Kind = "invalid_visibility_for_context"
	KindRoomNotStarted      Kind = "room_not_started"
	KindRoomClosed          Kind = "room_closed"
	KindRoomFull            Kind = "room_full"
	KindNotCommunityMember  Kind = "not_community_member"
	KindInvalidInviteToken  Kind = "invalid_invite_token"
	KindInvalidPassword     Kind = "invalid_password"
	KindAlreadyResolved     Kind = "already_resolved"
	KindRequestExpired      Kind = "request_expired"
	KindProviderUnavailable Kind = "provider_unavailable"
	KindCredentialRequired  Kind = "credential_required"
	KindInvalidParams       Kind = "invalid_params"
)

type AppError struct {
	Kind Kind
	Msg  string
	// Missing 仅 credential_required 使用：缺哪几样凭证
	Missing []string
}

func (e *AppError) Error() string { return e.Msg }

func E(kind Kind, msg string) *AppError {
	return &AppError{Kind: kind, Msg: msg}
}

func Ef(kind Kind, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf 取错误种类；非 AppError 返回空串
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

func IsKind(err error, k Kind) bool { return KindOf(err) == k }
