package redis

import (
	"context"
	"errors"
	"fmt"

	"Lee_Meet/internal/repository"
)

const ParticipantPrefix = "room:participants"

var ErrReserveFailed = errors.New("participant reserve failed")

// ParticipantRepository 房间在场集合。
// 用集合而非计数器：SADD 天然给出同一用户重复 join 的幂等命中，SREM 释放也幂等。
type ParticipantRepository struct{}

func NewParticipantRepository() *ParticipantRepository {
	return &ParticipantRepository{}
}

func participantKey(roomID string) string {
	return fmt.Sprintf("%s:%s", ParticipantPrefix, roomID)
}

// 查-占一步完成，两个并发 join 不会同时通过陈旧的容量检查
const reserveScript = `
if redis.call("SISMEMBER", KEYS[1], ARGV[1]) == 1 then
  return 2
end
if redis.call("SCARD", KEYS[1]) >= tonumber(ARGV[2]) then
  return 0
end
redis.call("SADD", KEYS[1], ARGV[1])
return 1
`

func (r *ParticipantRepository) Reserve(ctx context.Context, roomID string, userID uint64, max int) (repository.ReserveResult, error) {
	res := Client.Eval(ctx, reserveScript, []string{participantKey(roomID)}, userID, max)
	if err := res.Err(); err != nil {
		return repository.ReserveFull, ErrReserveFailed
	}
	n, err := res.Int()
	if err != nil {
		return repository.ReserveFull, ErrReserveFailed
	}
	switch n {
	case 2:
		return repository.ReserveHeld, nil
	case 1:
		return repository.ReserveNew, nil
	default:
		return repository.ReserveFull, nil
	}
}

func (r *ParticipantRepository) Release(ctx context.Context, roomID string, userID uint64) error {
	return Client.SRem(ctx, participantKey(roomID), userID).Err()
}

// Clear 房间终止时整体清场
func (r *ParticipantRepository) Clear(ctx context.Context, roomID string) error {
	return Client.Del(ctx, participantKey(roomID)).Err()
}

func (r *ParticipantRepository) Count(ctx context.Context, roomID string) (int64, error) {
	return Client.SCard(ctx, participantKey(roomID)).Result()
}
