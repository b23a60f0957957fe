package service

import (
	"context"
	"log/slog"

	"Circle_Community/internal/model"
	"Circle_Community/internal/pkg"
)

type VoteService struct {
	votes VoteStore
	log   *slog.Logger
}

func NewVoteService(votes VoteStore, logger *slog.Logger) *VoteService {
	return &VoteService{votes: votes, log: logger}
}

// Toggle 同方向再投一次即取消，反方向则替换，同一用户不会同时出现在赞和踩里
func (s *VoteService) Toggle(ctx context.Context, target model.VoteTarget, targetID, userID uint64, dir model.VoteDirection) (model.VoteTally, error) {
	if targetID == 0 || userID == 0 {
		return model.VoteTally{}, pkg.BadRequest("invalid id")
	}
	if dir != model.VoteUp && dir != model.VoteDown {
		return model.VoteTally{}, pkg.BadRequest("invalid vote direction")
	}
	if target != model.VotePost && target != model.VoteComment {
		return model.VoteTally{}, pkg.BadRequest("invalid vote target")
	}
	tally, err := s.votes.Toggle(ctx, target, targetID, userID, dir)
	if err != nil {
		return model.VoteTally{}, storeErr(err, string(target)+" not found")
	}
	return tally, nil
}

func (s *VoteService) Upvote(ctx context.Context, target model.VoteTarget, targetID, userID uint64) (model.VoteTally, error) {
	return s.Toggle(ctx, target, targetID, userID, model.VoteUp)
}

func (s *VoteService) Downvote(ctx context.Context, target model.VoteTarget, targetID, userID uint64) (model.VoteTally, error) {
	return s.Toggle(ctx, target, targetID, userID, model.VoteDown)
}

func (s *VoteService) UserVote(ctx context.Context, target model.VoteTarget, targetID, userID uint64) (model.VoteDirection, error) {
	dir, err := s.votes.UserVote(ctx, target, targetID, userID)
	if err != nil {
		return model.VoteNone, storeErr(err, string(target)+" not found")
	}
	return dir, nil
}
