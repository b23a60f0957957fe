package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Circle_Community/internal/model"
)

type VoteRepository struct {
	DB *gorm.DB
}

func NewVoteRepository(db *gorm.DB) *VoteRepository {
	return &VoteRepository{DB: db}
}

// counterModel 返回投票目标对应的计数表
func counterModel(target model.VoteTarget) (any, error) {
	switch target {
	case model.VotePost:
		return &model.Post{}, nil
	case model.VoteComment:
		return &model.Comment{}, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func column(dir model.VoteDirection) string {
	if dir == model.VoteUp {
		return "upvotes"
	}
	return "downvotes"
}

// Toggle 在一个事务内完成：锁目标行 -> 读当前票 -> 改投票表 -> 调整计数
func (r *VoteRepository) Toggle(ctx context.Context, target model.VoteTarget, targetID, userID uint64, dir model.VoteDirection) (model.VoteTally, error) {
	var tally model.VoteTally
	mdl, err := counterModel(target)
	if err != nil {
		return tally, err
	}
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row model.VoteCounter
		if err := tx.Model(mdl).Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "upvotes", "downvotes").Where("id = ?", targetID).
			Take(&row).Error; err != nil {
			return err
		}

		var vote model.Vote
		current := model.VoteNone
		err := tx.Where("target_type = ? AND target_id = ? AND user_id = ?", target, targetID, userID).Take(&vote).Error
		switch {
		case err == nil:
			current = vote.Direction
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		next := model.NextVote(current, dir)

		switch {
		case next == model.VoteNone:
			err = tx.Delete(&vote).Error
		case current == model.VoteNone:
			err = tx.Create(&model.Vote{TargetType: target, TargetID: targetID, UserID: userID, Direction: next}).Error
		default:
			err = tx.Model(&vote).Update("direction", next).Error
		}
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if current != model.VoteNone {
			updates[column(current)] = gorm.Expr(column(current) + " - 1")
			adjust(&row, current, -1)
		}
		if next != model.VoteNone {
			updates[column(next)] = gorm.Expr(column(next) + " + 1")
			adjust(&row, next, 1)
		}
		if err := tx.Model(mdl).Where("id = ?", targetID).UpdateColumns(updates).Error; err != nil {
			return err
		}
		tally = model.VoteTally{Upvotes: row.Upvotes, Downvotes: row.Downvotes, UserVote: next.String()}
		return nil
	})
	return tally, err
}

func adjust(row *model.VoteCounter, dir model.VoteDirection, delta int64) {
	if dir == model.VoteUp {
		row.Upvotes += delta
	} else {
		row.Downvotes += delta
	}
}

func (r *VoteRepository) UserVote(ctx context.Context, target model.VoteTarget, targetID, userID uint64) (model.VoteDirection, error) {
	mdl, err := counterModel(target)
	if err != nil {
		return model.VoteNone, err
	}
	var count int64
	if err := r.DB.WithContext(ctx).Model(mdl).Where("id = ?", targetID).Count(&count).Error; err != nil {
		return model.VoteNone, err
	}
	if count == 0 {
		return model.VoteNone, gorm.ErrRecordNotFound
	}
	var vote model.Vote
	err = r.DB.WithContext(ctx).
		Where("target_type = ? AND target_id = ? AND user_id = ?", target, targetID, userID).
		Take(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.VoteNone, nil
	}
	if err != nil {
		return model.VoteNone, err
	}
	return vote.Direction, nil
}

// CounterList 按主键游标分批扫描计数
func (r *VoteRepository) CounterList(ctx context.Context, target model.VoteTarget, lastID uint64, batchSize int) ([]model.VoteCounter, error) {
	mdl, err := counterModel(target)
	if err != nil {
		return nil, err
	}
	var rows []model.VoteCounter
	err = r.DB.WithContext(ctx).Model(mdl).
		Select("id", "upvotes", "downvotes").
		Where("id > ?", lastID).
		Order("id ASC").
		Limit(batchSize).
		Scan(&rows).Error
	return rows, err
}

// Reconcile 锁住目标行后按 votes 表重算赞踩数，和 Toggle 串行；返回是否做了修正
func (r *VoteRepository) Reconcile(ctx context.Context, target model.VoteTarget, id uint64) (bool, error) {
	mdl, err := counterModel(target)
	if err != nil {
		return false, err
	}
	var fixed bool
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row model.VoteCounter
		if err := tx.Model(mdl).Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "upvotes", "downvotes").Where("id = ?", id).
			Take(&row).Error; err != nil {
			return err
		}
		var actual struct {
			Up   int64
			Down int64
		}
		if err := tx.Model(&model.Vote{}).
			Select("COALESCE(SUM(direction = 1), 0) AS up, COALESCE(SUM(direction = -1), 0) AS down").
			Where("target_type = ? AND target_id = ?", target, id).
			Scan(&actual).Error; err != nil {
			return err
		}
		if actual.Up == row.Upvotes && actual.Down == row.Downvotes {
			return nil
		}
		fixed = true
		return tx.Model(mdl).Where("id = ?", id).
			UpdateColumns(map[string]any{"upvotes": actual.Up, "downvotes": actual.Down}).Error
	})
	return fixed, err
}
