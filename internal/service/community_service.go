package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"Circle_Community/internal/model"
	"Circle_Community/internal/pkg"
)

var communityNameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,21}$`)

type CreateCommunityInput struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Type        model.CommunityType `json:"type"`
	Topics      []string            `json:"topics"`
	Banner      string              `json:"banner"`
	Icon        string              `json:"icon"`
	Rules       []model.Rule        `json:"rules"`
}

// SettingsPatch 只带要修改的字段
type SettingsPatch struct {
	Name        *string              `json:"name"`
	Description *string              `json:"description"`
	Icon        *string              `json:"icon"`
	Banner      *string              `json:"banner"`
	Rules       *[]model.Rule        `json:"rules"`
	Type        *model.CommunityType `json:"type"`
	Topics      *[]string            `json:"topics"`
}

type CommunityService struct {
	communities CommunityStore
	posts       PostStore
	users       UserStore
	log         *slog.Logger
}

func NewCommunityService(communities CommunityStore, posts PostStore, users UserStore, logger *slog.Logger) *CommunityService {
	return &CommunityService{
		communities: communities,
		posts:       posts,
		users:       users,
		log:         logger,
	}
}

func validateCommunityName(name string) error {
	if name == "" {
		return pkg.BadRequest("community name required")
	}
	if !communityNameRe.MatchString(name) {
		return pkg.BadRequest("community name must be 3-21 letters, digits or underscores")
	}
	return nil
}

func validateRules(rules []model.Rule) ([]model.Rule, error) {
	out := make([]model.Rule, 0, len(rules))
	for _, r := range rules {
		r.Title = strings.TrimSpace(r.Title)
		r.Description = strings.TrimSpace(r.Description)
		if r.Title == "" {
			return nil, pkg.BadRequest("rule title required")
		}
		out = append(out, r)
	}
	return out, nil
}

// nameTaken 名称大小写不敏感查重，excludeID 为自身时不算冲突
func (s *CommunityService) nameTaken(ctx context.Context, name string, excludeID uint64) error {
	existing, err := s.communities.FindByNameKey(ctx, model.NameKey(name))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return storeErr(err, "community not found")
	}
	if existing.ID != excludeID {
		return pkg.Conflict("community name already taken")
	}
	return nil
}

func (s *CommunityService) CreateCommunity(ctx context.Context, userID uint64, in CreateCommunityInput) (*model.Community, error) {
	name := strings.TrimSpace(in.Name)
	if err := validateCommunityName(name); err != nil {
		return nil, err
	}
	if in.Type == "" {
		in.Type = model.CommunityPublic
	}
	if !in.Type.Valid() {
		return nil, pkg.BadRequest("invalid community type")
	}
	rules, err := validateRules(in.Rules)
	if err != nil {
		return nil, err
	}
	if err := s.nameTaken(ctx, name, 0); err != nil {
		return nil, err
	}

	community := &model.Community{
		Name:        name,
		NameKey:     model.NameKey(name),
		Description: strings.TrimSpace(in.Description),
		Type:        in.Type,
		Topics:      in.Topics,
		Banner:      in.Banner,
		Icon:        in.Icon,
		CreatorID:   userID,
		Rules:       rules,
	}
	if err := s.communities.Create(ctx, community); err != nil {
		// 并发创建同名社区时由唯一索引兜底
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, pkg.Conflict("community name already taken")
		}
		return nil, storeErr(err, "community not found")
	}
	s.log.InfoContext(ctx, "community created", "community_id", community.ID, "creator_id", userID)
	return community, nil
}

func (s *CommunityService) roster(ctx context.Context, communityID uint64) (*model.Roster, error) {
	r, err := s.communities.Roster(ctx, communityID)
	if err != nil {
		return nil, storeErr(err, "community not found")
	}
	return r, nil
}

func (s *CommunityService) requireUser(ctx context.Context, userID uint64) error {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return storeErr(err, "user not found")
	}
	return nil
}

func (s *CommunityService) JoinCommunity(ctx context.Context, communityID, userID uint64) error {
	r, err := s.roster(ctx, communityID)
	if err != nil {
		return err
	}
	if r.IsBanned(userID) {
		return pkg.BadRequest("you are banned from this community")
	}
	if r.IsMember(userID) {
		return pkg.BadRequest("already a member")
	}
	added, err := s.communities.AddMember(ctx, communityID, userID)
	if err != nil {
		return storeErr(err, "community not found")
	}
	if !added {
		return pkg.BadRequest("already a member")
	}
	return nil
}

func (s *CommunityService) LeaveCommunity(ctx context.Context, communityID, userID uint64) error {
	r, err := s.roster(ctx, communityID)
	if err != nil {
		return err
	}
	if r.IsCreator(userID) {
		return pkg.BadRequest("the creator cannot leave the community")
	}
	if !r.IsMember(userID) {
		return pkg.BadRequest("not a member")
	}
	removed, err := s.communities.RemoveMember(ctx, communityID, userID)
	if err != nil {
		return storeErr(err, "community not found")
	}
	if !removed {
		return pkg.BadRequest("not a member")
	}
	return nil
}

func (s *CommunityService) UpdateSettings(ctx context.Context, communityID, callerID uint64, patch SettingsPatch) (*model.Community, error) {
	community, err := s.communities.FindByID(ctx, communityID)
	if err != nil {
		return nil, storeErr(err, "community not found")
	}
	r, err := s.roster(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if !r.CanModerate(callerID) {
		return nil, pkg.Forbidden("only the creator or moderators can change settings")
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name != community.Name {
			if !r.IsCreator(callerID) {
				return nil, pkg.Forbidden("only the creator can rename the community")
			}
			if err := validateCommunityName(name); err != nil {
				return nil, err
			}
			if err := s.nameTaken(ctx, name, community.ID); err != nil {
				return nil, err
			}
			community.Name = name
			community.NameKey = model.NameKey(name)
		}
	}
	if patch.Description != nil {
		community.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Icon != nil {
		community.Icon = *patch.Icon
	}
	if patch.Banner != nil {
		community.Banner = *patch.Banner
	}
	if patch.Rules != nil {
		rules, err := validateRules(*patch.Rules)
		if err != nil {
			return nil, err
		}
		community.Rules = rules
	}
	if patch.Type != nil {
		if !patch.Type.Valid() {
			return nil, pkg.BadRequest("invalid community type")
		}
		community.Type = *patch.Type
	}
	if patch.Topics != nil {
		community.Topics = *patch.Topics
	}

	if err := s.communities.Update(ctx, community); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, pkg.Conflict("community name already taken")
		}
		return nil, storeErr(err, "community not found")
	}
	return community, nil
}

func (s *CommunityService) AddModerator(ctx context.Context, communityID, callerID, targetID uint64) error {
	r, err := s.roster(ctx, communityID)
	if err != nil {
		return err
	}
	if !r.IsCreator(callerID) {
		return pkg.Forbidden("only the creator can add moderators")
	}
	if err := s.requireUser(ctx, targetID); err != nil {
		return err
	}
	if r.IsCreator(targetID) {
		return pkg.BadRequest("the creator already has full rights")
	}
	if r.IsModerator(targetID) {
		return pkg.BadRequest("user is already a moderator")
	}
	if r.IsBanned(targetID) {
		return pkg.BadRequest("user is banned from this community")
	}
	if err := s.communities.SetModerator(ctx, communityID, targetID, callerID, true); err != nil {
		return storeErr(err, "community not found")
	}
	s.log.InfoContext(ctx, "moderator added", "community_id", communityID, "user_id", targetID)
	return nil
}

func (s *CommunityService) RemoveModerator(ctx context.Context, communityID, callerID, targetID uint64) error {
	r, err := s.roster(ctx, communityID)
	if err != nil {
		return err
	}
	if !r.IsCreator(callerID) {
		return pkg.Forbidden("only the creator can remove moderators")
	}
	if !r.IsModerator(targetID) {
		return pkg.BadRequest("user is not a moderator")
	}
	if err := s.communities.SetModerator(ctx, communityID, targetID, callerID, false); err != nil {
		return storeErr(err, "community not found")
	}
	s.log.InfoContext(ctx, "moderator removed", "community_id", communityID, "user_id", targetID)
	return nil
}

// BanUser 创建者优先级最高：任何人都不能封禁创建者，版主之间不能互相封禁
func (s *CommunityService) BanUser(ctx context.Context, communityID, callerID, targetID uint64) error {
	r, err := s.roster(ctx, communityID)
	if err != nil {
		return err
	}
	if r.IsCreator(targetID) {
		return pkg.BadRequest("cannot ban the community creator")
	}
	if !r.CanModerate(callerID) {
		return pkg.Forbidden("only the creator or moderators can ban users")
	}
	if callerID == targetID {
		return pkg.BadRequest("cannot ban yourself")
	}
	if r.IsModerator(targetID) && !r.IsCreator(callerID) {
		return pkg.Forbidden("only the creator can ban a moderator")
	}
	if err := s.requireUser(ctx, targetID); err != nil {
		return err
	}
	if err := s.communities.Ban(ctx, communityID, targetID, callerID); err != nil {
		return storeErr(err, "community not found")
	}
	s.log.InfoContext(ctx, "user banned", "community_id", communityID, "user_id", targetID, "by", callerID)
	return nil
}

func (s *CommunityService) UnbanUser(ctx context.Context, communityID, callerID, targetID uint64) error {
	r, err := s.roster(ctx, communityID)
	if err != nil {
		return err
	}
	if !r.CanModerate(callerID) {
		return pkg.Forbidden("only the creator or moderators can unban users")
	}
	if !r.IsBanned(targetID) {
		return pkg.BadRequest("user is not banned")
	}
	if _, err := s.communities.Unban(ctx, communityID, targetID, callerID); err != nil {
		return storeErr(err, "community not found")
	}
	return nil
}

func (s *CommunityService) RemoveMember(ctx context.Context, communityID, callerID, targetID uint64) error {
	r, err := s.roster(ctx, communityID)
	if err != nil {
		return err
	}
	if !r.CanModerate(callerID) {
		return pkg.Forbidden("only the creator or moderators can remove members")
	}
	if r.IsCreator(targetID) {
		return pkg.BadRequest("cannot remove the community creator")
	}
	if r.IsModerator(targetID) && !r.IsCreator(callerID) {
		return pkg.Forbidden("only the creator can remove a moderator")
	}
	if !r.IsMember(targetID) {
		return pkg.BadRequest("user is not a member")
	}
	removed, err := s.communities.KickMember(ctx, communityID, targetID, callerID)
	if err != nil {
		return storeErr(err, "community not found")
	}
	if !removed {
		return pkg.BadRequest("user is not a member")
	}
	return nil
}

func (s *CommunityService) DeleteCommunity(ctx context.Context, communityID, callerID uint64) error {
	community, err := s.communities.FindByID(ctx, communityID)
	if err != nil {
		return storeErr(err, "community not found")
	}
	if community.CreatorID != callerID {
		return pkg.Forbidden("only the creator can delete the community")
	}
	if err := s.communities.Delete(ctx, communityID, callerID); err != nil {
		return storeErr(err, "community not found")
	}
	s.log.InfoContext(ctx, "community deleted", "community_id", communityID)
	return nil
}

func (s *CommunityService) DeletePostFromCommunity(ctx context.Context, communityID, callerID, postID uint64) error {
	r, err := s.roster(ctx, communityID)
	if err != nil {
		return err
	}
	if !r.CanModerate(callerID) {
		return pkg.Forbidden("only the creator or moderators can delete posts")
	}
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return storeErr(err, "post not found")
	}
	if !post.InCommunity(communityID) {
		return pkg.NotFound("post not found in this community")
	}
	if err := s.posts.DeleteFromCommunity(ctx, communityID, postID, callerID); err != nil {
		return storeErr(err, "post not found")
	}
	return nil
}

func (s *CommunityService) GetByID(ctx context.Context, id uint64) (*model.CommunityDetail, error) {
	community, err := s.communities.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "community not found")
	}
	return s.detail(ctx, community)
}

// GetByName 名称查找大小写不敏感
func (s *CommunityService) GetByName(ctx context.Context, name string) (*model.CommunityDetail, error) {
	community, err := s.communities.FindByNameKey(ctx, model.NameKey(name))
	if err != nil {
		return nil, storeErr(err, "community not found")
	}
	return s.detail(ctx, community)
}

func (s *CommunityService) detail(ctx context.Context, c *model.Community) (*model.CommunityDetail, error) {
	r, err := s.roster(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return model.NewCommunityDetail(c, r), nil
}

func (s *CommunityService) ListCommunities(ctx context.Context, page, size int) ([]model.Community, error) {
	offset, limit := pageOffset(page, size)
	list, err := s.communities.List(ctx, offset, limit)
	if err != nil {
		return nil, storeErr(err, "community not found")
	}
	return list, nil
}

func (s *CommunityService) Members(ctx context.Context, communityID uint64) (*model.Roster, error) {
	return s.roster(ctx, communityID)
}

func (s *CommunityService) Posts(ctx context.Context, communityID uint64, page, size int) ([]model.Post, error) {
	if _, err := s.communities.FindByID(ctx, communityID); err != nil {
		return nil, storeErr(err, "community not found")
	}
	offset, limit := pageOffset(page, size)
	list, err := s.posts.ListByCommunity(ctx, communityID, offset, limit)
	if err != nil {
		return nil, storeErr(err, "post not found")
	}
	return list, nil
}
