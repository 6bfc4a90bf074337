package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"

	"tour-booking/pkg/common/document"
	"tour-booking/pkg/common/email"
	errs "tour-booking/pkg/common/errors"
	"tour-booking/pkg/core/query"
	"tour-booking/pkg/core/repository/dao"
	"tour-booking/pkg/core/user/model"
	userdao "tour-booking/pkg/core/user/repository/dao"
)

const (
	defaultBcryptCost = 12
	defaultResetTTL   = 10 * time.Minute
)

type Options struct {
	BcryptCost    int
	ResetTokenTTL time.Duration
}

// UserService 账号生命周期：注册、登录、改密、重置密码、注销
type UserService struct {
	users    userdao.UserRepository
	mailer   email.Sender
	cost     int
	resetTTL time.Duration
	now      func() time.Time
}

func NewUserService(users userdao.UserRepository, mailer email.Sender, opts Options) *UserService {
	s := &UserService{
		users:    users,
		mailer:   mailer,
		cost:     opts.BcryptCost,
		resetTTL: opts.ResetTokenTTL,
		now:      time.Now,
	}
	if s.cost == 0 {
		s.cost = defaultBcryptCost
	}
	if s.resetTTL == 0 {
		s.resetTTL = defaultResetTTL
	}
	return s
}

type SignupInput struct {
	Name            string
	Email           string
	Password        string
	PasswordConfirm string
}

func (s *UserService) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	u := &model.User{
		Name:   in.Name,
		Email:  in.Email,
		Role:   model.RoleUser,
		Active: true,
	}
	u.Prepare()

	v := &errs.ValidationError{}
	v.Merge(u.Validate())
	v.Merge(model.ValidatePassword(in.Password, in.PasswordConfirm))
	if err := v.ErrOrNil(); err != nil {
		return nil, err
	}

	if err := u.SetPassword(in.Password, s.cost, s.now()); err != nil {
		return nil, err
	}
	if err := s.users.Insert(ctx, u); err != nil {
		return nil, err
	}
	hlog.CtxInfof(ctx, "user %s signed up", u.ID)
	return u, nil
}

func (s *UserService) Login(ctx context.Context, emailAddr, password string) (*model.User, error) {
	if emailAddr == "" || password == "" {
		return nil, errs.BadRequest("Please provide email and password!")
	}

	u, err := s.users.FindByEmail(ctx, emailAddr)
	if err != nil && !errors.Is(err, dao.ErrNotFound) {
		return nil, err
	}
	if u == nil || !u.CorrectPassword(password) {
		return nil, errs.Unauthorized("Incorrect email or password")
	}
	return u, nil
}

// Principal 加载令牌对应的当前用户，签发后改过密码的令牌作废
func (s *UserService) Principal(ctx context.Context, id string, issuedAt int64) (*model.User, error) {
	u, err := s.users.FindByID(ctx, id)
	var castErr *errs.CastError
	switch {
	case errors.Is(err, dao.ErrNotFound), errors.As(err, &castErr):
		return nil, errs.Unauthorized("The user belonging to this token does no longer exist.")
	case err != nil:
		return nil, err
	}

	if u.ChangedPasswordAfter(issuedAt) {
		return nil, errs.Unauthorized("User recently changed password! Please log in again")
	}
	return u, nil
}

// ForgotPassword 生成重置令牌并通过邮件发送；resetURL 根据明文令牌生成链接
func (s *UserService) ForgotPassword(ctx context.Context, emailAddr string, resetURL func(token string) string) error {
	u, err := s.users.FindByEmail(ctx, emailAddr)
	if errors.Is(err, dao.ErrNotFound) {
		return errs.NotFound("There is no user with email address.")
	}
	if err != nil {
		return err
	}

	token, err := u.CreatePasswordResetToken(s.now(), s.resetTTL)
	if err != nil {
		return err
	}
	if err := s.users.Save(ctx, u); err != nil {
		return err
	}

	msg := email.Message{
		To:      u.Email,
		Subject: fmt.Sprintf("Your password reset token (valid for %d min)", int(s.resetTTL.Minutes())),
		Text: fmt.Sprintf("Forgot your password? Submit a PATCH request with your new password and passwordConfirm to: %s.\n"+
			"If you didn't forget your password, please ignore this email!", resetURL(token)),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		u.ClearResetToken()
		if saveErr := s.users.Save(ctx, u); saveErr != nil {
			hlog.CtxErrorf(ctx, "clear reset token for %s: %v", u.ID, saveErr)
		}
		return errs.Wrap(err, "There was an error sending to the email. Try again later!", 500)
	}
	return nil
}

func (s *UserService) ResetPassword(ctx context.Context, token, password, confirm string) (*model.User, error) {
	u, err := s.users.FindByResetToken(ctx, model.HashResetToken(token), s.now())
	if errors.Is(err, dao.ErrNotFound) {
		return nil, errs.BadRequest("Token is invalid or has expired.")
	}
	if err != nil {
		return nil, err
	}

	if err := model.ValidatePassword(password, confirm); err != nil {
		return nil, err
	}
	if err := u.SetPassword(password, s.cost, s.now()); err != nil {
		return nil, err
	}
	u.ClearResetToken()
	if err := s.users.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) UpdatePassword(ctx context.Context, id, current, password, confirm string) (*model.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.CorrectPassword(current) {
		return nil, errs.Unauthorized("Your current password is wrong")
	}

	if err := model.ValidatePassword(password, confirm); err != nil {
		return nil, err
	}
	if err := u.SetPassword(password, s.cost, s.now()); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// 用户自助修改资料时允许的字段
var selfUpdatable = []string{"name", "email"}

func (s *UserService) UpdateMe(ctx context.Context, id string, payload map[string]any) (*model.User, error) {
	if _, ok := payload["password"]; ok {
		return nil, errs.BadRequest("This route is not for password updates. Please use /updateMyPassword.")
	}
	if _, ok := payload["passwordConfirm"]; ok {
		return nil, errs.BadRequest("This route is not for password updates. Please use /updateMyPassword.")
	}

	filtered := make(map[string]any, len(selfUpdatable))
	for _, key := range selfUpdatable {
		if v, ok := payload[key]; ok {
			filtered[key] = v
		}
	}
	return s.users.UpdateByID(ctx, id, filtered)
}

// DeleteMe 注销账号：只标记为不活跃
func (s *UserService) DeleteMe(ctx context.Context, id string) error {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	u.Active = false
	return s.users.Save(ctx, u)
}

// Import 批量导入用户，记录中的 password 字段以明文给出
func (s *UserService) Import(ctx context.Context, records []map[string]any) ([]*model.User, error) {
	out := make([]*model.User, 0, len(records))
	for i, rec := range records {
		u, err := dao.Decode[model.User](rec)
		if err != nil {
			return out, fmt.Errorf("user #%d: %w", i, err)
		}
		// 导入数据可以自带标识符，便于保持引用
		if id, _ := rec[query.IDField].(string); document.ValidID(id) {
			u.ID = id
		}
		u.Active = true

		password, _ := rec["password"].(string)
		if password == "" {
			return out, fmt.Errorf("user #%d: missing password", i)
		}
		if err := u.SetPassword(password, s.cost, s.now()); err != nil {
			return out, err
		}
		if err := s.users.Insert(ctx, u); err != nil {
			return out, fmt.Errorf("user #%d: %w", i, err)
		}
		out = append(out, u)
	}
	return out, nil
}
