package sysconfig

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

type Service struct {
	repo     Repository
	validate *validator.Validate
	now      func() time.Time
}

var _ Provider = (*Service)(nil)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{
		repo:     repo,
		validate: validate,
		now:      time.Now,
	}
}

// EnsureDefault returns the active config, creating the default one if none exists.
// Safe to call any number of times, concurrently: losers of a creation race read the winner's document.
func (svc *Service) EnsureDefault(ctx context.Context) (SystemConfig, error) {
	conf, err := svc.repo.GetActiveConfig(ctx)
	if err == nil {
		return conf, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return SystemConfig{}, errors.Wrap(err, "getting active config")
	}

	now := svc.now().UTC()
	conf = Default()
	conf.CreatedAt = now
	conf.UpdatedAt = now
	created, err := svc.repo.CreateConfig(ctx, conf)
	if err == nil {
		return created, nil
	}
	if errors.Cause(err) == ErrAlreadyExists {
		conf, err = svc.repo.GetActiveConfig(ctx)
		return conf, errors.Wrap(err, "getting active config")
	}
	return SystemConfig{}, errors.Wrap(err, "creating default config")
}

func (svc *Service) Current(ctx context.Context) (SystemConfig, error) {
	return svc.EnsureDefault(ctx)
}

func (svc *Service) Update(ctx context.Context, u Update) (SystemConfig, error) {
	if err := svc.validate.Struct(u); err != nil {
		return SystemConfig{}, err
	}
	conf, err := svc.EnsureDefault(ctx)
	if err != nil {
		return SystemConfig{}, err
	}
	u.apply(&conf)
	conf.UpdatedAt = svc.now().UTC()
	return svc.repo.UpdateConfig(ctx, conf)
}

// HasValidCredentials reports whether the current config has usable credentials for a section.
func (svc *Service) HasValidCredentials(ctx context.Context, section string) (bool, error) {
	conf, err := svc.Current(ctx)
	if err != nil {
		return false, err
	}
	return conf.HasValidCredentials(section), nil
}
