package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/formpay/internal/clock"
	"github.com/smallbiznis/formpay/internal/feed/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const AddonSlug = "formpay-paypal"

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.Store {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("feed.service"),
		genID: p.GenID,
		clock: clk,
		repo:  p.Repo,
	}
}

func (s *Service) SaveFeed(ctx context.Context, feed *domain.Feed) error {
	if feed == nil || feed.FormID == 0 {
		return domain.ErrInvalidFeed
	}
	now := s.clock.Now()
	if feed.ID == 0 {
		feed.ID = s.genID.Generate()
	}
	if strings.TrimSpace(feed.AddonSlug) == "" {
		feed.AddonSlug = AddonSlug
	}
	if feed.CreatedAt.IsZero() {
		feed.CreatedAt = now
	}
	feed.UpdatedAt = now
	return s.repo.Insert(ctx, s.db, feed)
}

func (s *Service) GetFeed(ctx context.Context, id snowflake.ID) (*domain.Feed, error) {
	return s.find(ctx, s.db, id)
}

func (s *Service) find(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Feed, error) {
	feed, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if feed == nil {
		return nil, domain.ErrFeedNotFound
	}
	if feed.Meta == nil {
		feed.Meta = datatypes.JSONMap{}
	}
	return feed, nil
}

func (s *Service) UpdateFeedMeta(ctx context.Context, id snowflake.ID, values map[string]any) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		feed, err := s.find(ctx, tx, id)
		if err != nil {
			return err
		}
		for key, value := range values {
			if value == nil {
				delete(feed.Meta, key)
				continue
			}
			feed.Meta[key] = value
		}
		return s.repo.UpdateMeta(ctx, tx, id, feed.Meta, s.clock.Now())
	})
}

func (s *Service) SaveSettings(ctx context.Context, id snowflake.ID, settings map[string]any) (*domain.Feed, error) {
	var saved *domain.Feed
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		feed, err := s.find(ctx, tx, id)
		if err != nil {
			return err
		}

		previous := &domain.Feed{Meta: feed.Meta}
		next := &domain.Feed{Meta: datatypes.JSONMap{}}
		for key, value := range settings {
			next.Meta[key] = value
		}
		for _, key := range []string{domain.MetaProductID, domain.MetaPlanID, domain.MetaPlanCurrency} {
			if value, ok := previous.Meta[key]; ok {
				next.Meta[key] = value
			}
		}

		cached := previous.MetaString(domain.MetaProductID) != "" && previous.MetaString(domain.MetaPlanID) != ""
		if cached {
			if changed := changedProviderProperties(previous, next); len(changed) > 0 {
				delete(next.Meta, domain.MetaProductID)
				delete(next.Meta, domain.MetaPlanID)
				s.log.Info("cleared cached subscription product and plan",
					zap.String("feed_id", id.String()),
					zap.Strings("changed", changed),
				)
			}
		}

		next.Meta[domain.MetaTrialProduct] = next.MetaString(domain.MetaTrialPriceProduct)
		next.Meta[domain.MetaTrialAmount] = next.MetaString(domain.MetaTrialPriceAmount)

		if err := s.repo.UpdateMeta(ctx, tx, id, next.Meta, s.clock.Now()); err != nil {
			return err
		}
		feed.Meta = next.Meta
		saved = feed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func changedProviderProperties(previous, next *domain.Feed) []string {
	var changed []string
	for _, key := range domain.ProviderProperties {
		if previous.MetaString(key) != next.MetaString(key) {
			changed = append(changed, key)
		}
	}
	return changed
}
