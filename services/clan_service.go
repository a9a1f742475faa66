package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/clanwars/battles/models"
	"github.com/clanwars/battles/repositories"
	"github.com/clanwars/battles/wgapi"
)

// clanResolver — часть wgapi-клиента, нужная для поиска кланов.
type clanResolver interface {
	SearchClan(ctx context.Context, tag string) (*wgapi.ClanRecord, error)
}

type ClanService interface {
	// ResolveByTag ищет клан сначала в базе, затем через API Wargaming;
	// найденный через API клан сохраняется для следующих запросов.
	ResolveByTag(ctx context.Context, tag string) (*models.Clan, error)
	// ResolveByID доверяет переданной паре id+tag (формат URL /update/{id}-{tag})
	// и создаёт клан без обращения к API, если его ещё нет в базе.
	ResolveByID(ctx context.Context, id int, tag string) (*models.Clan, error)
}

type clanService struct {
	clanRepo repositories.ClanRepository
	wg       clanResolver
	logger   *slog.Logger
}

func NewClanService(clanRepo repositories.ClanRepository, wg clanResolver, logger *slog.Logger) ClanService {
	return &clanService{clanRepo: clanRepo, wg: wg, logger: logger}
}

func (s *clanService) ResolveByTag(ctx context.Context, tag string) (*models.Clan, error) {
	tag = strings.ToUpper(strings.TrimSpace(tag))
	if tag == "" {
		return nil, ErrClanNotFound
	}

	clan, err := s.clanRepo.GetByTag(ctx, tag)
	if err == nil {
		return clan, nil
	}
	if !errors.Is(err, repositories.ErrClanNotFound) {
		return nil, err
	}

	record, err := s.wg.SearchClan(ctx, tag)
	if err != nil {
		if errors.Is(err, wgapi.ErrNotFound) {
			return nil, ErrClanNotFound
		}
		return nil, err
	}

	clan = &models.Clan{ID: record.ClanID, Tag: record.Tag}
	if err := s.clanRepo.Upsert(ctx, nil, clan); err != nil {
		return nil, err
	}
	s.logger.Info("registered clan from wargaming api", "clan_id", clan.ID, "tag", clan.Tag)
	return clan, nil
}

func (s *clanService) ResolveByID(ctx context.Context, id int, tag string) (*models.Clan, error) {
	clan, err := s.clanRepo.GetByID(ctx, id)
	if err == nil {
		return clan, nil
	}
	if !errors.Is(err, repositories.ErrClanNotFound) {
		return nil, err
	}

	clan = &models.Clan{ID: id, Tag: strings.ToUpper(strings.TrimSpace(tag))}
	if err := s.clanRepo.Upsert(ctx, nil, clan); err != nil {
		return nil, err
	}
	return clan, nil
}
