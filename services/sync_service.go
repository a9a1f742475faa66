package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/clanwars/battles/models"
	"github.com/clanwars/battles/repositories"
	"github.com/clanwars/battles/wgapi"
)

// wargamingClient — часть wgapi-клиента, используемая синхронизацией.
type wargamingClient interface {
	GlobalmapProvinces(ctx context.Context, frontID string, provinceIDs []string) (map[string]*wgapi.ProvinceData, error)
	GlobalmapClanProvinces(ctx context.Context, clanID int) ([]wgapi.ProvinceStub, error)
	ClansInfo(ctx context.Context, clanIDs []int) (map[int]string, error)
	ClanBattles(ctx context.Context, clanID int) (*wgapi.ClanBattlesData, error)
	TournamentInfo(ctx context.Context, provinceID string) (*wgapi.TournamentInfo, error)
}

type SyncService interface {
	// SyncClan обновляет в базе все провинции, связанные с кланом: текущие и
	// запланированные бои плюс собственные провинции. Ошибки по отдельным
	// провинциям логируются и не прерывают остальные.
	SyncClan(ctx context.Context, clanID int) error
}

type syncService struct {
	clanRepo     repositories.ClanRepository
	provinceRepo repositories.ProvinceRepository
	scheduleRepo repositories.ScheduleRepository
	matchRepo    repositories.MatchRepository
	wg           wargamingClient
	logger       *slog.Logger
}

func NewSyncService(
	clanRepo repositories.ClanRepository,
	provinceRepo repositories.ProvinceRepository,
	scheduleRepo repositories.ScheduleRepository,
	matchRepo repositories.MatchRepository,
	wg wargamingClient,
	logger *slog.Logger,
) SyncService {
	return &syncService{
		clanRepo:     clanRepo,
		provinceRepo: provinceRepo,
		scheduleRepo: scheduleRepo,
		matchRepo:    matchRepo,
		wg:           wg,
		logger:       logger,
	}
}

func (s *syncService) SyncClan(ctx context.Context, clanID int) error {
	stubs, err := s.collectWorklist(ctx, clanID)
	if err != nil {
		return err
	}
	if len(stubs) == 0 {
		return nil
	}

	provinces, err := s.fetchProvinces(ctx, stubs)
	if err != nil {
		return err
	}

	seenClans := make(map[int]struct{})
	for _, province := range provinces {
		s.normalizeProvince(ctx, province)
		if err := s.persistProvince(ctx, province, seenClans); err != nil {
			s.logger.Error("failed to persist province",
				"province_id", province.ProvinceID, "error", err)
		}
	}

	s.backfillClanTags(ctx, seenClans)
	return nil
}

// collectWorklist собирает провинции клана из game_api (текущие и
// запланированные бои) и из публичного API (владения). Падение одного
// источника не критично, обоих — да.
func (s *syncService) collectWorklist(ctx context.Context, clanID int) (map[wgapi.ProvinceStub]struct{}, error) {
	stubs := make(map[wgapi.ProvinceStub]struct{})

	battles, battlesErr := s.wg.ClanBattles(ctx, clanID)
	if battlesErr != nil {
		s.logger.Warn("clan battles unavailable", "clan_id", clanID, "error", battlesErr)
	} else {
		for _, stub := range battles.Battles {
			stubs[stub] = struct{}{}
		}
		for _, stub := range battles.PlannedBattles {
			stubs[stub] = struct{}{}
		}
	}

	owned, ownedErr := s.wg.GlobalmapClanProvinces(ctx, clanID)
	if ownedErr != nil {
		s.logger.Warn("clan provinces unavailable", "clan_id", clanID, "error", ownedErr)
	} else {
		for _, stub := range owned {
			stubs[stub] = struct{}{}
		}
	}

	if battlesErr != nil && ownedErr != nil {
		return nil, errors.Join(battlesErr, ownedErr)
	}
	return stubs, nil
}

// fetchProvinces запрашивает данные провинций, сгруппировав их по фронтам
// (API принимает только один front_id за запрос).
func (s *syncService) fetchProvinces(ctx context.Context, stubs map[wgapi.ProvinceStub]struct{}) ([]*wgapi.ProvinceData, error) {
	byFront := make(map[string][]string)
	for stub := range stubs {
		byFront[stub.FrontID] = append(byFront[stub.FrontID], stub.ProvinceID)
	}

	var mu sync.Mutex
	provinces := make([]*wgapi.ProvinceData, 0, len(stubs))

	g, gctx := errgroup.WithContext(ctx)
	for frontID, provinceIDs := range byFront {
		frontID, provinceIDs := frontID, provinceIDs
		g.Go(func() error {
			data, err := s.wg.GlobalmapProvinces(gctx, frontID, provinceIDs)
			if err != nil {
				return err
			}
			mu.Lock()
			for _, p := range data {
				provinces = append(provinces, p)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return provinces, nil
}

// normalizeProvince чинит известные дыры фида стартовавших провинций:
//   - ровно один претендент без записанного боя — это проход без боя,
//     синтезируем запись с пустым противником;
//   - больше одного — аномалия, логируем и оставляем как есть;
//   - претендентов нет вовсе — публичный API их потерял, достаём пары
//     текущего раунда из game_api/tournament_info.
func (s *syncService) normalizeProvince(ctx context.Context, p *wgapi.ProvinceData) {
	if p.Status != string(models.ScheduleStarted) {
		return
	}

	if len(p.Pretenders) == 0 {
		// Единственный бой с участием владельца — корректный финал обороны.
		if len(p.ActiveBattles) == 1 && p.OwnerClanID != nil &&
			battleInvolves(p.ActiveBattles[0], *p.OwnerClanID) {
			return
		}
		s.fillFromTournamentInfo(ctx, p)
		return
	}

	if len(p.ActiveBattles) == 0 {
		s.logger.Error("started province has no recorded battles",
			"province_id", p.ProvinceID)
		return
	}

	inBattles := make(map[int]struct{})
	for _, battle := range p.ActiveBattles {
		if battle.ClanA.ClanID != nil {
			inBattles[*battle.ClanA.ClanID] = struct{}{}
		}
		if battle.ClanB.ClanID != nil {
			inBattles[*battle.ClanB.ClanID] = struct{}{}
		}
	}

	missing := make([]int, 0)
	for _, pretender := range p.Pretenders {
		if _, ok := inBattles[pretender]; !ok {
			missing = append(missing, pretender)
		}
	}

	switch {
	case len(missing) == 0:
	case len(missing) == 1:
		ref := p.ActiveBattles[0]
		p.ActiveBattles = append(p.ActiveBattles, wgapi.ActiveBattle{
			ClanA:   wgapi.BattleSide{ClanID: &missing[0]},
			Round:   ref.Round,
			StartAt: ref.StartAt,
		})
	default:
		s.logger.Warn("several pretenders without a recorded battle",
			"province_id", p.ProvinceID, "clans", missing)
	}
}

func battleInvolves(battle wgapi.ActiveBattle, clanID int) bool {
	return (battle.ClanA.ClanID != nil && *battle.ClanA.ClanID == clanID) ||
		(battle.ClanB.ClanID != nil && *battle.ClanB.ClanID == clanID)
}

func (s *syncService) fillFromTournamentInfo(ctx context.Context, p *wgapi.ProvinceData) {
	info, err := s.wg.TournamentInfo(ctx, p.ProvinceID)
	if err != nil {
		s.logger.Warn("tournament info unavailable",
			"province_id", p.ProvinceID, "error", err)
		return
	}

	battles := make([]wgapi.ActiveBattle, 0, len(info.Battles))
	pretenders := make([]int, 0, 2*len(info.Battles))
	addPretender := func(clanID int) {
		if p.OwnerClanID != nil && *p.OwnerClanID == clanID {
			return
		}
		pretenders = append(pretenders, clanID)
	}

	for _, pair := range info.Battles {
		if pair.IsFake || pair.FirstCompetitor == nil {
			continue
		}
		clanA := pair.FirstCompetitor.ID
		battle := wgapi.ActiveBattle{
			ClanA:   wgapi.BattleSide{ClanID: &clanA},
			Round:   info.RoundNumber,
			StartAt: p.BattlesStartAt,
		}
		addPretender(clanA)
		if pair.SecondCompetitor != nil {
			clanB := pair.SecondCompetitor.ID
			battle.ClanB.ClanID = &clanB
			addPretender(clanB)
		}
		battles = append(battles, battle)
	}

	p.ActiveBattles = battles
	p.Pretenders = pretenders
	if p.RoundNumber == nil && info.RoundNumber > 0 {
		round := info.RoundNumber
		p.RoundNumber = &round
	}
}

func (s *syncService) persistProvince(ctx context.Context, p *wgapi.ProvinceData, seenClans map[int]struct{}) error {
	if len(p.Pretenders) == 0 && len(p.ActiveBattles) == 0 {
		// Провинция без турнира (мирное владение) расписания не имеет.
		return nil
	}

	province := &models.Province{
		FrontID:      p.FrontID,
		FrontName:    p.FrontName,
		ProvinceID:   p.ProvinceID,
		ProvinceName: p.ProvinceName,
		ArenaID:      p.ArenaID,
		ArenaName:    p.ArenaName,
		Server:       p.Server,
		PrimeTime:    p.PrimeTime,
	}
	if err := s.provinceRepo.GetOrCreate(ctx, nil, province); err != nil {
		return err
	}

	clanIDs := make(map[int]struct{})
	for _, pretender := range p.Pretenders {
		clanIDs[pretender] = struct{}{}
	}
	for _, battle := range p.ActiveBattles {
		if battle.ClanA.ClanID != nil {
			clanIDs[*battle.ClanA.ClanID] = struct{}{}
		}
		if battle.ClanB.ClanID != nil {
			clanIDs[*battle.ClanB.ClanID] = struct{}{}
		}
	}
	if p.OwnerClanID != nil {
		clanIDs[*p.OwnerClanID] = struct{}{}
	}
	for clanID := range clanIDs {
		if err := s.clanRepo.Upsert(ctx, nil, &models.Clan{ID: clanID}); err != nil {
			return err
		}
		seenClans[clanID] = struct{}{}
	}

	var status *models.ScheduleStatus
	if p.Status != "" {
		st := models.ScheduleStatus(p.Status)
		status = &st
	}
	// round_number приходит и у NOT_STARTED провинций (остаток прошлого
	// турнира), верим ему только после старта.
	var roundNumber *int
	if p.Status == string(models.ScheduleStarted) {
		roundNumber = p.RoundNumber
	}

	schedule := &models.Schedule{
		ProvinceRefID:  province.ID,
		Date:           BattleDate(p.BattlesStartAt.Time),
		BattlesStartAt: p.BattlesStartAt.Time,
		RoundNumber:    roundNumber,
		Status:         status,
		IsLanding:      p.IsLanding(),
		OwnerID:        p.OwnerClanID,
	}
	if err := s.scheduleRepo.Upsert(ctx, nil, schedule); err != nil {
		return err
	}
	if err := s.scheduleRepo.SetPretenders(ctx, nil, schedule.ID, p.Pretenders); err != nil {
		return err
	}

	for _, battle := range p.ActiveBattles {
		if battle.ClanA.ClanID == nil {
			s.logger.Warn("battle without first clan in feed",
				"province_id", p.ProvinceID, "round", battle.Round)
			continue
		}
		match := &models.Match{
			ScheduleID: schedule.ID,
			ClanAID:    *battle.ClanA.ClanID,
			ClanBID:    battle.ClanB.ClanID,
			Round:      battle.Round,
			StartAt:    battle.StartAt.Time,
		}
		if err := s.matchRepo.Upsert(ctx, nil, match); err != nil {
			return err
		}
	}
	return nil
}

// backfillClanTags дозаполняет теги кланов, появившихся из фида только с id.
func (s *syncService) backfillClanTags(ctx context.Context, seenClans map[int]struct{}) {
	if len(seenClans) == 0 {
		return
	}
	ids := make([]int, 0, len(seenClans))
	for id := range seenClans {
		ids = append(ids, id)
	}

	tags, err := s.wg.ClansInfo(ctx, ids)
	if err != nil {
		s.logger.Warn("clan tags unavailable", "error", err)
		return
	}
	for id, tag := range tags {
		if tag == "" {
			continue
		}
		if err := s.clanRepo.UpdateTag(ctx, nil, id, tag); err != nil {
			s.logger.Warn("failed to update clan tag", "clan_id", id, "error", err)
		}
	}
}
