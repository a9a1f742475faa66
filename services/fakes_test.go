package services

import (
	"context"
	"fmt"
	"time"

	"github.com/clanwars/battles/models"
	"github.com/clanwars/battles/repositories"
	"github.com/clanwars/battles/wgapi"
)

func intPtr(v int) *int { return &v }

// In-memory реализации репозиториев: повторяют контракт постгресовых,
// чтобы сервисы можно было тестировать без базы.

type fakeClanRepo struct {
	clans map[int]models.Clan
}

func newFakeClanRepo() *fakeClanRepo {
	return &fakeClanRepo{clans: make(map[int]models.Clan)}
}

func (r *fakeClanRepo) GetByID(_ context.Context, id int) (*models.Clan, error) {
	clan, ok := r.clans[id]
	if !ok {
		return nil, repositories.ErrClanNotFound
	}
	return &clan, nil
}

func (r *fakeClanRepo) GetByTag(_ context.Context, tag string) (*models.Clan, error) {
	for _, clan := range r.clans {
		if clan.Tag == tag {
			c := clan
			return &c, nil
		}
	}
	return nil, repositories.ErrClanNotFound
}

func (r *fakeClanRepo) Upsert(_ context.Context, _ repositories.SQLExecutor, clan *models.Clan) error {
	existing, ok := r.clans[clan.ID]
	if ok && clan.Tag == "" {
		clan.Tag = existing.Tag
	}
	r.clans[clan.ID] = *clan
	return nil
}

func (r *fakeClanRepo) UpdateTag(_ context.Context, _ repositories.SQLExecutor, id int, tag string) error {
	clan, ok := r.clans[id]
	if !ok {
		return repositories.ErrClanNotFound
	}
	clan.Tag = tag
	r.clans[id] = clan
	return nil
}

func (r *fakeClanRepo) List(_ context.Context) ([]models.Clan, error) {
	clans := make([]models.Clan, 0, len(r.clans))
	for _, clan := range r.clans {
		clans = append(clans, clan)
	}
	return clans, nil
}

type fakeProvinceRepo struct {
	provinces map[int]models.Province
	nextID    int
}

func newFakeProvinceRepo() *fakeProvinceRepo {
	return &fakeProvinceRepo{provinces: make(map[int]models.Province), nextID: 1}
}

func (r *fakeProvinceRepo) GetByID(_ context.Context, id int) (*models.Province, error) {
	province, ok := r.provinces[id]
	if !ok {
		return nil, repositories.ErrProvinceNotFound
	}
	return &province, nil
}

func (r *fakeProvinceRepo) GetByProvinceID(_ context.Context, frontID, provinceID string) (*models.Province, error) {
	for _, province := range r.provinces {
		if province.FrontID == frontID && province.ProvinceID == provinceID {
			p := province
			return &p, nil
		}
	}
	return nil, repositories.ErrProvinceNotFound
}

func (r *fakeProvinceRepo) GetOrCreate(_ context.Context, _ repositories.SQLExecutor, province *models.Province) error {
	for id, existing := range r.provinces {
		if existing.FrontID == province.FrontID && existing.ProvinceID == province.ProvinceID {
			province.ID = id
			r.provinces[id] = *province
			return nil
		}
	}
	province.ID = r.nextID
	r.nextID++
	r.provinces[province.ID] = *province
	return nil
}

type fakeScheduleRepo struct {
	clans      *fakeClanRepo
	matches    *fakeMatchRepo
	schedules  map[int]models.Schedule
	pretenders map[int][]int
	nextID     int
}

func newFakeScheduleRepo(clans *fakeClanRepo, matches *fakeMatchRepo) *fakeScheduleRepo {
	return &fakeScheduleRepo{
		clans:      clans,
		matches:    matches,
		schedules:  make(map[int]models.Schedule),
		pretenders: make(map[int][]int),
		nextID:     1,
	}
}

func (r *fakeScheduleRepo) Upsert(_ context.Context, _ repositories.SQLExecutor, schedule *models.Schedule) error {
	for id, existing := range r.schedules {
		if existing.ProvinceRefID == schedule.ProvinceRefID && existing.Date.Equal(schedule.Date) {
			schedule.ID = id
			r.schedules[id] = *schedule
			return nil
		}
	}
	schedule.ID = r.nextID
	r.nextID++
	r.schedules[schedule.ID] = *schedule
	return nil
}

func (r *fakeScheduleRepo) SetPretenders(_ context.Context, _ repositories.SQLExecutor, scheduleID int, clanIDs []int) error {
	r.pretenders[scheduleID] = append([]int{}, clanIDs...)
	return nil
}

func (r *fakeScheduleRepo) ListPretenders(_ context.Context, scheduleID int) ([]models.Clan, error) {
	clans := make([]models.Clan, 0)
	for _, clanID := range r.pretenders[scheduleID] {
		if clan, ok := r.clans.clans[clanID]; ok {
			clans = append(clans, clan)
		} else {
			clans = append(clans, models.Clan{ID: clanID})
		}
	}
	return clans, nil
}

func (r *fakeScheduleRepo) ListRelatedByClanAndDate(ctx context.Context, clanID int, date time.Time) ([]*models.Schedule, error) {
	result := make([]*models.Schedule, 0)
	for id := 1; id < r.nextID; id++ {
		schedule, ok := r.schedules[id]
		if !ok || schedule.Date.Before(date) {
			continue
		}
		if schedule.Status != nil && *schedule.Status == models.ScheduleFinished {
			continue
		}
		if r.isRelated(&schedule, clanID) {
			s := schedule
			result = append(result, &s)
		}
	}
	return result, nil
}

func (r *fakeScheduleRepo) isRelated(schedule *models.Schedule, clanID int) bool {
	if schedule.OwnerID != nil && *schedule.OwnerID == clanID {
		return true
	}
	for _, pretender := range r.pretenders[schedule.ID] {
		if pretender == clanID {
			return true
		}
	}
	for _, match := range r.matches.matches[schedule.ID] {
		if match.Involves(clanID) {
			return true
		}
	}
	return false
}

func (r *fakeScheduleRepo) ListByDate(_ context.Context, date time.Time) ([]*models.Schedule, error) {
	result := make([]*models.Schedule, 0)
	for id := 1; id < r.nextID; id++ {
		if schedule, ok := r.schedules[id]; ok && schedule.Date.Equal(date) {
			s := schedule
			result = append(result, &s)
		}
	}
	return result, nil
}

func (r *fakeScheduleRepo) ListFinishedByDate(_ context.Context, date time.Time) ([]*models.Schedule, error) {
	result := make([]*models.Schedule, 0)
	for id := 1; id < r.nextID; id++ {
		schedule, ok := r.schedules[id]
		if !ok || !schedule.Date.Equal(date) {
			continue
		}
		if schedule.Status != nil && *schedule.Status == models.ScheduleFinished {
			s := schedule
			result = append(result, &s)
		}
	}
	return result, nil
}

func (r *fakeScheduleRepo) GetByProvinceAndDate(_ context.Context, provinceRefID int, date time.Time) (*models.Schedule, error) {
	for _, schedule := range r.schedules {
		if schedule.ProvinceRefID == provinceRefID && schedule.Date.Equal(date) {
			s := schedule
			return &s, nil
		}
	}
	return nil, repositories.ErrScheduleNotFound
}

type fakeMatchRepo struct {
	clans   *fakeClanRepo
	matches map[int][]models.Match
	nextID  int
}

func newFakeMatchRepo(clans *fakeClanRepo) *fakeMatchRepo {
	return &fakeMatchRepo{clans: clans, matches: make(map[int][]models.Match), nextID: 1}
}

func (r *fakeMatchRepo) Upsert(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	for i, existing := range r.matches[match.ScheduleID] {
		if existing.ClanAID == match.ClanAID && existing.Round == match.Round &&
			sameOptionalClan(existing.ClanBID, match.ClanBID) {
			match.ID = existing.ID
			r.matches[match.ScheduleID][i].StartAt = match.StartAt
			return nil
		}
	}
	match.ID = r.nextID
	r.nextID++
	r.matches[match.ScheduleID] = append(r.matches[match.ScheduleID], *match)
	return nil
}

func sameOptionalClan(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r *fakeMatchRepo) ListBySchedule(_ context.Context, scheduleID int) ([]models.Match, error) {
	matches := make([]models.Match, 0, len(r.matches[scheduleID]))
	for _, match := range r.matches[scheduleID] {
		m := match
		if clan, ok := r.clans.clans[m.ClanAID]; ok {
			m.ClanA = &clan
		} else {
			m.ClanA = &models.Clan{ID: m.ClanAID}
		}
		if m.ClanBID != nil {
			if clan, ok := r.clans.clans[*m.ClanBID]; ok {
				m.ClanB = &clan
			} else {
				m.ClanB = &models.Clan{ID: *m.ClanBID}
			}
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (r *fakeMatchRepo) DeleteRound(_ context.Context, _ repositories.SQLExecutor, scheduleID, round int) error {
	kept := make([]models.Match, 0)
	for _, match := range r.matches[scheduleID] {
		if match.Round != round {
			kept = append(kept, match)
		}
	}
	r.matches[scheduleID] = kept
	return nil
}

// fakeWargaming отдаёт заранее подготовленные ответы API.
type fakeWargaming struct {
	provinces     map[string]map[string]*wgapi.ProvinceData
	clanProvinces map[int][]wgapi.ProvinceStub
	clanBattles   map[int]*wgapi.ClanBattlesData
	tournaments   map[string]*wgapi.TournamentInfo
	clanTags      map[int]string
	clansByTag    map[string]*wgapi.ClanRecord

	tournamentCalls int
}

func newFakeWargaming() *fakeWargaming {
	return &fakeWargaming{
		provinces:     make(map[string]map[string]*wgapi.ProvinceData),
		clanProvinces: make(map[int][]wgapi.ProvinceStub),
		clanBattles:   make(map[int]*wgapi.ClanBattlesData),
		tournaments:   make(map[string]*wgapi.TournamentInfo),
		clanTags:      make(map[int]string),
		clansByTag:    make(map[string]*wgapi.ClanRecord),
	}
}

func (f *fakeWargaming) addProvince(p *wgapi.ProvinceData) {
	if f.provinces[p.FrontID] == nil {
		f.provinces[p.FrontID] = make(map[string]*wgapi.ProvinceData)
	}
	f.provinces[p.FrontID][p.ProvinceID] = p
}

func (f *fakeWargaming) GlobalmapProvinces(_ context.Context, frontID string, provinceIDs []string) (map[string]*wgapi.ProvinceData, error) {
	front, ok := f.provinces[frontID]
	if !ok {
		return nil, fmt.Errorf("unknown front %q", frontID)
	}
	result := make(map[string]*wgapi.ProvinceData)
	for _, provinceID := range provinceIDs {
		if p, ok := front[provinceID]; ok {
			result[provinceID] = p
		}
	}
	return result, nil
}

func (f *fakeWargaming) GlobalmapClanProvinces(_ context.Context, clanID int) ([]wgapi.ProvinceStub, error) {
	return f.clanProvinces[clanID], nil
}

func (f *fakeWargaming) ClansInfo(_ context.Context, clanIDs []int) (map[int]string, error) {
	tags := make(map[int]string)
	for _, id := range clanIDs {
		if tag, ok := f.clanTags[id]; ok {
			tags[id] = tag
		}
	}
	return tags, nil
}

func (f *fakeWargaming) ClanBattles(_ context.Context, clanID int) (*wgapi.ClanBattlesData, error) {
	if data, ok := f.clanBattles[clanID]; ok {
		return data, nil
	}
	return &wgapi.ClanBattlesData{}, nil
}

func (f *fakeWargaming) TournamentInfo(_ context.Context, provinceID string) (*wgapi.TournamentInfo, error) {
	f.tournamentCalls++
	if info, ok := f.tournaments[provinceID]; ok {
		return info, nil
	}
	return nil, fmt.Errorf("no tournament info for %q", provinceID)
}

func (f *fakeWargaming) SearchClan(_ context.Context, tag string) (*wgapi.ClanRecord, error) {
	if record, ok := f.clansByTag[tag]; ok {
		return record, nil
	}
	return nil, fmt.Errorf("%w: clan %s", wgapi.ErrNotFound, tag)
}
