// Утилита наполнения базы тестовыми расписаниями: создаёт турнир за одну из
// известных провинций с выбранными претендентами, владельцем и раундом.
//
//	go run ./cmd/fake --clans 5 --owner TAG --province agadir --round 2
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/clanwars/battles/config"
	"github.com/clanwars/battles/db"
	"github.com/clanwars/battles/models"
	"github.com/clanwars/battles/repositories"
	"github.com/clanwars/battles/services"
)

var provincesData = []models.Province{
	{ArenaID: "47_canada_a", ArenaName: "Тихий берег", FrontID: "event_gambit_ru_l_league3", FrontName: "Элитный", PrimeTime: "20:15", ProvinceID: "agadir", ProvinceName: "Агадир", Server: "RU6"},
	{ArenaID: "08_ruinberg", ArenaName: "Руинберг", FrontID: "event_gambit_ru_l_league3", FrontName: "Элитный", PrimeTime: "19:15", ProvinceID: "amizmiz", ProvinceName: "Амизмиз", Server: "RU6"},
	{ArenaID: "02_malinovka", ArenaName: "Малиновка", FrontID: "event_gambit_ru_l_league3", FrontName: "Элитный", PrimeTime: "17:15", ProvinceID: "azrou", ProvinceName: "Азру", Server: "RU6"},
	{ArenaID: "06_ensk", ArenaName: "Энск", FrontID: "event_gambit_ru_l_league3", FrontName: "Элитный", PrimeTime: "18:15", ProvinceID: "benimellal", ProvinceName: "Бени-Меллаль", Server: "RU6"},
	{ArenaID: "35_steppes", ArenaName: "Степи", FrontID: "event_gambit_ru_l_league3", FrontName: "Элитный", PrimeTime: "18:15", ProvinceID: "casablanca", ProvinceName: "Касабланка", Server: "RU6"},
	{ArenaID: "04_himmelsdorf", ArenaName: "Химмельсдорф", FrontID: "event_gambit_ru_l_league3", FrontName: "Элитный", PrimeTime: "17:00", ProvinceID: "errachidia", ProvinceName: "Эр-Рашидия", Server: "RU6"},
	{ArenaID: "07_lakeville", ArenaName: "Ласвилль", FrontID: "event_gambit_ru_l_league3", FrontName: "Элитный", PrimeTime: "20:00", ProvinceID: "essaouira", ProvinceName: "Эс-Сувейра", Server: "RU6"},
	{ArenaID: "18_cliff", ArenaName: "Утёс", FrontID: "event_gambit_ru_l_league3", FrontName: "Элитный", PrimeTime: "16:15", ProvinceID: "fes", ProvinceName: "Фес", Server: "RU6"},
	{ArenaID: "10_hills", ArenaName: "Рудники", FrontID: "event_gambit_ru_l_league3", FrontName: "Элитный", PrimeTime: "19:00", ProvinceID: "marrakesh", ProvinceName: "Марракеш", Server: "RU6"},
	{ArenaID: "11_murovanka", ArenaName: "Мурованка", FrontID: "event_gambit_ru_l_league3", FrontName: "Элитный", PrimeTime: "18:00", ProvinceID: "ouarzazate", ProvinceName: "Уарзазат", Server: "RU6"},
	{ArenaID: "36_fishing_bay", ArenaName: "Рыбацкая бухта", FrontID: "event_gambit_ru_l_league3", FrontName: "Элитный", PrimeTime: "17:00", ProvinceID: "rabat", ProvinceName: "Рабат", Server: "RU6"},
	{ArenaID: "28_desert", ArenaName: "Песчаная река", FrontID: "event_gambit_ru_l_league3", FrontName: "Элитный", PrimeTime: "19:15", ProvinceID: "safi", ProvinceName: "Сафи", Server: "RU6"},
	{ArenaID: "29_el_hallouf", ArenaName: "Эль-Халлуф", FrontID: "event_gambit_ru_l_league3", FrontName: "Элитный", PrimeTime: "16:00", ProvinceID: "tangier", ProvinceName: "Танжер", Server: "RU6"},
	{ArenaID: "23_westfeld", ArenaName: "Вестфилд", FrontID: "event_gambit_ru_l_league3", FrontName: "Элитный", PrimeTime: "20:00", ProvinceID: "tigezmirt", ProvinceName: "Тихезмирт", Server: "RU6"},
}

func main() {
	prime := flag.String("prime", "", "prime time HH:MM (по умолчанию ближайший целый час)")
	clanCount := flag.Int("clans", 3, "сколько претендентов взять из базы")
	ownerTag := flag.String("owner", "", "тег владельца, None — провинция свободна")
	provinceID := flag.String("province", "", "province_id из встроенного списка")
	statusFlag := flag.String("status", "", "NOT_STARTED, STARTED, FINISHED или None")
	round := flag.Int("round", 0, "номер текущего раунда, подразумевает STARTED")
	list := flag.Bool("list", false, "показать сегодняшние расписания и выйти")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer dbConn.Close()

	ctx := context.Background()
	clanRepo := repositories.NewPostgresClanRepository(dbConn)
	provinceRepo := repositories.NewPostgresProvinceRepository(dbConn)
	scheduleRepo := repositories.NewPostgresScheduleRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)

	if *list {
		listSchedules(ctx, scheduleRepo, provinceRepo, clanRepo)
		return
	}

	allClans, err := clanRepo.List(ctx)
	if err != nil {
		log.Fatalf("failed to list clans: %v", err)
	}
	if len(allClans) == 0 {
		log.Fatal("no clans in database, request a schedule for a real clan first")
	}

	province := pickProvince(*provinceID)
	now := time.Now().UTC().Truncate(time.Second)
	battlesStartAt := pickBattlesStart(now, *prime)
	if *prime != "" {
		province.PrimeTime = *prime
	} else {
		province.PrimeTime = battlesStartAt.Format("15:04")
	}

	var roundNumber *int
	status := *statusFlag
	if *round > 0 {
		roundNumber = round
		status = string(models.ScheduleStarted)
	} else if status == "None" {
		status = ""
	}

	owner, rest := pickOwner(ctx, clanRepo, allClans, *ownerTag)

	// Претенденты выбираются с шагом 2^(round-1): каждый следующий раунд
	// оставляет половину участников, индексы выживших растут степенями двойки.
	var pretenders []models.Clan
	if status != string(models.ScheduleFinished) {
		stride := 1 << uint(max(*round, 1)-1)
		for i := 0; i < *clanCount && i < len(rest); i += stride {
			pretenders = append(pretenders, rest[i])
		}
	}

	fmt.Println(strings.Repeat("-", 80))
	fmt.Printf("Attacking clans : %s\n", joinTags(pretenders))
	if owner != nil {
		fmt.Printf("Owner           : %s\n", owner.Tag)
	}
	fmt.Println(strings.Repeat("-", 80))

	if err := provinceRepo.GetOrCreate(ctx, nil, &province); err != nil {
		log.Fatalf("failed to create province: %v", err)
	}

	var ownerID *int
	if owner != nil {
		ownerID = &owner.ID
	}
	var schedStatus *models.ScheduleStatus
	if status != "" {
		st := models.ScheduleStatus(status)
		schedStatus = &st
	}
	schedule := &models.Schedule{
		ProvinceRefID:  province.ID,
		Date:           services.BattleDate(now),
		BattlesStartAt: battlesStartAt,
		RoundNumber:    roundNumber,
		Status:         schedStatus,
		IsLanding:      false,
		OwnerID:        ownerID,
	}
	if err := scheduleRepo.Upsert(ctx, nil, schedule); err != nil {
		log.Fatalf("failed to upsert schedule: %v", err)
	}

	if status != string(models.ScheduleFinished) {
		ids := make([]int, len(pretenders))
		for i, clan := range pretenders {
			ids[i] = clan.ID
		}
		if err := scheduleRepo.SetPretenders(ctx, nil, schedule.ID, ids); err != nil {
			log.Fatalf("failed to set pretenders: %v", err)
		}
	}

	if schedStatus != nil {
		matchRound := max(*round, 1)
		combatants := pretenders
		if len(combatants) == 1 && owner != nil {
			combatants = append(combatants, *owner)
		}
		if err := matchRepo.DeleteRound(ctx, nil, schedule.ID, matchRound); err != nil {
			log.Fatalf("failed to reset round: %v", err)
		}
		startAt := battlesStartAt.Add(30 * time.Minute * time.Duration(matchRound-1))
		for i := 0; i < len(combatants); i += 2 {
			match := &models.Match{
				ScheduleID: schedule.ID,
				ClanAID:    combatants[i].ID,
				Round:      matchRound,
				StartAt:    startAt,
			}
			clanBTag := "-"
			if i+1 < len(combatants) {
				match.ClanBID = &combatants[i+1].ID
				clanBTag = combatants[i+1].Tag
			}
			if err := matchRepo.Upsert(ctx, nil, match); err != nil {
				log.Fatalf("failed to create match: %v", err)
			}
			fmt.Printf("ROUND %d: %s vs %s on %s\n", matchRound, combatants[i].Tag, clanBTag, province.ProvinceID)
		}
	}
}

// listSchedules печатает сегодняшние расписания как готовые команды fake,
// чтобы их можно было воспроизвести.
func listSchedules(ctx context.Context, scheduleRepo repositories.ScheduleRepository, provinceRepo repositories.ProvinceRepository, clanRepo repositories.ClanRepository) {
	schedules, err := scheduleRepo.ListByDate(ctx, services.Today())
	if err != nil {
		log.Fatalf("failed to list schedules: %v", err)
	}
	for _, schedule := range schedules {
		province, err := provinceRepo.GetByID(ctx, schedule.ProvinceRefID)
		if err != nil {
			log.Fatalf("failed to load province %d: %v", schedule.ProvinceRefID, err)
		}
		ownerTag := "None"
		if schedule.OwnerID != nil {
			if owner, err := clanRepo.GetByID(ctx, *schedule.OwnerID); err == nil {
				ownerTag = owner.Tag
			}
		}
		status := "None"
		if schedule.Status != nil {
			status = string(*schedule.Status)
		}
		fmt.Printf("go run ./cmd/fake --province %s --prime %s --owner %s --status %s\n",
			province.ProvinceID, province.PrimeTime, ownerTag, status)
	}
}

func pickProvince(provinceID string) models.Province {
	if provinceID == "" {
		return provincesData[rand.Intn(len(provincesData))]
	}
	for _, p := range provincesData {
		if p.ProvinceID == provinceID {
			return p
		}
	}
	log.Fatalf("unknown province %q", provinceID)
	return models.Province{}
}

func pickBattlesStart(now time.Time, prime string) time.Time {
	if prime == "" {
		return now.Truncate(time.Hour).Add(time.Hour)
	}
	parsed, err := time.Parse("15:04", prime)
	if err != nil {
		log.Fatalf("invalid prime time %q: %v", prime, err)
	}
	start := time.Date(now.Year(), now.Month(), now.Day(), parsed.Hour(), parsed.Minute(), 0, 0, time.UTC).Add(time.Hour)
	if start.Before(now) {
		start = start.AddDate(0, 0, 1)
	}
	return start
}

func pickOwner(ctx context.Context, clanRepo repositories.ClanRepository, allClans []models.Clan, ownerTag string) (*models.Clan, []models.Clan) {
	switch ownerTag {
	case "None":
		return nil, allClans
	case "":
		i := rand.Intn(len(allClans))
		owner := allClans[i]
		return &owner, append(append([]models.Clan{}, allClans[:i]...), allClans[i+1:]...)
	default:
		owner, err := clanRepo.GetByTag(ctx, strings.ToUpper(ownerTag))
		if err != nil {
			log.Fatalf("failed to find owner clan %q: %v", ownerTag, err)
		}
		rest := make([]models.Clan, 0, len(allClans))
		for _, clan := range allClans {
			if clan.ID != owner.ID {
				rest = append(rest, clan)
			}
		}
		return owner, rest
	}
}

func joinTags(clans []models.Clan) string {
	tags := make([]string, len(clans))
	for i, clan := range clans {
		tags[i] = clan.Tag
	}
	return strings.Join(tags, " ")
}
