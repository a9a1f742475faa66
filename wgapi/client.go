// battles/wgapi/client.go
//
// Клиент публичного API Wargaming (PAPI/WGN) и неофициального game_api
// глобальной карты. Все ответы кэшируются на короткий срок, т.к. один и
// тот же запрос повторяется для каждого обратившегося клана.
package wgapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var ErrNotFound = errors.New("wgapi: not found")

const (
	defaultPAPIBaseURL    = "https://api.worldoftanks.ru/wot"
	defaultWGNBaseURL     = "https://api.worldoftanks.ru/wgn"
	defaultGameAPIBaseURL = "https://ru.wargaming.net/globalmap/game_api"

	defaultCacheTTL       = 10 * time.Second
	defaultRequestTimeout = 10 * time.Second
)

type Config struct {
	ApplicationID  string
	PAPIBaseURL    string
	WGNBaseURL     string
	GameAPIBaseURL string
	CacheTTL       time.Duration
	Logger         *slog.Logger
}

type Client struct {
	httpClient     *http.Client
	applicationID  string
	papiBaseURL    string
	wgnBaseURL     string
	gameAPIBaseURL string
	cache          *responseCache
	logger         *slog.Logger
}

func NewClient(cfg Config) *Client {
	if cfg.PAPIBaseURL == "" {
		cfg.PAPIBaseURL = defaultPAPIBaseURL
	}
	if cfg.WGNBaseURL == "" {
		cfg.WGNBaseURL = defaultWGNBaseURL
	}
	if cfg.GameAPIBaseURL == "" {
		cfg.GameAPIBaseURL = defaultGameAPIBaseURL
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		httpClient:     &http.Client{Timeout: defaultRequestTimeout},
		applicationID:  cfg.ApplicationID,
		papiBaseURL:    strings.TrimRight(cfg.PAPIBaseURL, "/"),
		wgnBaseURL:     strings.TrimRight(cfg.WGNBaseURL, "/"),
		gameAPIBaseURL: strings.TrimRight(cfg.GameAPIBaseURL, "/"),
		cache:          newResponseCache(cfg.CacheTTL),
		logger:         cfg.Logger,
	}
}

// papiResponse — конверт публичного API: {"status": "ok"|"error", "data": ...}.
type papiResponse struct {
	Status string          `json:"status"`
	Error  *papiError      `json:"error"`
	Data   json.RawMessage `json:"data"`
}

type papiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field"`
	Value   string `json:"value"`
}

func (c *Client) doGet(ctx context.Context, rawURL string) ([]byte, error) {
	if body, ok := c.cache.Get(rawURL); ok {
		return body, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wgapi: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wgapi: unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("wgapi: failed to read response: %w", err)
	}

	c.cache.Set(rawURL, body)
	return body, nil
}

func (c *Client) papiGet(ctx context.Context, baseURL, path string, params url.Values, out interface{}) error {
	params.Set("application_id", c.applicationID)
	rawURL := fmt.Sprintf("%s/%s/?%s", baseURL, path, params.Encode())

	body, err := c.doGet(ctx, rawURL)
	if err != nil {
		return err
	}

	var envelope papiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("wgapi: failed to decode %s response: %w", path, err)
	}
	if envelope.Status != "ok" {
		if envelope.Error != nil {
			return fmt.Errorf("wgapi: %s returned error %d: %s (%s=%s)",
				path, envelope.Error.Code, envelope.Error.Message, envelope.Error.Field, envelope.Error.Value)
		}
		return fmt.Errorf("wgapi: %s returned status %q", path, envelope.Status)
	}
	return json.Unmarshal(envelope.Data, out)
}

// GlobalmapProvinces возвращает данные провинций одного фронта, ключ —
// province_id. Pretenders заполняется объединением attackers и competitors:
// разница между ними для расписания не важна, в новых сезонах API присылает
// только одно из полей.
func (c *Client) GlobalmapProvinces(ctx context.Context, frontID string, provinceIDs []string) (map[string]*ProvinceData, error) {
	params := url.Values{}
	params.Set("front_id", frontID)
	params.Set("province_id", strings.Join(provinceIDs, ","))

	var provinces []*ProvinceData
	if err := c.papiGet(ctx, c.papiBaseURL, "globalmap/provinces", params, &provinces); err != nil {
		return nil, err
	}

	result := make(map[string]*ProvinceData, len(provinces))
	for _, p := range provinces {
		p.Pretenders = append(append([]int{}, p.Competitors...), p.Attackers...)
		result[p.ProvinceID] = p
	}
	return result, nil
}

// GlobalmapClanProvinces возвращает провинции, которыми клан владеет.
func (c *Client) GlobalmapClanProvinces(ctx context.Context, clanID int) ([]ProvinceStub, error) {
	params := url.Values{}
	params.Set("clan_id", strconv.Itoa(clanID))

	var data map[string][]ProvinceStub
	if err := c.papiGet(ctx, c.papiBaseURL, "globalmap/clanprovinces", params, &data); err != nil {
		return nil, err
	}
	return data[strconv.Itoa(clanID)], nil
}

// SearchClan ищет клан по точному тегу.
func (c *Client) SearchClan(ctx context.Context, tag string) (*ClanRecord, error) {
	params := url.Values{}
	params.Set("search", tag)

	var clans []ClanRecord
	if err := c.papiGet(ctx, c.wgnBaseURL, "clans/list", params, &clans); err != nil {
		return nil, err
	}
	for _, clan := range clans {
		if clan.Tag == tag {
			result := clan
			return &result, nil
		}
	}
	return nil, fmt.Errorf("%w: clan %s", ErrNotFound, tag)
}

// ClansInfo возвращает теги кланов по их id (для дозаполнения тегов).
func (c *Client) ClansInfo(ctx context.Context, clanIDs []int) (map[int]string, error) {
	ids := make([]string, 0, len(clanIDs))
	for _, id := range clanIDs {
		ids = append(ids, strconv.Itoa(id))
	}
	params := url.Values{}
	params.Set("clan_id", strings.Join(ids, ","))
	params.Set("fields", "tag")

	var data map[string]*struct {
		Tag string `json:"tag"`
	}
	if err := c.papiGet(ctx, c.wgnBaseURL, "clans/info", params, &data); err != nil {
		return nil, err
	}

	tags := make(map[int]string, len(data))
	for idStr, info := range data {
		if info == nil {
			continue
		}
		id, err := strconv.Atoi(idStr)
		if err != nil {
			continue
		}
		tags[id] = info.Tag
	}
	return tags, nil
}

// ClanBattles — текущие и запланированные бои клана из game_api.
func (c *Client) ClanBattles(ctx context.Context, clanID int) (*ClanBattlesData, error) {
	rawURL := fmt.Sprintf("%s/clan/%d/battles", c.gameAPIBaseURL, clanID)

	body, err := c.doGet(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	var data ClanBattlesData
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("wgapi: failed to decode clan battles: %w", err)
	}
	return &data, nil
}

// TournamentInfo — пары текущего раунда из game_api, когда публичный API
// не отдаёт претендентов.
func (c *Client) TournamentInfo(ctx context.Context, provinceID string) (*TournamentInfo, error) {
	rawURL := fmt.Sprintf("%s/tournament_info?alias=%s", c.gameAPIBaseURL, url.QueryEscape(provinceID))

	body, err := c.doGet(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	var info TournamentInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("wgapi: failed to decode tournament info: %w", err)
	}
	return &info, nil
}
