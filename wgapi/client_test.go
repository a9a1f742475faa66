package wgapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func papiOK(t *testing.T, w http.ResponseWriter, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	_, _ = fmt.Fprintf(w, `{"status":"ok","data":%s}`, raw)
}

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		ApplicationID:  "demo",
		PAPIBaseURL:    baseURL,
		WGNBaseURL:     baseURL,
		GameAPIBaseURL: baseURL,
	})
}

func TestGlobalmapProvincesMergesPretenders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "demo", r.URL.Query().Get("application_id"))
		assert.Equal(t, "front1", r.URL.Query().Get("front_id"))
		papiOK(t, w, []map[string]interface{}{{
			"front_id":         "front1",
			"province_id":      "agadir",
			"prime_time":       "19:15",
			"battles_start_at": "2017-12-13T19:15:00",
			"attackers":        []int{1, 2},
			"competitors":      []int{3},
			"status":           "NOT_STARTED",
		}})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	provinces, err := client.GlobalmapProvinces(context.Background(), "front1", []string{"agadir"})
	require.NoError(t, err)

	p, ok := provinces["agadir"]
	require.True(t, ok)
	assert.ElementsMatch(t, []int{1, 2, 3}, p.Pretenders)
	assert.Equal(t, time.Date(2017, 12, 13, 19, 15, 0, 0, time.UTC), p.BattlesStartAt.Time)
}

func TestPAPIErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"status":"error","error":{"code":407,"message":"INVALID_APPLICATION_ID","field":"application_id","value":"demo"}}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GlobalmapProvinces(context.Background(), "front1", []string{"agadir"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_APPLICATION_ID")
}

func TestSearchClanExactMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Поиск по подстроке возвращает и похожие теги.
		papiOK(t, w, []map[string]interface{}{
			{"clan_id": 10, "tag": "AAAB"},
			{"clan_id": 11, "tag": "AAA"},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	record, err := client.SearchClan(context.Background(), "AAA")
	require.NoError(t, err)
	assert.Equal(t, 11, record.ClanID)

	_, err = client.SearchClan(context.Background(), "ZZZ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResponsesAreCached(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		_, _ = fmt.Fprint(w, `{"battles":[],"planned_battles":[{"front_id":"front1","province_id":"agadir"}]}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	for i := 0; i < 3; i++ {
		data, err := client.ClanBattles(context.Background(), 42)
		require.NoError(t, err)
		require.Len(t, data.PlannedBattles, 1)
	}
	assert.Equal(t, 1, requests)
}

func TestTimeUnmarshal(t *testing.T) {
	var ts Time
	require.NoError(t, json.Unmarshal([]byte(`"2017-12-13T18:15:00"`), &ts))
	assert.Equal(t, time.Date(2017, 12, 13, 18, 15, 0, 0, time.UTC), ts.Time)

	require.NoError(t, json.Unmarshal([]byte(`"2017-12-13T18:15:00+03:00"`), &ts))
	assert.Equal(t, time.Date(2017, 12, 13, 15, 15, 0, 0, time.UTC), ts.Time)

	assert.Error(t, json.Unmarshal([]byte(`"13.12.2017"`), &ts))
}
