package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/footballdb/football-api/internal/config"
	"github.com/footballdb/football-api/internal/testutil"
)

const testToken = "abc123"

func newSQLiteRouter(t *testing.T, cfg config.Config) chi.Router {
	t.Helper()
	st := testutil.NewTestStore(t)
	testutil.SeedToken(t, st, testToken)
	return New(st, cfg, "test", "none", "today").Router()
}

// createdID reads the new record id from the Location of a 201 response.
func createdID(t *testing.T, resp *httptest.ResponseRecorder) int64 {
	t.Helper()
	location, err := url.Parse(resp.Header().Get("Location"))
	require.NoError(t, err)
	id, err := strconv.ParseInt(location.Query().Get("id"), 10, 64)
	require.NoError(t, err, "Location %q", resp.Header().Get("Location"))
	return id
}

func createTeam(t *testing.T, router http.Handler, name string, ranking int) int64 {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"location":"Somewhere","ranking":%d,"year_founded":1900}`, name, ranking)
	resp := serve(t, router, http.MethodPost, "/teams", body, testToken)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return createdID(t, resp)
}

func createPlayer(t *testing.T, router http.Handler, name string) int64 {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"nationality":"Dutch","birth_year":1990,"matches_played":10,`+
		`"goals_scored":4,"ranking":7,"position":"Forward"}`, name)
	resp := serve(t, router, http.MethodPost, "/players", body, testToken)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return createdID(t, resp)
}

func TestTeams_CreateThenGet(t *testing.T) {
	router := newSQLiteRouter(t, testConfig())

	resp := serve(t, router, http.MethodPost, "/teams",
		`{"name":"Ajax","location":"Amsterdam","ranking":1,"year_founded":1900}`, testToken)
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.JSONEq(t, `{"message":"The team was successfully registered"}`, resp.Body.String())
	id := createdID(t, resp)
	assert.Equal(t, fmt.Sprintf("/teams?id=%d", id), resp.Header().Get("Location"))

	resp = serve(t, router, http.MethodGet, fmt.Sprintf("/teams?id=%d", id), "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, map[string]any{
		"id":           float64(id),
		"name":         "Ajax",
		"location":     "Amsterdam",
		"ranking":      float64(1),
		"year_founded": float64(1900),
	}, decodeMap(t, resp))

	resp = serve(t, router, http.MethodGet, fmt.Sprintf("/teams/%d", id), "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Ajax", decodeMap(t, resp)["name"])
}

func TestPlayers_Patch(t *testing.T) {
	router := newSQLiteRouter(t, testConfig())
	id := createPlayer(t, router, "Johan")

	resp := serve(t, router, http.MethodPatch, "/players",
		fmt.Sprintf(`{"id":%d,"goals_scored":5,"shirt":"14"}`, id), testToken)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, map[string]any{"success": true, "message": "Player updated."}, decodeMap(t, resp))

	resp = serve(t, router, http.MethodGet, fmt.Sprintf("/players/%d", id), "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	player := decodeMap(t, resp)
	assert.Equal(t, float64(5), player["goals_scored"])
	assert.Equal(t, float64(10), player["matches_played"])
	assert.Equal(t, "Johan", player["name"])
}

func TestPlayers_PatchUnknownID(t *testing.T) {
	router := newSQLiteRouter(t, testConfig())

	resp := serve(t, router, http.MethodPatch, "/players", `{"id":424242,"ranking":1}`, testToken)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, map[string]any{"error": "Player not found."}, decodeMap(t, resp))
}

func TestTeams_DeleteUnknownID(t *testing.T) {
	router := newSQLiteRouter(t, testConfig())

	resp := serve(t, router, http.MethodDelete, "/teams?id=999999", "", testToken)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, map[string]any{"error": "No team found with this ID"}, decodeMap(t, resp))
}

func TestTeams_DeleteTwice(t *testing.T) {
	router := newSQLiteRouter(t, testConfig())
	id := createTeam(t, router, "Feyenoord", 2)

	resp := serve(t, router, http.MethodDelete, fmt.Sprintf("/teams/%d", id), "", testToken)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, map[string]any{"success": true, "message": "The team was successfully deleted!"}, decodeMap(t, resp))

	resp = serve(t, router, http.MethodDelete, fmt.Sprintf("/teams?id=%d", id), "", testToken)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = serve(t, router, http.MethodGet, fmt.Sprintf("/teams?id=%d", id), "", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestTeams_DeleteRequiresID(t *testing.T) {
	router := newSQLiteRouter(t, testConfig())

	resp := serve(t, router, http.MethodDelete, "/teams", "", testToken)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Team's ID is required.", decodeMap(t, resp)["error"])

	resp = serve(t, router, http.MethodDelete, "/teams?id=-3", "", testToken)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Id is not valid!", decodeMap(t, resp)["error"])
}

func TestTeams_Replace(t *testing.T) {
	router := newSQLiteRouter(t, testConfig())
	id := createTeam(t, router, "PSV", 3)
	full := `{"name":"PSV Eindhoven","location":"Eindhoven","ranking":2,"year_founded":1913}`

	resp := serve(t, router, http.MethodPut, fmt.Sprintf("/teams/%d", id), full, testToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, map[string]any{"success": true, "message": "Team updated."}, decodeMap(t, resp))

	// The same values again still match the row.
	resp = serve(t, router, http.MethodPut, fmt.Sprintf("/teams/%d", id), full, testToken)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = serve(t, router, http.MethodGet, fmt.Sprintf("/teams/%d", id), "", "")
	team := decodeMap(t, resp)
	assert.Equal(t, "PSV Eindhoven", team["name"])
	assert.Equal(t, float64(1913), team["year_founded"])

	resp = serve(t, router, http.MethodPut, "/teams", `{"id":1,"name":"PSV"}`, testToken)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Missing required fields.", decodeMap(t, resp)["error"])

	resp = serve(t, router, http.MethodPut, "/teams",
		`{"id":999999,"name":"X","location":"Y","ranking":1,"year_founded":1900}`, testToken)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestTeams_PathIDConflict(t *testing.T) {
	router := newSQLiteRouter(t, testConfig())
	id := createTeam(t, router, "AZ", 4)

	resp := serve(t, router, http.MethodPatch, fmt.Sprintf("/teams/%d", id),
		fmt.Sprintf(`{"id":%d,"ranking":9}`, id+1), testToken)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "The id in the body does not match the id in the path.", decodeMap(t, resp)["error"])

	resp = serve(t, router, http.MethodPatch, fmt.Sprintf("/teams/%d", id), `{"ranking":9}`, testToken)
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestTeams_CreateValidation(t *testing.T) {
	router := newSQLiteRouter(t, testConfig())

	tests := []struct {
		name string
		body string
		code int
		want string
	}{
		{"missing fields", `{"name":"Ajax"}`, http.StatusBadRequest, "Incomplete information has been submitted"},
		{"null counts as absent", `{"name":"Ajax","location":null,"ranking":1,"year_founded":1900}`, http.StatusBadRequest, "Incomplete information has been submitted"},
		{"wrong type", `{"name":"Ajax","location":"A","ranking":"first","year_founded":1900}`, http.StatusBadRequest, "Field 'ranking' must be an integer."},
		{"rule", `{"name":"Ajax","location":"A","ranking":1,"year_founded":1200}`, http.StatusBadRequest, "Field 'year_founded' failed the 'gte' rule."},
		{"malformed json", `{"name":`, http.StatusBadRequest, "Invalid JSON body."},
		{"array body", `[1,2]`, http.StatusBadRequest, "Invalid JSON body."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := serve(t, router, http.MethodPost, "/teams", tc.body, testToken)
			assert.Equal(t, tc.code, resp.Code)
			assert.Equal(t, map[string]any{"error": tc.want}, decodeMap(t, resp))
		})
	}
}

func TestCreate_BodyTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBodyBytes = 64
	router := newSQLiteRouter(t, cfg)

	body := `{"name":"` + strings.Repeat("x", 200) + `","location":"A","ranking":1,"year_founded":1900}`
	resp := serve(t, router, http.MethodPost, "/teams", body, testToken)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
	assert.Equal(t, "Request body too large.", decodeMap(t, resp)["error"])
}

func TestPlayerTeams_ForeignKeys(t *testing.T) {
	router := newSQLiteRouter(t, testConfig())
	playerID := createPlayer(t, router, "Marco")
	teamID := createTeam(t, router, "Milan", 1)

	resp := serve(t, router, http.MethodPost, "/player_teams",
		fmt.Sprintf(`{"player_id":%d,"team_id":%d}`, playerID, teamID), testToken)
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "The player_team was successfully registered.", decodeMap(t, resp)["message"])

	resp = serve(t, router, http.MethodPost, "/player_teams",
		fmt.Sprintf(`{"player_id":%d,"team_id":777}`, playerID), testToken)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Referenced record does not exist.", decodeMap(t, resp)["error"])

	resp = serve(t, router, http.MethodPatch, "/player_teams", `{"id":1}`, testToken)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "No fields submitted for update", decodeMap(t, resp)["error"])

	resp = serve(t, router, http.MethodDelete, "/player_teams", "", testToken)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Id is not sent", decodeMap(t, resp)["error"])
}

func TestTeams_ListPagination(t *testing.T) {
	router := newSQLiteRouter(t, testConfig())
	for i := 1; i <= 3; i++ {
		createTeam(t, router, fmt.Sprintf("Team %d", i), i)
	}

	resp := serve(t, router, http.MethodGet, "/teams?limit=2", "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	page := decodeMap(t, resp)
	assert.Equal(t, float64(3), page["count"])
	assert.Nil(t, page["previous"])
	assert.Equal(t, "http://localhost:8080/teams?limit=2&offset=2", page["next"])
	result := page["result"].([]any)
	require.Len(t, result, 2)
	assert.Equal(t, "Team 1", result[0].(map[string]any)["name"])
	assert.Equal(t, "Team 2", result[1].(map[string]any)["name"])

	resp = serve(t, router, http.MethodGet, "/teams?limit=2&offset=2", "", "")
	page = decodeMap(t, resp)
	assert.Equal(t, "http://localhost:8080/teams?limit=2&offset=0", page["previous"])
	assert.Nil(t, page["next"])
	assert.Len(t, page["result"].([]any), 1)

	resp = serve(t, router, http.MethodGet, "/teams?limit=abc&offset=-4", "", "")
	page = decodeMap(t, resp)
	assert.Len(t, page["result"].([]any), 3)
	assert.Nil(t, page["previous"])
	assert.Nil(t, page["next"])

	resp = serve(t, router, http.MethodGet, "/teams?offset=50", "", "")
	page = decodeMap(t, resp)
	assert.Equal(t, float64(3), page["count"])
	assert.Empty(t, page["result"])
}

func TestPlayers_EmptyList(t *testing.T) {
	router := newSQLiteRouter(t, testConfig())

	resp := serve(t, router, http.MethodGet, "/players", "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"count":0,"previous":null,"next":null,"result":[]}`, resp.Body.String())
}

func TestTeams_ListOffsetAtMaxInt(t *testing.T) {
	router := newSQLiteRouter(t, testConfig())
	createTeam(t, router, "Ajax", 1)

	resp := serve(t, router, http.MethodGet, "/teams?offset=9223372036854775807", "", "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	page := decodeMap(t, resp)
	assert.Equal(t, float64(1), page["count"])
	assert.Nil(t, page["next"])
	assert.Equal(t, "http://localhost:8080/teams?limit=10&offset=9223372036854775797", page["previous"])
	assert.Empty(t, page["result"])
}

func TestTeams_RankingOutOfInt4Range(t *testing.T) {
	router := newSQLiteRouter(t, testConfig())
	id := createTeam(t, router, "Ajax", 1)

	resp := serve(t, router, http.MethodPatch, "/teams", fmt.Sprintf(`{"id":%d,"ranking":3000000000}`, id), testToken)
	assert.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	assert.Contains(t, decodeMap(t, resp)["error"], "ranking")
}
