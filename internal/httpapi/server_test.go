package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrition-coach/internal/coach"
	"nutrition-coach/internal/grocery"
	"nutrition-coach/internal/intake"
	"nutrition-coach/internal/plan"
	"nutrition-coach/internal/session"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := session.NewStore(0)
	t.Cleanup(store.Close)
	pipeline := coach.NewPipeline(
		store,
		intake.NewRuleExtractor(),
		plan.NewOfflineGenerator(),
		grocery.NewCheckout(nil, "https://groceries.example.com/cart"),
		nil,
	)
	server := httptest.NewServer(NewServer(pipeline).Handler())
	t.Cleanup(server.Close)
	return server
}

func postStage(t *testing.T, server *httptest.Server, stage int, body string) (int, map[string]json.RawMessage) {
	t.Helper()
	resp, err := http.Post(server.URL+"/stage/"+strconv.Itoa(stage), "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func rawString(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var s string
	require.NoError(t, json.Unmarshal(raw, &s))
	return s
}

func TestStageFlow(t *testing.T) {
	server := newTestServer(t)

	status, body := postStage(t, server, 1, `{"message":"I'm a 30 year old female, 165cm, 60kg, moderate activity, want to lose weight"}`)
	require.Equal(t, http.StatusOK, status)
	sessionID := rawString(t, body["session_id"])
	assert.NotEmpty(t, sessionID, "server mints a session id when none is given")
	assert.Equal(t, `"prefs"`, string(body["stage"]))
	assert.Equal(t, "1546", string(body["target_calories"]))

	status, body = postStage(t, server, 2, `{"session_id":"`+sessionID+`","message":"overnight oats, greek yogurt, chicken stir fry, salmon bowls, lentil curry, allergic to nuts"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, `"planning"`, string(body["stage"]))

	status, body = postStage(t, server, 3, `{"session_id":"`+sessionID+`"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, `"done"`, string(body["stage"]))
	assert.Contains(t, string(body["checkout_url"]), "groceries.example.com")
	assert.NotEmpty(t, body["plan"])
	assert.NotEmpty(t, body["shopping_list"])
}

func TestStageViolationMapsToConflict(t *testing.T) {
	server := newTestServer(t)

	status, body := postStage(t, server, 3, `{"session_id":"fresh"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, `"stage_violation"`, string(body["kind"]))
}

func TestMissingMessageIsRejected(t *testing.T) {
	server := newTestServer(t)

	status, body := postStage(t, server, 1, `{"session_id":"s1"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, `"bad_request"`, string(body["kind"]))
}

func TestIncompleteIntakeReportsMissing(t *testing.T) {
	server := newTestServer(t)

	status, body := postStage(t, server, 1, `{"session_id":"s1","message":"I'm 30 years old and 60kg"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, `"intake"`, string(body["stage"]))
	assert.Contains(t, string(body["missing"]), "sex")
}

func TestDeleteSessionResets(t *testing.T) {
	server := newTestServer(t)

	status, _ := postStage(t, server, 1, `{"session_id":"s1","message":"I'm a 30 year old female, 165cm, 60kg, moderate activity, want to lose weight"}`)
	require.Equal(t, http.StatusOK, status)

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/sessions/s1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(server.URL + "/sessions/s1")
	require.NoError(t, err)
	defer resp.Body.Close()
	var state struct {
		Stage   json.RawMessage            `json:"stage"`
		Profile map[string]json.RawMessage `json:"profile"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.Equal(t, "0", string(state.Stage))
}

func TestHealth(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
