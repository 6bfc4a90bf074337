package router_test

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-booking/pkg/common/config"
	"tour-booking/pkg/common/email"
	"tour-booking/pkg/core/store"
	usermodel "tour-booking/pkg/core/user/model"
	"tour-booking/pkg/web/router"
)

type outbox struct {
	mu   sync.Mutex
	sent []email.Message
}

func (o *outbox) Send(_ context.Context, msg email.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

type testAPI struct {
	h  *server.Hertz
	st *store.Store
}

func newTestAPI(t *testing.T, env string, mutate ...func(*config.Config)) *testAPI {
	t.Helper()
	cfg := config.Default()
	cfg.Env = env
	cfg.Middleware.JWT.Secret = "router-test-secret-0123456789"
	cfg.Auth.BcryptCost = 4
	for _, m := range mutate {
		m(&cfg)
	}

	st := store.NewMemory()
	h := server.New()
	require.NoError(t, router.RegisterAPIs(h, &cfg, st, &outbox{}))
	return &testAPI{h: h, st: st}
}

func (a *testAPI) do(method, url, body, token string) *ut.ResponseRecorder {
	headers := []ut.Header{{Key: "Content-Type", Value: "application/json"}}
	if token != "" {
		headers = append(headers, ut.Header{Key: "Authorization", Value: "Bearer " + token})
	}
	var b *ut.Body
	if body != "" {
		b = &ut.Body{Body: bytes.NewBufferString(body), Len: len(body)}
	}
	return ut.PerformRequest(a.h.Engine, method, url, b, headers...)
}

func decodeBody(t *testing.T, w *ut.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, sonic.Unmarshal(w.Result().Body(), &body))
	return body
}

func dataOf(t *testing.T, w *ut.ResponseRecorder, key string) map[string]any {
	t.Helper()
	data, ok := decodeBody(t, w)["data"].(map[string]any)
	require.True(t, ok)
	doc, ok := data[key].(map[string]any)
	require.True(t, ok)
	return doc
}

// signup 返回新用户的令牌与标识符
func (a *testAPI) signup(t *testing.T, name, addr string) (string, string) {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"email":%q,"password":"pass1234","passwordConfirm":"pass1234"}`, name, addr)
	w := a.do("POST", "/api/v1/users/signup", body, "")
	require.Equal(t, 201, w.Result().StatusCode(), string(w.Result().Body()))
	resp := decodeBody(t, w)
	user := resp["data"].(map[string]any)["user"].(map[string]any)
	return resp["token"].(string), user["id"].(string)
}

func (a *testAPI) login(t *testing.T, addr, password string) string {
	t.Helper()
	w := a.do("POST", "/api/v1/users/login", fmt.Sprintf(`{"email":%q,"password":%q}`, addr, password), "")
	require.Equal(t, 200, w.Result().StatusCode(), string(w.Result().Body()))
	return decodeBody(t, w)["token"].(string)
}

func (a *testAPI) staff(t *testing.T, role usermodel.Role, addr string) string {
	t.Helper()
	u := &usermodel.User{Name: string(role), Email: addr, Role: role, Active: true}
	require.NoError(t, u.SetPassword("pass1234", 4, time.Now()))
	require.NoError(t, a.st.Users.Insert(context.Background(), u))
	return a.login(t, addr, "pass1234")
}

const forestHiker = `{
	"name": "The Forest Hiker",
	"duration": 5,
	"maxGroupSize": 25,
	"difficulty": "easy",
	"price": 397,
	"summary": "Breathtaking hike through the Canadian Banff National Park",
	"imageCover": "tour-1-cover.jpg",
	"startLocation": {"coordinates": [-115.570154, 51.178456], "address": "224 Banff Ave, Banff, AB, Canada"}
}`

func TestHealthCheck(t *testing.T) {
	api := newTestAPI(t, config.EnvDevelopment)

	w := api.do("GET", "/health", "", "")
	assert.Equal(t, 200, w.Result().StatusCode())
	assert.Equal(t, "healthy", decodeBody(t, w)["status"])
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t, config.EnvDevelopment)

	t.Run("signup issues a token and cookie", func(t *testing.T) {
		body := `{"name":"Leo Gillespie","email":"Leo@Example.io","password":"pass1234","passwordConfirm":"pass1234"}`
		w := api.do("POST", "/api/v1/users/signup", body, "")
		require.Equal(t, 201, w.Result().StatusCode())

		resp := decodeBody(t, w)
		assert.Equal(t, "success", resp["status"])
		assert.NotEmpty(t, resp["token"])
		user := resp["data"].(map[string]any)["user"].(map[string]any)
		assert.Equal(t, "leo@example.io", user["email"])
		assert.Equal(t, "user", user["role"])
		assert.NotContains(t, user, "password")
		assert.NotContains(t, user, "passwordHash")
		assert.NotContains(t, user, "active")

		cookie := protocol.AcquireCookie()
		defer protocol.ReleaseCookie(cookie)
		cookie.SetKey("jwt")
		require.True(t, w.Result().Header.Cookie(cookie))
		assert.Equal(t, resp["token"], string(cookie.Value()))
		assert.True(t, cookie.HTTPOnly())
	})

	t.Run("signup validation is not rewritten in development", func(t *testing.T) {
		w := api.do("POST", "/api/v1/users/signup", `{"name":"X","email":"nope","password":"pass1234","passwordConfirm":"other123"}`, "")
		assert.Equal(t, 500, w.Result().StatusCode())
		assert.Contains(t, decodeBody(t, w)["message"], "Please provide a valid email.")
	})

	t.Run("login", func(t *testing.T) {
		w := api.do("POST", "/api/v1/users/login", `{"email":"leo@example.io"}`, "")
		assert.Equal(t, 400, w.Result().StatusCode())
		assert.Equal(t, "Please provide email and password!", decodeBody(t, w)["message"])

		w = api.do("POST", "/api/v1/users/login", `{"email":"leo@example.io","password":"wrong-pass"}`, "")
		assert.Equal(t, 401, w.Result().StatusCode())
		assert.Equal(t, "Incorrect email or password", decodeBody(t, w)["message"])

		token := api.login(t, "leo@example.io", "pass1234")
		w = api.do("GET", "/api/v1/users/me", "", token)
		assert.Equal(t, 200, w.Result().StatusCode())
		assert.Equal(t, "Leo Gillespie", dataOf(t, w, "data")["name"])
	})

	t.Run("protected routes", func(t *testing.T) {
		w := api.do("GET", "/api/v1/users/me", "", "")
		assert.Equal(t, 401, w.Result().StatusCode())
		assert.Equal(t, "Your are not logged in! Please log in to get access", decodeBody(t, w)["message"])

		token := api.login(t, "leo@example.io", "pass1234")
		w = api.do("GET", "/api/v1/users", "", token)
		assert.Equal(t, 403, w.Result().StatusCode())
	})

	t.Run("update password reissues a token", func(t *testing.T) {
		token := api.login(t, "leo@example.io", "pass1234")
		body := `{"currentPassword":"pass1234","password":"newpass99","passwordConfirm":"newpass99"}`
		w := api.do("PATCH", "/api/v1/users/updateMyPassword", body, token)
		require.Equal(t, 200, w.Result().StatusCode())

		fresh := decodeBody(t, w)["token"].(string)
		w = api.do("GET", "/api/v1/users/me", "", fresh)
		assert.Equal(t, 200, w.Result().StatusCode())
		api.login(t, "leo@example.io", "newpass99")
	})

	t.Run("deleteMe hides the account", func(t *testing.T) {
		token, _ := api.signup(t, "Short Lived", "gone@example.io")
		w := api.do("DELETE", "/api/v1/users/deleteMe", "", token)
		assert.Equal(t, 204, w.Result().StatusCode())

		w = api.do("GET", "/api/v1/users/me", "", token)
		assert.Equal(t, 401, w.Result().StatusCode())
	})

	t.Run("unknown route", func(t *testing.T) {
		w := api.do("GET", "/api/v1/bookings", "", "")
		assert.Equal(t, 404, w.Result().StatusCode())
		assert.Equal(t, "Can't find /api/v1/bookings on this server!", decodeBody(t, w)["message"])
	})
}

func TestToursAndReviews(t *testing.T) {
	api := newTestAPI(t, config.EnvProduction)
	admin := api.staff(t, usermodel.RoleAdmin, "admin@example.io")
	userToken, userID := api.signup(t, "Laura Wilson", "laura@example.io")

	var tourID string

	t.Run("only admins and lead guides create tours", func(t *testing.T) {
		w := api.do("POST", "/api/v1/tours", forestHiker, userToken)
		assert.Equal(t, 403, w.Result().StatusCode())

		w = api.do("POST", "/api/v1/tours", forestHiker, admin)
		require.Equal(t, 201, w.Result().StatusCode(), string(w.Result().Body()))
		tour := dataOf(t, w, "data")
		tourID = tour["id"].(string)
		assert.Equal(t, "the-forest-hiker", tour["slug"])
		assert.Equal(t, 4.5, tour["ratingsAverage"])
		assert.InDelta(t, 5.0/7, tour["durationWeeks"], 1e-9)
	})

	t.Run("validation and duplicates", func(t *testing.T) {
		w := api.do("POST", "/api/v1/tours", `{"name":"Short"}`, admin)
		assert.Equal(t, 400, w.Result().StatusCode())
		assert.Contains(t, decodeBody(t, w)["message"], "Invalid input data.")

		w = api.do("POST", "/api/v1/tours", forestHiker, admin)
		assert.Equal(t, 400, w.Result().StatusCode())
		assert.Contains(t, decodeBody(t, w)["message"], "Duplicate field value")
	})

	t.Run("read tours", func(t *testing.T) {
		w := api.do("GET", "/api/v1/tours?price[lte]=500&sort=-price", "", "")
		require.Equal(t, 200, w.Result().StatusCode())
		assert.EqualValues(t, 1, decodeBody(t, w)["results"])

		w = api.do("GET", "/api/v1/tours?price[lt]=100", "", "")
		assert.EqualValues(t, 0, decodeBody(t, w)["results"])

		w = api.do("GET", "/api/v1/tours/top-5-cheap", "", "")
		require.Equal(t, 200, w.Result().StatusCode())
		docs := decodeBody(t, w)["data"].(map[string]any)["data"].([]any)
		require.Len(t, docs, 1)
		top := docs[0].(map[string]any)
		assert.Equal(t, "The Forest Hiker", top["name"])
		assert.NotContains(t, top, "duration")

		w = api.do("GET", "/api/v1/tours/tour-stats", "", "")
		assert.Equal(t, 200, w.Result().StatusCode())

		w = api.do("GET", "/api/v1/tours/tours-within/400/center/51.1,-115.5/unit/mi", "", "")
		require.Equal(t, 200, w.Result().StatusCode())
		assert.EqualValues(t, 1, decodeBody(t, w)["results"])
	})

	t.Run("lookup errors", func(t *testing.T) {
		w := api.do("GET", "/api/v1/tours/abc", "", "")
		assert.Equal(t, 400, w.Result().StatusCode())
		assert.Equal(t, "Invalid id: abc.", decodeBody(t, w)["message"])

		w = api.do("GET", "/api/v1/tours/0b4f8a4e-5e2b-4c55-9d7c-3f51d3a0c6b1", "", "")
		assert.Equal(t, 404, w.Result().StatusCode())
		assert.Equal(t, "No document found with that ID", decodeBody(t, w)["message"])
	})

	t.Run("monthly plan is restricted", func(t *testing.T) {
		w := api.do("GET", "/api/v1/tours/monthly-plan/2021", "", userToken)
		assert.Equal(t, 403, w.Result().StatusCode())

		w = api.do("GET", "/api/v1/tours/monthly-plan/2021", "", admin)
		assert.Equal(t, 200, w.Result().StatusCode())
	})

	t.Run("nested reviews update tour ratings", func(t *testing.T) {
		url := "/api/v1/tours/" + tourID + "/reviews"
		w := api.do("POST", url, `{"review":"Amazing views all week","rating":4}`, admin)
		assert.Equal(t, 403, w.Result().StatusCode())

		w = api.do("POST", url, `{"review":"Amazing views all week","rating":4}`, userToken)
		require.Equal(t, 201, w.Result().StatusCode(), string(w.Result().Body()))
		review := dataOf(t, w, "data")
		assert.Equal(t, tourID, review["tour"])
		assert.Equal(t, userID, review["user"])

		w = api.do("POST", url, `{"review":"Second thoughts","rating":2}`, userToken)
		assert.Equal(t, 400, w.Result().StatusCode())
		assert.Contains(t, decodeBody(t, w)["message"], "Duplicate field value")

		w = api.do("GET", url, "", userToken)
		require.Equal(t, 200, w.Result().StatusCode())
		assert.EqualValues(t, 1, decodeBody(t, w)["results"])

		w = api.do("GET", "/api/v1/tours/"+tourID, "", "")
		require.Equal(t, 200, w.Result().StatusCode())
		tour := dataOf(t, w, "data")
		assert.EqualValues(t, 1, tour["ratingsQuantity"])
		assert.EqualValues(t, 4, tour["ratingsAverage"])
		assert.Len(t, tour["reviews"], 1)
	})

	t.Run("delete tour", func(t *testing.T) {
		w := api.do("DELETE", "/api/v1/tours/"+tourID, "", admin)
		assert.Equal(t, 204, w.Result().StatusCode())

		w = api.do("GET", "/api/v1/tours/"+tourID, "", "")
		assert.Equal(t, 404, w.Result().StatusCode())
	})
}

func TestRateLimit(t *testing.T) {
	api := newTestAPI(t, config.EnvProduction, func(cfg *config.Config) {
		cfg.Middleware.RateLimit.Rate = 2
	})

	for i := 0; i < 2; i++ {
		w := api.do("GET", "/api/v1/tours", "", "")
		require.Equal(t, 200, w.Result().StatusCode())
	}
	w := api.do("GET", "/api/v1/tours", "", "")
	assert.Equal(t, 429, w.Result().StatusCode())

	// 限流只作用于 /api
	w = api.do("GET", "/health", "", "")
	assert.Equal(t, 200, w.Result().StatusCode())
}

func TestPopulatedFieldsAreNotWritable(t *testing.T) {
	api := newTestAPI(t, config.EnvProduction)
	admin := api.staff(t, usermodel.RoleAdmin, "admin@example.io")
	userToken, _ := api.signup(t, "Laura Wilson", "laura@example.io")

	body := `{
		"name": "The Snow Adventurer",
		"duration": 4,
		"maxGroupSize": 10,
		"difficulty": "difficult",
		"price": 997,
		"imageCover": "tour-3-cover.jpg",
		"reviews": [{"review": "Injected", "rating": 5}],
		"durationWeeks": 99
	}`
	w := api.do("POST", "/api/v1/tours", body, admin)
	require.Equal(t, 201, w.Result().StatusCode(), string(w.Result().Body()))
	tour := dataOf(t, w, "data")
	tourID := tour["id"].(string)
	assert.NotContains(t, tour, "reviews")
	assert.InDelta(t, 4.0/7, tour["durationWeeks"], 1e-9)

	w = api.do("PATCH", "/api/v1/tours/"+tourID, `{"reviews":[{"review":"Again","rating":1}]}`, admin)
	require.Equal(t, 200, w.Result().StatusCode())
	assert.NotContains(t, dataOf(t, w, "data"), "reviews")

	w = api.do("GET", "/api/v1/tours", "", "")
	require.Equal(t, 200, w.Result().StatusCode())
	docs := decodeBody(t, w)["data"].(map[string]any)["data"].([]any)
	require.Len(t, docs, 1)
	assert.NotContains(t, docs[0], "reviews")

	body = `{"review":"Cold but worth it","rating":5,"author":{"id":"x","name":"Someone Else"}}`
	w = api.do("POST", "/api/v1/tours/"+tourID+"/reviews", body, userToken)
	require.Equal(t, 201, w.Result().StatusCode(), string(w.Result().Body()))
	review := dataOf(t, w, "data")
	author, _ := review["author"].(map[string]any)
	assert.NotEqual(t, "Someone Else", author["name"])
}
