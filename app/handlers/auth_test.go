package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffeeshop/account-service/app/dto"
	"github.com/coffeeshop/account-service/app/logger"
	"github.com/coffeeshop/account-service/app/models"
	"github.com/coffeeshop/account-service/app/services"
	"github.com/coffeeshop/account-service/app/store"
)

/*
API Test Cases (full router, in-memory stores):

1. TestAPI_SignupFlow
   - signup returns 201 with the user payload, password absent
   - duplicate signup returns 400 conflict
   - login before verification fails with the generic message
   - verify with a wrong code returns 400 and counts the attempt
   - verify with the right code returns 200 "email confirmed successfully"
   - login then succeeds and returns a bearer token pair
   - refresh returns a fresh access token
   - /users/me works with the access token
   - /users/ as a plain USER is 403

2. TestAPI_Signup_ValidationErrors
   - malformed body, bad email, short password and a missing or mismatched
     password_confirm are 400

3. TestAPI_Resend_EchoesPayload
   - resend returns the submitted payload for absent and present users

4. TestAPI_Verify_RateLimitSurfaces
   - resend past the cap surfaces 429 with mm:ss

5. TestAPI_AdminUserEndpoints
   - list with pagination links, get by id, delete returns 204

6. TestAPI_UpdateMe
   - PATCH /users/ updates the caller's own record; /users/me aliases it
*/

// memUsers is a stateful in-memory Users store.
type memUsers struct {
	byID   map[int64]*models.User
	nextID int64
}

func newMemUsers() *memUsers {
	return &memUsers{byID: make(map[int64]*models.User)}
}

func (m *memUsers) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memUsers) Create(ctx context.Context, user *models.User) error {
	m.nextID++
	user.ID = m.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	m.byID[user.ID] = &cp
	return nil
}

func (m *memUsers) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	ids := make([]int64, 0, len(m.byID))
	for id := range m.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []models.User
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		out = append(out, *m.byID[ids[i]])
	}
	return out, nil
}

func (m *memUsers) Count(ctx context.Context) (int, error) { return len(m.byID), nil }

func (m *memUsers) Update(ctx context.Context, user *models.User) error {
	if _, ok := m.byID[user.ID]; !ok {
		return sql.ErrNoRows
	}
	user.UpdatedAt = time.Now()
	cp := *user
	m.byID[user.ID] = &cp
	return nil
}

func (m *memUsers) Delete(ctx context.Context, id int64) error {
	delete(m.byID, id)
	return nil
}

func (m *memUsers) DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) ([]int64, error) {
	var ids []int64
	for id, u := range m.byID {
		if !u.IsVerified && u.CreatedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		delete(m.byID, id)
	}
	return ids, nil
}

// memConfirmations is a stateful in-memory Confirmations store.
type memConfirmations struct {
	byEmail map[string]*models.ConfirmationCode
	nextID  int64
}

func newMemConfirmations() *memConfirmations {
	return &memConfirmations{byEmail: make(map[string]*models.ConfirmationCode)}
}

func (m *memConfirmations) GetByEmail(ctx context.Context, email string) (*models.ConfirmationCode, error) {
	c, ok := m.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (m *memConfirmations) Create(ctx context.Context, c *models.ConfirmationCode) error {
	m.nextID++
	c.ID = m.nextID
	cp := *c
	m.byEmail[c.Email] = &cp
	return nil
}

func (m *memConfirmations) Update(ctx context.Context, c *models.ConfirmationCode) error {
	cp := *c
	m.byEmail[c.Email] = &cp
	return nil
}

func (m *memConfirmations) Delete(ctx context.Context, id int64) error {
	for email, c := range m.byEmail {
		if c.ID == id {
			delete(m.byEmail, email)
		}
	}
	return nil
}

type apiFixture struct {
	app   *application
	srv   http.Handler
	users *memUsers
	codes *memConfirmations
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	logger.Init()

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	users := newMemUsers()
	codes := newMemConfirmations()
	st := store.Storage{Users: users, Confirmations: codes}

	tokens := services.NewTokenService("access-secret", "refresh-secret", time.Minute, time.Hour)
	confirmations := services.NewConfirmationService(st, &noopPublisher{}, true)
	userService := services.NewUserService(st, confirmations, tokens)

	app := &application{
		store:        st,
		userService:  userService,
		tokenService: tokens,
		redisClient:  redisClient,
	}
	return &apiFixture{app: app, srv: app.mount(), users: users, codes: codes}
}

type noopPublisher struct{}

func (noopPublisher) PublishConfirmationEmail(ctx context.Context, email string, code int) error {
	return nil
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	f.srv.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body: %s", rr.Body.String())
	return v
}

func TestAPI_SignupFlow(t *testing.T) {
	f := newAPIFixture(t)

	// signup
	rr := f.do(t, http.MethodPost, "/auth/signup", map[string]string{
		"email":            "alice@example.com",
		"password":         "secret123",
		"password_confirm": "secret123",
	}, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	created := decode[dto.UserResponse](t, rr)
	assert.Equal(t, "alice@example.com", created.Email)
	assert.Equal(t, models.RoleUser, created.Role)
	assert.False(t, created.IsVerified)
	assert.NotContains(t, rr.Body.String(), "secret123")
	assert.NotContains(t, rr.Body.String(), "password")

	// duplicate signup
	rr = f.do(t, http.MethodPost, "/auth/signup", map[string]string{
		"email":            "alice@example.com",
		"password":         "secret123",
		"password_confirm": "secret123",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code, "duplicate email is 400")

	// login before verification
	rr = f.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "secret123",
	}, "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid email or password")

	// verify with a wrong code
	rr = f.do(t, http.MethodPost, "/auth/verify", map[string]interface{}{
		"email": "alice@example.com",
		"code":  2222,
	}, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid confirmation code")

	// verify with the debug code
	rr = f.do(t, http.MethodPost, "/auth/verify", map[string]interface{}{
		"email": "alice@example.com",
		"code":  1111,
	}, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	detail := decode[dto.DetailResponse](t, rr)
	assert.Equal(t, "email confirmed successfully", detail.Detail)

	// login now succeeds
	rr = f.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "secret123",
	}, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	pair := decode[dto.TokenResponse](t, rr)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "bearer", pair.TokenType)

	// refresh
	rr = f.do(t, http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": pair.RefreshToken,
	}, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	refreshed := decode[dto.RefreshResponse](t, rr)
	assert.NotEmpty(t, refreshed.AccessToken)

	// access token cannot be used as a refresh token
	rr = f.do(t, http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": pair.AccessToken,
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// /users/me
	rr = f.do(t, http.MethodGet, "/users/me", nil, pair.AccessToken)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	me := decode[dto.UserResponse](t, rr)
	assert.Equal(t, "alice@example.com", me.Email)
	assert.True(t, me.IsVerified)

	// plain USER cannot list the directory
	rr = f.do(t, http.MethodGet, "/users/", nil, pair.AccessToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestAPI_Signup_ValidationErrors(t *testing.T) {
	f := newAPIFixture(t)

	cases := []struct {
		name string
		body interface{}
	}{
		{"bad email", map[string]string{"email": "not-an-email", "password": "secret123", "password_confirm": "secret123"}},
		{"short password", map[string]string{"email": "a@example.com", "password": "abc", "password_confirm": "abc"}},
		{"missing confirmation", map[string]string{"email": "a@example.com", "password": "secret123"}},
		{"mismatched confirmation", map[string]string{"email": "a@example.com", "password": "secret123", "password_confirm": "different9"}},
		{"missing fields", map[string]string{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := f.do(t, http.MethodPost, "/auth/signup", tc.body, "")
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}

	// malformed JSON
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.srv.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_Resend_EchoesPayload(t *testing.T) {
	f := newAPIFixture(t)

	// absent user: silent no-op, payload echoed
	rr := f.do(t, http.MethodPost, "/auth/resend", map[string]string{
		"email": "ghost@example.com",
	}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	echoed := decode[dto.ResendRequest](t, rr)
	assert.Equal(t, "ghost@example.com", echoed.Email)
	assert.Empty(t, f.codes.byEmail, "no code issued for an absent user")

	// unverified user: code issued, same response shape
	rr = f.do(t, http.MethodPost, "/auth/signup", map[string]string{
		"email":            "bob@example.com",
		"password":         "secret123",
		"password_confirm": "secret123",
	}, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Contains(t, f.codes.byEmail, "bob@example.com")
	firstResend := f.codes.byEmail["bob@example.com"].ResendCount

	// clear the short resend window left by signup issuance
	rec := f.codes.byEmail["bob@example.com"]
	rec.ResendUnlockTime = nil

	rr = f.do(t, http.MethodPost, "/auth/resend", map[string]string{
		"email": "bob@example.com",
	}, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, firstResend+1, f.codes.byEmail["bob@example.com"].ResendCount)
}

func TestAPI_Resend_RateLimitSurfaces(t *testing.T) {
	f := newAPIFixture(t)

	rr := f.do(t, http.MethodPost, "/auth/signup", map[string]string{
		"email":            "carol@example.com",
		"password":         "secret123",
		"password_confirm": "secret123",
	}, "")
	require.Equal(t, http.StatusCreated, rr.Code)

	// signup issuance leaves resend_unlock_time in the future
	rr = f.do(t, http.MethodPost, "/auth/resend", map[string]string{
		"email": "carol@example.com",
	}, "")
	require.Equal(t, http.StatusTooManyRequests, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), "resend blocked, try again in")
}

func TestAPI_AdminUserEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	// seed an admin and a handful of users directly
	admin := &models.User{Email: "admin@example.com", Role: models.RoleAdmin, IsVerified: true}
	require.NoError(t, f.users.Create(context.Background(), admin))
	for i := 0; i < 4; i++ {
		u := &models.User{
			Email:      fmt.Sprintf("user%d@example.com", i),
			Role:       models.RoleUser,
			IsVerified: true,
		}
		require.NoError(t, f.users.Create(context.Background(), u))
	}

	token, err := f.app.tokenService.IssueAccess(admin.ID)
	require.NoError(t, err)

	// list page 1
	rr := f.do(t, http.MethodGet, "/users/?limit=2&offset=0", nil, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	page := decode[dto.UserListResponse](t, rr)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 5, page.Links.Count)
	require.NotNil(t, page.Links.Next)
	assert.Equal(t, "/users/?limit=2&offset=2", *page.Links.Next)
	assert.Nil(t, page.Links.Previous)

	// middle page has both links
	rr = f.do(t, http.MethodGet, "/users/?limit=2&offset=2", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	page = decode[dto.UserListResponse](t, rr)
	require.NotNil(t, page.Links.Next)
	require.NotNil(t, page.Links.Previous)
	assert.Equal(t, "/users/?limit=2&offset=0", *page.Links.Previous)

	// get by id
	rr = f.do(t, http.MethodGet, fmt.Sprintf("/users/%d", admin.ID), nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[dto.UserResponse](t, rr)
	assert.Equal(t, "admin@example.com", got.Email)

	// missing id is 404
	rr = f.do(t, http.MethodGet, "/users/999", nil, token)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// delete
	rr = f.do(t, http.MethodDelete, "/users/2", nil, token)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = f.do(t, http.MethodGet, "/users/2", nil, token)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAPI_UpdateMe(t *testing.T) {
	f := newAPIFixture(t)

	user := &models.User{Email: "dave@example.com", Role: models.RoleUser, IsVerified: true}
	require.NoError(t, f.users.Create(context.Background(), user))

	token, err := f.app.tokenService.IssueAccess(user.ID)
	require.NoError(t, err)

	rr := f.do(t, http.MethodPatch, "/users/", map[string]string{
		"first_name": "Dave",
	}, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	updated := decode[dto.UserResponse](t, rr)
	require.NotNil(t, updated.FirstName)
	assert.Equal(t, "Dave", *updated.FirstName)
	assert.Nil(t, updated.LastName)

	// /users/me is an alias for the same patch
	rr = f.do(t, http.MethodPatch, "/users/me", map[string]string{
		"last_name": "Jones",
	}, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	updated = decode[dto.UserResponse](t, rr)
	require.NotNil(t, updated.LastName)
	assert.Equal(t, "Jones", *updated.LastName)
}
