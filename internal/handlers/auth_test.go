package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comandaapp/comanda/internal/auth"
	"github.com/comandaapp/comanda/internal/models"
)

var testSecret = []byte("test-secret")

func TestRegisterAndLogin(t *testing.T) {
	db := newTestDB(t)
	e := newEcho()
	h := &AuthHandler{DB: db, JWTSecret: testSecret}

	c, rec := newJSONContext(e, http.MethodPost, "/api/auth/register",
		`{"name":"Ana","email":"ana@example.com","password":"secret1","role":"chef"}`)
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var stored models.User
	require.NoError(t, db.Where("email = ?", "ana@example.com").First(&stored).Error)
	require.Equal(t, models.RoleChef, stored.Role)
	require.NotEqual(t, "secret1", stored.PasswordHash)

	c, rec = newJSONContext(e, http.MethodPost, "/api/auth/login",
		`{"email":"ana@example.com","password":"secret1"}`)
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string      `json:"token"`
		User  UserPayload `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Ana", resp.User.Name)
	require.Equal(t, models.RoleChef, resp.User.Role)

	claims, err := auth.ParseToken(resp.Token, testSecret)
	require.NoError(t, err)
	require.Equal(t, models.RoleChef, claims.Role)
	require.Equal(t, "ana@example.com", claims.Email)
	require.WithinDuration(t, claims.IssuedAt.Add(auth.TokenTTL), claims.ExpiresAt.Time, time.Second)
}

func TestRegisterDefaultsToWaiter(t *testing.T) {
	db := newTestDB(t)
	e := newEcho()
	h := &AuthHandler{DB: db, JWTSecret: testSecret}

	c, rec := newJSONContext(e, http.MethodPost, "/api/auth/register",
		`{"name":"Luis","email":"luis@example.com","password":"secret1"}`)
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var stored models.User
	require.NoError(t, db.Where("email = ?", "luis@example.com").First(&stored).Error)
	require.Equal(t, models.RoleWaiter, stored.Role)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	e := newEcho()
	h := &AuthHandler{DB: db, JWTSecret: testSecret}

	c, _ := newJSONContext(e, http.MethodPost, "/api/auth/register",
		`{"name":"Ana","email":"dup@example.com","password":"secret1"}`)
	require.NoError(t, h.Register(c))

	c, _ = newJSONContext(e, http.MethodPost, "/api/auth/register",
		`{"name":"Other","email":"dup@example.com","password":"secret2"}`)
	requireStatus(t, h.Register(c), http.StatusConflict)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRegisterValidationListsAllViolations(t *testing.T) {
	db := newTestDB(t)
	e := newEcho()
	h := &AuthHandler{DB: db, JWTSecret: testSecret}

	c, _ := newJSONContext(e, http.MethodPost, "/api/auth/register",
		`{"email":"not-an-email","password":"ab"}`)
	he := requireStatus(t, h.Register(c), http.StatusBadRequest)

	msg, ok := he.Message.(string)
	require.True(t, ok)
	require.Contains(t, msg, "name")
	require.Contains(t, msg, "email")
	require.Contains(t, msg, "password")
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	db := newTestDB(t)
	e := newEcho()
	h := &AuthHandler{DB: db, JWTSecret: testSecret}

	c, _ := newJSONContext(e, http.MethodPost, "/api/auth/register",
		`{"name":"Eve","email":"eve@example.com","password":"secret1","role":"owner"}`)
	requireStatus(t, h.Register(c), http.StatusBadRequest)
}

func TestLoginBadCredentials(t *testing.T) {
	db := newTestDB(t)
	e := newEcho()
	h := &AuthHandler{DB: db, JWTSecret: testSecret}

	c, _ := newJSONContext(e, http.MethodPost, "/api/auth/register",
		`{"name":"Ana","email":"ana@example.com","password":"secret1"}`)
	require.NoError(t, h.Register(c))

	c, _ = newJSONContext(e, http.MethodPost, "/api/auth/login",
		`{"email":"ana@example.com","password":"wrong"}`)
	he := requireStatus(t, h.Login(c), http.StatusUnauthorized)
	require.Equal(t, "invalid credentials", he.Message)

	c, _ = newJSONContext(e, http.MethodPost, "/api/auth/login",
		`{"email":"nobody@example.com","password":"secret1"}`)
	he = requireStatus(t, h.Login(c), http.StatusUnauthorized)
	require.Equal(t, "invalid credentials", he.Message)
}
