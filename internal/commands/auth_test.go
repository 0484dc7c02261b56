package commands

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erpdesk/erpdesk/internal/appctx"
	"github.com/erpdesk/erpdesk/internal/auth"
	"github.com/erpdesk/erpdesk/internal/output"
)

func loginServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		if body["password"] != "kopi-susu" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"message":"Invalid credentials"}`)
			return
		}
		io.WriteString(w, `{"token":"tok-1","user":{"id":5,"name":"Sari","email":"`+body["email"]+`"}}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// signedOut drops the token test apps get from the environment.
func signedOut(t *testing.T, app *appctx.App) {
	t.Helper()
	t.Setenv(auth.TokenEnv, "")
	require.False(t, app.Auth.IsAuthenticated())
}

func TestLoginWithToken(t *testing.T) {
	app, buf := newTestApp(t, "http://localhost:4000/api")
	signedOut(t, app)

	require.NoError(t, execute(t, app, NewLoginCmd(), "--token", " tok-9 "))

	assert.True(t, app.Auth.IsAuthenticated())
	creds, ok := app.Auth.Current()
	require.True(t, ok)
	assert.Equal(t, "tok-9", creds.Token)
	assert.Equal(t, "Logged in to "+app.Auth.Origin(), decode(t, buf).Summary)
}

func TestLoginPasswordStdin(t *testing.T) {
	srv := loginServer(t)
	app, buf := newTestApp(t, srv.URL)
	signedOut(t, app)

	cmd := NewLoginCmd()
	cmd.SetIn(strings.NewReader("kopi-susu\n"))
	require.NoError(t, execute(t, app, cmd, "--email", "sari@toko.co.id", "--password-stdin"))

	creds, ok := app.Auth.Current()
	require.True(t, ok)
	assert.Equal(t, "tok-1", creds.Token)
	assert.Equal(t, "5", creds.UserID)
	assert.Equal(t, "Sari", creds.Name)
	assert.Equal(t, "sari@toko.co.id", creds.Email)

	env := decode(t, buf)
	assert.Equal(t, "Logged in to "+app.Auth.Origin()+" as Sari", env.Summary)
}

func TestLoginWrongPassword(t *testing.T) {
	srv := loginServer(t)
	app, _ := newTestApp(t, srv.URL)
	signedOut(t, app)

	cmd := NewLoginCmd()
	cmd.SetIn(strings.NewReader("teh-manis\n"))
	err := execute(t, app, cmd, "--email", "sari@toko.co.id", "--password-stdin")

	e := output.AsError(err)
	assert.Equal(t, output.CodeAuth, e.Code)
	assert.Equal(t, "Invalid email or password", e.Message)
	assert.False(t, app.Auth.IsAuthenticated())
}

func TestLoginPasswordStdinNeedsEmail(t *testing.T) {
	app, _ := newTestApp(t, "http://localhost:4000/api")
	err := execute(t, app, NewLoginCmd(), "--password-stdin")
	assert.Equal(t, output.CodeUsage, output.AsError(err).Code)
}

func TestLoginWithoutTerminal(t *testing.T) {
	app, _ := newTestApp(t, "http://localhost:4000/api")
	app.Flags.JSON = true

	err := execute(t, app, NewLoginCmd())
	e := output.AsError(err)
	assert.Equal(t, output.CodeUsage, e.Code)
	assert.Contains(t, e.Hint, "--password-stdin")
}

func TestReadPassword(t *testing.T) {
	got, err := readPassword(strings.NewReader("rahasia\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "rahasia", got)

	got, err = readPassword(strings.NewReader("tanpa-newline"))
	require.NoError(t, err)
	assert.Equal(t, "tanpa-newline", got)

	_, err = readPassword(strings.NewReader("\n"))
	assert.Error(t, err)
}

func TestLogout(t *testing.T) {
	app, buf := newTestApp(t, "http://localhost:4000/api")
	signedOut(t, app)
	require.NoError(t, app.Auth.Save(&auth.Credentials{Token: "tok-1"}))
	require.True(t, app.Auth.IsAuthenticated())

	require.NoError(t, execute(t, app, NewLogoutCmd()))

	assert.False(t, app.Auth.IsAuthenticated())
	assert.Equal(t, "Logged out of "+app.Auth.Origin(), decode(t, buf).Summary)
}

func TestLogoutMentionsTokenEnv(t *testing.T) {
	app, buf := newTestApp(t, "http://localhost:4000/api")
	require.NoError(t, execute(t, app, NewLogoutCmd()))
	assert.Contains(t, decode(t, buf).Summary, auth.TokenEnv+" is still set")
}

func TestLoginRefusesPlainHTTPToRemoteHost(t *testing.T) {
	app, _ := newTestApp(t, "http://erp.example.co.id/api")

	cmd := NewLoginCmd()
	cmd.SetIn(strings.NewReader("kopi-susu\n"))
	err := execute(t, app, cmd, "--email", "sari@toko.co.id", "--password-stdin")

	e := output.AsError(err)
	assert.Equal(t, output.CodeUsage, e.Code)
	assert.Contains(t, e.Message, "plain http")
}
