package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erpdesk/erpdesk/internal/output"
	"github.com/erpdesk/erpdesk/internal/session"
	"github.com/erpdesk/erpdesk/internal/tabs"
)

func TestRestoreSession(t *testing.T) {
	app, _ := newTestApp(t, "http://localhost:4000/api")
	saveSession(t, app)

	st, err := openStore(app)
	require.NoError(t, err)
	defer st.Close()

	reg := session.NewRegistry(app.Catalog)
	restoreSession(st, sessionKey(app), reg)

	active, ok := reg.ActiveFeatureTab()
	require.True(t, ok)
	assert.Equal(t, fakturHref, active.ID)
	assert.Equal(t, tabs.NewTabID(fakturHref), active.ActiveDataTabID)
	assert.True(t, reg.Dirty(fakturHref))
}

func TestRestoreSessionMissingStartsEmpty(t *testing.T) {
	app, _ := newTestApp(t, "http://localhost:4000/api")
	st, err := openStore(app)
	require.NoError(t, err)
	defer st.Close()

	reg := session.NewRegistry(app.Catalog)
	restoreSession(st, sessionKey(app), reg)

	_, ok := reg.ActiveFeatureTab()
	assert.False(t, ok)
}

func TestTUINeedsTerminal(t *testing.T) {
	app, _ := newTestApp(t, "http://localhost:4000/api")
	app.Flags.JSON = true

	err := execute(t, app, NewTUICmd())
	assert.Equal(t, output.CodeUsage, output.AsError(err).Code)
}
