package views

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/erpdesk/erpdesk/internal/api"
	"github.com/erpdesk/erpdesk/internal/catalog"
	"github.com/erpdesk/erpdesk/internal/format"
	"github.com/erpdesk/erpdesk/internal/output"
	"github.com/erpdesk/erpdesk/internal/source"
	"github.com/erpdesk/erpdesk/internal/tabs"
	"github.com/erpdesk/erpdesk/internal/tui"
	"github.com/erpdesk/erpdesk/internal/tui/workspace"
)

const labelWidth = 18

// recordLoadedMsg delivers the record an edit form starts from.
type recordLoadedMsg struct {
	tabID string
	rec   api.Record
	err   error
}

// RecordForm edits one new or existing record. Every keystroke is stored
// in the data tab's draft, so switching away and back, or restarting the
// program, keeps what was typed.
type RecordForm struct {
	session  *workspace.Session
	feature  catalog.Feature
	tabID    string
	recordID string
	styles   *tui.Styles
	keys     formKeyMap

	draft   *tabs.Draft[api.Record]
	inputs  []textinput.Model
	focus   int
	errs    map[string]string
	message string
	loading bool
	saving  bool
	spinner spinner.Model

	width, height int
}

// NewRecordForm creates the form behind data tab tabID of f. Edit tabs
// carry the record id in their tab id.
func NewRecordForm(session *workspace.Session, f catalog.Feature, tabID string) *RecordForm {
	styles := session.Styles()
	recordID, isEdit := strings.CutPrefix(tabID, tabs.EditTabID(f.Href, ""))
	if !isEdit {
		recordID = ""
	}

	inputs := make([]textinput.Model, len(f.Fields))
	for i, field := range f.Fields {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 200
		ti.Width = 40
		ti.Placeholder = placeholderFor(field)
		inputs[i] = ti
	}
	if len(inputs) > 0 {
		inputs[0].Focus()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Theme().Primary)

	return &RecordForm{
		session:  session,
		feature:  f,
		tabID:    tabID,
		recordID: recordID,
		styles:   styles,
		keys:     defaultFormKeyMap(),
		draft:    tabs.NewDraft(session.Tabs(), f.Href, tabID, api.Record{}),
		inputs:   inputs,
		errs:     map[string]string{},
		spinner:  s,
	}
}

func placeholderFor(f catalog.Field) string {
	switch f.Kind {
	case catalog.KindDate:
		return "YYYY-MM-DD"
	case catalog.KindCurrency, catalog.KindNumber:
		return "0"
	}
	return ""
}

func (v *RecordForm) Title() string {
	if t, ok := v.session.Tabs().DataTab(v.feature.Href, v.tabID); ok {
		return t.Title
	}
	return v.feature.Title
}

func (v *RecordForm) ShortHelp() []key.Binding {
	return []key.Binding{v.keys.Save, v.keys.Next, v.keys.Leave}
}

func (v *RecordForm) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{v.keys.Next, v.keys.Prev},
		{v.keys.Save, v.keys.Reset, v.keys.Discard, v.keys.Leave},
	}
}

// InputActive is always true: every printable key is typed into a field.
func (v *RecordForm) InputActive() bool { return true }

func (v *RecordForm) SetSize(w, h int) {
	v.width, v.height = w, h
	for i := range v.inputs {
		v.inputs[i].Width = max(10, w-labelWidth-2)
	}
}

func (v *RecordForm) Init() tea.Cmd {
	if rec, ok := v.draft.Restore(); ok {
		v.fill(rec)
		return textinput.Blink
	}
	if v.recordID != "" {
		return v.load()
	}
	return textinput.Blink
}

func (v *RecordForm) load() tea.Cmd {
	v.loading = true
	src, ctx, f := v.session.Source(), v.session.Context(), v.feature
	tabID, id := v.tabID, v.recordID
	return tea.Batch(func() tea.Msg {
		rec, err := src.Get(ctx, f, id)
		return recordLoadedMsg{tabID: tabID, rec: rec, err: err}
	}, v.spinner.Tick)
}

func (v *RecordForm) fill(rec api.Record) {
	for i, field := range v.feature.Fields {
		v.inputs[i].SetValue(format.Text(rec[field.Key]))
	}
}

// values reads the inputs into a draft payload.
func (v *RecordForm) values() api.Record {
	rec := make(api.Record, len(v.inputs))
	for i, field := range v.feature.Fields {
		rec[field.Key] = v.inputs[i].Value()
	}
	return rec
}

// Values returns what the form currently holds.
func (v *RecordForm) Values() api.Record { return v.values() }

// Errors returns the per-field messages of the last validation or save.
func (v *RecordForm) Errors() map[string]string { return v.errs }

// validate reports required fields left empty.
func validate(f catalog.Feature, rec api.Record) map[string]string {
	errs := map[string]string{}
	for _, field := range f.Fields {
		if !field.Required {
			continue
		}
		if s, _ := rec[field.Key].(string); strings.TrimSpace(s) == "" {
			errs[field.Key] = "required"
		}
	}
	return errs
}

func (v *RecordForm) save() tea.Cmd {
	vals := v.values()
	v.errs = validate(v.feature, vals)
	if len(v.errs) > 0 {
		v.message = "Fill in the required fields"
		v.focusFirstError()
		return nil
	}
	v.saving = true
	v.message = ""

	src, ctx, f := v.session.Source(), v.session.Context(), v.feature
	tabID, id := v.tabID, v.recordID
	body := source.Payload(f, vals)
	return tea.Batch(func() tea.Msg {
		rec, msg, err := src.Save(ctx, f, id, body)
		return workspace.RecordSavedMsg{FeatureID: f.Href, TabID: tabID, Record: rec, Message: msg, Err: err}
	}, v.spinner.Tick)
}

func (v *RecordForm) focusFirstError() {
	for i, field := range v.feature.Fields {
		if _, ok := v.errs[field.Key]; ok {
			v.setFocus(i)
			return
		}
	}
}

func (v *RecordForm) setFocus(i int) {
	if len(v.inputs) == 0 {
		return
	}
	v.inputs[v.focus].Blur()
	v.focus = (i + len(v.inputs)) % len(v.inputs)
	v.inputs[v.focus].Focus()
}

func (v *RecordForm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case recordLoadedMsg:
		if msg.tabID != v.tabID {
			return v, nil
		}
		v.loading = false
		if msg.err != nil {
			v.message = msg.err.Error()
			return v, workspace.ReportError(msg.err, "loading record")
		}
		v.fill(msg.rec)
		v.session.Tabs().UpdateDataTabData(v.feature.Href, v.tabID, v.values())
		return v, nil

	case workspace.RecordSavedMsg:
		if msg.TabID != v.tabID {
			return v, nil
		}
		v.saving = false
		if msg.Err != nil {
			var oe *output.Error
			if errors.As(msg.Err, &oe) && len(oe.Fields) > 0 {
				v.errs = oe.Fields
				v.focusFirstError()
			}
			v.message = msg.Err.Error()
			return v, nil
		}
		v.draft.Reset()
		return v, nil

	case spinner.TickMsg:
		if v.loading || v.saving {
			var cmd tea.Cmd
			v.spinner, cmd = v.spinner.Update(msg)
			return v, cmd
		}

	case tea.KeyMsg:
		return v, v.handleKey(msg)
	}
	return v, nil
}

func (v *RecordForm) handleKey(msg tea.KeyMsg) tea.Cmd {
	href, tabID := v.feature.Href, v.tabID
	switch {
	case key.Matches(msg, v.keys.Leave):
		return func() tea.Msg {
			return workspace.ActivateDataTabMsg{FeatureID: href, TabID: tabs.ListTabID(href)}
		}
	case key.Matches(msg, v.keys.Discard):
		return func() tea.Msg { return workspace.CloseDataTabMsg{FeatureID: href, TabID: tabID} }
	}

	if v.loading || v.saving {
		return nil
	}

	switch {
	case key.Matches(msg, v.keys.Save):
		return v.save()
	case key.Matches(msg, v.keys.Reset):
		v.errs = map[string]string{}
		v.message = ""
		v.fill(v.draft.Reset())
		if v.recordID != "" {
			return v.load()
		}
		return nil
	case key.Matches(msg, v.keys.Next):
		v.setFocus(v.focus + 1)
		return textinput.Blink
	case key.Matches(msg, v.keys.Prev):
		v.setFocus(v.focus - 1)
		return textinput.Blink
	}

	if len(v.inputs) == 0 {
		return nil
	}
	before := v.inputs[v.focus].Value()
	var cmd tea.Cmd
	v.inputs[v.focus], cmd = v.inputs[v.focus].Update(msg)
	if v.inputs[v.focus].Value() != before {
		delete(v.errs, v.feature.Fields[v.focus].Key)
		v.draft.Change(v.values())
	}
	return cmd
}

func (v *RecordForm) View() string {
	var b strings.Builder
	b.WriteString(v.styles.Heading.Render(v.Title()))
	b.WriteString("\n\n")

	for i, field := range v.feature.Fields {
		label := field.Label
		if field.Required {
			label += " *"
		}
		b.WriteString(v.styles.Label.Width(labelWidth).Render(label))
		b.WriteString(v.inputs[i].View())
		b.WriteString("\n")
		if msg, ok := v.errs[field.Key]; ok {
			b.WriteString(strings.Repeat(" ", labelWidth))
			b.WriteString(v.styles.Error.Render(msg))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	switch {
	case v.loading:
		b.WriteString(v.spinner.View() + " Loading…")
	case v.saving:
		b.WriteString(v.spinner.View() + " Saving…")
	case v.message != "":
		b.WriteString(v.styles.RenderStatus(false, v.message))
	case v.draft.Dirty():
		b.WriteString(v.styles.Muted.Render("Unsaved changes"))
	}
	return b.String()
}
