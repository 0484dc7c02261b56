package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"
)

// ErrCanceled is returned when the user aborts a prompt.
var ErrCanceled = errors.New("canceled")

func promptErr(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrCanceled
	}
	return err
}

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("this field is required")
	}
	return nil
}

// Confirm shows a yes/no confirmation prompt.
func Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	err := huh.NewConfirm().
		Title(message).
		Affirmative("Yes").
		Negative("No").
		Value(&result).
		Run()
	if err != nil {
		return defaultValue, promptErr(err)
	}
	return result, nil
}

// InputRequired shows a text input that cannot be left empty.
func InputRequired(title, placeholder string) (string, error) {
	var result string
	err := huh.NewInput().
		Title(title).
		Placeholder(placeholder).
		Value(&result).
		Validate(required).
		Run()
	return strings.TrimSpace(result), promptErr(err)
}

// Credentials asks for an email and password in one form. email is the
// initial value of the email field.
func Credentials(title, email string) (string, string, error) {
	var password string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("nama@perusahaan.co.id").
				Value(&email).
				Validate(required),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&password).
				Validate(required),
		).Title(title),
	)
	if err := form.Run(); err != nil {
		return "", "", promptErr(err)
	}
	return strings.TrimSpace(email), password, nil
}
