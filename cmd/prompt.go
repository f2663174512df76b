package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	errUtils "github.com/nimbusdfir/nimbus/errors"
)

// promptSelect asks the user to pick one of the options and returns the
// selected index.
func promptSelect(title string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, errUtils.ErrNoResults
	}

	huhOptions := make([]huh.Option[int], 0, len(options))
	for i, option := range options {
		huhOptions = append(huhOptions, huh.NewOption(fmt.Sprintf("%d. %s", i+1, option), i))
	}

	var selected int
	err := huh.NewSelect[int]().
		Title(title).
		Options(huhOptions...).
		Value(&selected).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return 0, errUtils.ErrCancelled
		}
		return 0, err
	}
	return selected, nil
}

// promptInput asks for a value, prefilled with a default.
func promptInput(title string, defaultValue string) (string, error) {
	value := defaultValue
	err := huh.NewInput().
		Title(title).
		Value(&value).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", errUtils.ErrCancelled
		}
		return "", err
	}
	return value, nil
}

// promptPassword asks for a secret without echoing it.
func promptPassword(title string) (string, error) {
	var value string
	err := huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Value(&value).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", errUtils.ErrCancelled
		}
		return "", err
	}
	if value == "" {
		return "", errUtils.ErrPasswordRequired
	}
	return value, nil
}

// confirmOrAbort asks for confirmation before a destructive operation.
// The --yes flag bypasses the prompt.
func confirmOrAbort(message string) error {
	if skipConfirm {
		return nil
	}

	var confirmed bool
	err := huh.NewConfirm().
		Title(message).
		Affirmative("Yes").
		Negative("No").
		Value(&confirmed).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errUtils.ErrCancelled
		}
		return err
	}
	if !confirmed {
		return errUtils.ErrCancelled
	}
	return nil
}
