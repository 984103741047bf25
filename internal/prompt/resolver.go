// Package prompt holds the interactive terminal prompts of the seed CLI.
package prompt

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/huh"
	platformerrors "github.com/jmgilman/seed/errors"
	"github.com/jmgilman/seed/stage"
	"golang.org/x/term"
)

// chooser presents the options and returns the selected one.
type chooser func(ctx context.Context, title, description string, options []huh.Option[stage.Resolution]) (stage.Resolution, error)

// Resolver is a stage.ConflictResolver backed by an interactive select
// prompt. Prompts are shown one at a time even when several acquisitions
// run concurrently.
type Resolver struct {
	mu     sync.Mutex
	choose chooser
}

// NewResolver returns a Resolver prompting on the terminal.
func NewResolver() *Resolver {
	return &Resolver{choose: runSelect}
}

// Interactive reports whether stdin is attached to a terminal.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Resolve asks whether the file occupying the holding slot is deleted or
// backed up.
func (r *Resolver) Resolve(ctx context.Context, conflict stage.Conflict) (stage.Resolution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	title := fmt.Sprintf("%s already exists at %s", conflict.File, conflict.Path)
	res, err := r.choose(ctx, title,
		"It must be moved out of the way while the project is fetched.",
		[]huh.Option[stage.Resolution]{
			huh.NewOption("Back it up", stage.ResolutionBackup),
			huh.NewOption("Delete it", stage.ResolutionDelete),
		})
	if err != nil {
		return "", platformerrors.WrapWithContext(err, platformerrors.CodeCanceled,
			"conflict prompt aborted", map[string]interface{}{"path": conflict.Path})
	}
	return res, nil
}

func runSelect(ctx context.Context, title, description string, options []huh.Option[stage.Resolution]) (stage.Resolution, error) {
	choice := stage.ResolutionBackup
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[stage.Resolution]().
				Title(title).
				Description(description).
				Options(options...).
				Value(&choice),
		),
	).WithOutput(os.Stderr)

	if err := form.RunWithContext(ctx); err != nil {
		return "", err
	}
	return choice, nil
}

// Confirm asks a yes/no question on the terminal.
func Confirm(ctx context.Context, title string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).WithOutput(os.Stderr).RunWithContext(ctx)
	if err != nil {
		return false, platformerrors.Wrap(err, platformerrors.CodeCanceled, "confirmation aborted")
	}
	return ok, nil
}

var _ stage.ConflictResolver = (*Resolver)(nil)
