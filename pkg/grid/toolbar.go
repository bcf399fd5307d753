package grid

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitechdev/ResolveGrid/pkg/common"
	"github.com/bitechdev/ResolveGrid/pkg/logger"
)

// Action is a toolbar button.
type Action string

const (
	ActionReload  Action = "reload"
	ActionColumns Action = "columns"
	ActionSearch  Action = "search"
	ActionAdd     Action = "add"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionSave    Action = "save"
)

const (
	MsgSelectRow     = "select row"
	MsgConfirmDelete = "Delete %d selected record(s)?"
)

var (
	ErrActionDisabled = errors.New("toolbar action is not shown")
	ErrUnknownAction  = errors.New("unknown toolbar action")
	ErrNoSelection    = errors.New("no row selected")
	ErrNotConfirmed   = errors.New("delete not confirmed")
	ErrNoDeleteFunc   = errors.New("no delete handler configured")
	ErrDeleteFailed   = errors.New("delete failed")
)

// LogNotifier writes notifications to the log. It is the default Notifier.
type LogNotifier struct{}

func (LogNotifier) Warn(msg string)  { logger.Warn("%s", msg) }
func (LogNotifier) Error(msg string) { logger.Error("%s", msg) }

// Shown reports whether the toolbar shows action.
func (e *Engine) Shown(action Action) bool {
	show := e.grid.Toolbar.Show
	switch action {
	case ActionReload:
		return show.Reload
	case ActionColumns:
		return show.Columns
	case ActionSearch:
		return show.Search
	case ActionAdd:
		return show.Add
	case ActionEdit:
		return show.Edit
	case ActionDelete:
		return show.Delete
	case ActionSave:
		return show.Save
	}
	return false
}

// Trigger routes a toolbar click. Columns and search only open page level panels, so
// for them Trigger just checks the button is shown.
func (e *Engine) Trigger(ctx context.Context, action Action) error {
	switch action {
	case ActionReload, ActionColumns, ActionSearch, ActionAdd, ActionEdit, ActionDelete, ActionSave:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	if !e.Shown(action) {
		return fmt.Errorf("%w: %s", ErrActionDisabled, action)
	}

	switch action {
	case ActionReload:
		_, err := e.Reload(ctx)
		return err
	case ActionAdd:
		return e.OpenAddForm(ctx)
	case ActionEdit:
		recs := e.SelectedRecords()
		if len(recs) != 1 {
			e.conf.Notifier.Warn(MsgSelectRow)
			return ErrNoSelection
		}
		return e.OpenEditForm(ctx, recs[0])
	case ActionDelete:
		_, err := e.Delete(ctx)
		return err
	case ActionSave:
		_, err := e.SubmitForm(ctx)
		return err
	}
	return nil
}

// Delete removes the selected rows: it warns when nothing is selected, asks for
// confirmation, sends one batch delete and reloads on success. A failed delete leaves
// selection and rows untouched.
func (e *Engine) Delete(ctx context.Context) (common.DeleteResult, error) {
	ids := e.SelectedIDs()
	if len(ids) == 0 {
		e.conf.Notifier.Warn(MsgSelectRow)
		return common.DeleteResult{}, ErrNoSelection
	}
	if e.conf.OnDelete == nil {
		return common.DeleteResult{}, ErrNoDeleteFunc
	}
	if e.conf.Confirmer == nil || !e.conf.Confirmer.Confirm(ctx, fmt.Sprintf(MsgConfirmDelete, len(ids))) {
		return common.DeleteResult{}, ErrNotConfirmed
	}

	res, err := e.conf.OnDelete(ctx, ids)
	if err == nil && res.Status == common.StatusError {
		err = errors.New(res.Message)
	}
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = ErrDeleteFailed.Error()
		}
		e.conf.Notifier.Error(msg)
		logger.Error("Grid %s: delete of %v failed: %v", e.grid.Name, ids, err)
		return res, fmt.Errorf("%w: %s", ErrDeleteFailed, msg)
	}

	e.ClearSelection()
	if _, err := e.Reload(ctx); err != nil {
		return res, err
	}
	return res, nil
}
