package listview

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Error is a row-action failure with its HTTP status.
type Error struct {
	Code int
	Msg  string
	base *Error
}

func (e *Error) Error() string   { return e.Msg }
func (e *Error) StatusCode() int { return e.Code }

// Unwrap exposes the sentinel an action-specific error was built from.
func (e *Error) Unwrap() error {
	if e.base == nil {
		return nil
	}
	return e.base
}

var (
	ErrConfirmationRequired = &Error{Code: http.StatusPreconditionRequired, Msg: "this action must be confirmed"}
	ErrUnsupportedAction    = &Error{Code: http.StatusMethodNotAllowed, Msg: "action not supported for this list"}
)

// Action is a row-level operation.
type Action string

const (
	ActionArchive Action = "archive"
	ActionRestore Action = "restore"
	ActionDelete  Action = "delete"
)

// ParseAction validates s.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionArchive, ActionRestore, ActionDelete:
		return a, nil
	}
	return "", &Error{Code: http.StatusBadRequest, Msg: fmt.Sprintf("unknown action %q", s)}
}

// Reversible reports whether the action can be undone. Archive and restore
// undo each other; delete is permanent.
func (a Action) Reversible() bool { return a != ActionDelete }

// Confirm gates an action behind an explicit confirmation. The error names the
// action and matches ErrConfirmationRequired under errors.Is.
func Confirm(a Action, confirmed bool) error {
	if confirmed {
		return nil
	}
	return &Error{
		Code: ErrConfirmationRequired.Code,
		Msg:  fmt.Sprintf("%s must be confirmed", a),
		base: ErrConfirmationRequired,
	}
}

// ConfirmedFromContext reads ?confirm=true or the X-Confirm header.
func ConfirmedFromContext(c echo.Context) bool {
	if ok, _ := strconv.ParseBool(c.QueryParam("confirm")); ok {
		return true
	}
	ok, _ := strconv.ParseBool(c.Request().Header.Get("X-Confirm"))
	return ok
}

// ActionFromDelete maps an HTTP DELETE on a row to archive, or to a permanent
// delete when ?permanent=true.
func ActionFromDelete(c echo.Context) Action {
	if ok, _ := strconv.ParseBool(c.QueryParam("permanent")); ok {
		return ActionDelete
	}
	return ActionArchive
}

// Actions holds the row operations a list supports. Nil entries are unsupported.
type Actions struct {
	Archive func(ctx context.Context, id string) error
	Restore func(ctx context.Context, id string) error
	Delete  func(ctx context.Context, id string) error
}

// Run confirms and dispatches action on row id.
func (a Actions) Run(ctx context.Context, action Action, id string, confirmed bool) error {
	var fn func(context.Context, string) error
	switch action {
	case ActionArchive:
		fn = a.Archive
	case ActionRestore:
		fn = a.Restore
	case ActionDelete:
		fn = a.Delete
	}
	if fn == nil {
		return ErrUnsupportedAction
	}
	if err := Confirm(action, confirmed); err != nil {
		return err
	}
	return fn(ctx, id)
}
