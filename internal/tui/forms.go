package tui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/Paintersrp/cmdlaunch/internal/command"
)

const (
	formWidth  = 80
	formHeight = 9
)

// showCommandForm opens the add form, or the edit form when existing is set.
func (u *UI) showCommandForm(existing *command.Command) {
	var id, name, line string
	title := " Add command "
	if existing != nil {
		id, name, line = existing.ID, existing.Name, existing.CommandLine
		title = " Edit command "
	}

	form := tview.NewForm()
	form.AddInputField("Name", name, 0, nil, nil)
	form.AddInputField("Command", line, 0, nil, nil)
	form.AddButton("Save", func() {
		nameField := form.GetFormItemByLabel("Name").(*tview.InputField)
		lineField := form.GetFormItemByLabel("Command").(*tview.InputField)
		if err := u.submitCommand(id, nameField.GetText(), lineField.GetText()); err != nil {
			u.showError(err.Error())
			return
		}
		u.closeDialog()
	})
	form.AddButton("Cancel", u.closeDialog)
	form.SetCancelFunc(u.closeDialog)
	form.SetBorder(true).SetTitle(title)

	u.showDialog(form, formWidth, formHeight)
}

func (u *UI) showConfirm(text, action string, confirm func()) {
	modal := tview.NewModal().
		SetText(text).
		AddButtons([]string{action, "Cancel"}).
		SetDoneFunc(func(_ int, label string) {
			u.closeDialog()
			if label == action {
				confirm()
			}
		})
	u.pages.AddPage(dialogPage, modal, true, true)
	u.app.SetFocus(modal)
}

func (u *UI) showError(text string) {
	modal := tview.NewModal().
		SetText(text).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(int, string) {
			u.closeError()
		})
	modal.SetBackgroundColor(tcell.ColorDarkRed)
	u.pages.AddPage(errorPage, modal, true, true)
	u.app.SetFocus(modal)
}

// showDialog centers p over the main page. AddPage replaces any dialog that
// is already open.
func (u *UI) showDialog(p tview.Primitive, width, height int) {
	grid := tview.NewGrid().
		SetColumns(0, width, 0).
		SetRows(0, height, 0).
		AddItem(p, 1, 1, 1, 1, 0, 0, true)
	u.pages.AddPage(dialogPage, grid, true, true)
	u.app.SetFocus(p)
}

// closeError returns to the dialog underneath, if any, so form input survives
// a failed save.
func (u *UI) closeError() {
	u.pages.RemovePage(errorPage)
	if name, item := u.pages.GetFrontPage(); name == dialogPage && item != nil {
		u.app.SetFocus(item)
		return
	}
	u.closeDialog()
}

func (u *UI) closeDialog() {
	u.pages.RemovePage(dialogPage)
	if u.processFocus {
		u.app.SetFocus(u.processes)
	} else {
		u.app.SetFocus(u.commands)
	}
}
