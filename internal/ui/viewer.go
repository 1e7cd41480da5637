package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/gdamore/tcell/v2"
	"github.com/pkg/errors"
	"github.com/rivo/tview"

	"shardrun/internal/domain"
	"shardrun/internal/pipeline"
	"shardrun/internal/storage"
)

// ResultViewer browses the matrices of a saved run in an interactive TUI
type ResultViewer struct {
	manifest storage.Manifest
}

// NewResultViewer creates a ResultViewer. manifest may be nil; shard contents are then not shown.
func NewResultViewer(manifest storage.Manifest) *ResultViewer {
	return &ResultViewer{manifest: manifest}
}

// matrixItems flattens the result in context, then repeat order
func matrixItems(result domain.RunResult) []domain.MatrixHandle {
	var items []domain.MatrixHandle
	for _, index := range result.ContextIndexes() {
		items = append(items, result.MatrixMap[index]...)
	}
	return items
}

// View shows the saved run until the user quits
func (v *ResultViewer) View(output *domain.ResultsOutput) error {
	items := matrixItems(output.Result)
	if len(items) == 0 {
		color.Yellow("No matrices in the last run")
		return nil
	}

	app := tview.NewApplication()

	list := tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true)
	for i, h := range items {
		list.AddItem(listItemText(i, h), "", 0, nil)
	}
	list.SetMainTextColor(tview.Styles.PrimaryTextColor).
		SetSelectedTextColor(tcell.ColorWhite).
		SetSelectedBackgroundColor(tcell.ColorDarkCyan).
		SetSecondaryTextColor(tview.Styles.SecondaryTextColor)

	statsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false).
		SetWordWrap(false)

	detailsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true).
		SetWordWrap(true)

	detailsContainer := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(detailsView, 0, 1, false).
		AddItem(tview.NewBox(), 2, 0, false)

	rightSide := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(statsView, 3, 0, false).
		AddItem(detailsContainer, 0, 1, false)

	flex := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(list, 0, 1, true).
		AddItem(rightSide, 0, 2, false)

	headerView := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetDynamicColors(true).
		SetText(fmt.Sprintf(
			" Run %s: %d matrices, outcome %s | ↑↓ to navigate, → to view shard, ← to go back, Ctrl+C to exit ",
			output.Meta.RunID, len(items), output.Meta.Outcome))

	updateDetails := func() {
		index := list.GetCurrentItem()
		if index >= 0 && index < len(items) {
			statsView.SetText(formatMatrixStats(items[index]))
			detailsView.SetText(v.formatMatrixDetails(items[index]))
		}
	}

	list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEnter, tcell.KeyRight:
			app.SetFocus(detailsView)
			return nil
		case tcell.KeyCtrlC:
			app.Stop()
			return nil
		}
		return event
	})
	detailsView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyLeft, tcell.KeyEsc:
			app.SetFocus(list)
			return nil
		case tcell.KeyCtrlC:
			app.Stop()
			return nil
		}
		return event
	})
	list.SetChangedFunc(func(index int, mainText string, secondaryText string, shortcut rune) {
		updateDetails()
	})
	updateDetails()

	mainLayout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(headerView, 1, 0, false).
		AddItem(tview.NewBox(), 1, 0, false).
		AddItem(flex, 0, 1, true)

	if err := app.SetRoot(mainLayout, true).SetFocus(list).Run(); err != nil {
		return errors.Wrap(err, "failed to run TUI")
	}
	return nil
}

func listItemText(i int, h domain.MatrixHandle) string {
	return fmt.Sprintf("[yellow]%d.[white] %s [%s]%s[white]", i+1, pipeline.ResultsDir(h.ContextIndex), tviewColor(h), formatState(h))
}

func tviewColor(h domain.MatrixHandle) string {
	switch stateColor(h) {
	case red:
		return "red"
	case green:
		return "green"
	}
	return "yellow"
}

// formatMatrixStats formats the one-line header of a matrix
func formatMatrixStats(h domain.MatrixHandle) string {
	return fmt.Sprintf("[cyan]matrix:[white] [yellow]%s[white] repeat [yellow]%d[white]\n", h.ID, h.Repeat)
}

// formatMatrixDetails formats a matrix and its shard using tview color tags
func (v *ResultViewer) formatMatrixDetails(h domain.MatrixHandle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]State: %s[white]\n", tviewColor(h), formatState(h))
	fmt.Fprintf(&b, "[cyan]Results: %s[white]\n\n", h.ResultsPath)

	entry, ok := v.manifest[storage.ManifestKey(h.ContextIndex)]
	if !ok {
		b.WriteString("[gray]no shard manifest for this matrix[white]\n")
		return b.String()
	}
	fmt.Fprintf(&b, "[yellow]Target:[white] %s (%s), shard %d\n\n", entry.Target, entry.Kind, entry.ShardIndex)
	if len(entry.Tests) > 0 {
		fmt.Fprintf(&b, "[yellow]Tests (%d):[white]\n", len(entry.Tests))
		for _, id := range entry.Tests {
			fmt.Fprintf(&b, "  %s\n", id)
		}
	}
	if len(entry.Ignored) > 0 {
		fmt.Fprintf(&b, "\n[yellow]Ignored (%d):[white]\n", len(entry.Ignored))
		for _, id := range entry.Ignored {
			fmt.Fprintf(&b, "  [gray]%s[white]\n", id)
		}
	}
	return b.String()
}
