// Package tui provides interactive terminal UI components.
package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/ebookgrid/internal/errors"
	"github.com/lepinkainen/ebookgrid/internal/fileutil"
)

const (
	defaultListWidth  = 72
	defaultListHeight = 20
)

const pickerPrompt = "Select spreadsheet"

// SpreadsheetExtensions are offered by the file picker.
var SpreadsheetExtensions = []string{".xlsx", ".xlsm", ".csv"}

var runProgram = func(m tea.Model) (tea.Model, error) {
	return tea.NewProgram(m).Run()
}

// SelectionAction represents the user's action in the selection UI.
type SelectionAction int

const (
	// ActionNone indicates no action was taken.
	ActionNone SelectionAction = iota
	// ActionSelected indicates the user selected an item.
	ActionSelected
	// ActionStopped indicates the user cancelled the picker.
	ActionStopped
)

// SelectionResult holds the result of a TUI selection.
type SelectionResult struct {
	Action SelectionAction
	Path   string
}

// FileInfo describes a candidate spreadsheet.
type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

type fileItem struct {
	FileInfo
}

func (i fileItem) Title() string {
	return filepath.Base(i.Path)
}

func (i fileItem) FilterValue() string {
	return filepath.Base(i.Path)
}

func (i fileItem) Description() string {
	return formatMetadata(i.FileInfo)
}

type itemStyles struct {
	normal        lipgloss.Style
	selected      lipgloss.Style
	typeStyle     lipgloss.Style
	titleStyle    lipgloss.Style
	metadataStyle lipgloss.Style
}

func newItemStyles() itemStyles {
	asciiBorder := lipgloss.Border{
		Top:         "-",
		Bottom:      "-",
		Left:        "|",
		Right:       "|",
		TopLeft:     "+",
		TopRight:    "+",
		BottomLeft:  "+",
		BottomRight: "+",
	}

	container := lipgloss.NewStyle().
		Border(asciiBorder).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1).
		Foreground(lipgloss.Color("252"))

	selected := container.Copy().
		BorderForeground(lipgloss.Color("214")).
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("237"))

	return itemStyles{
		normal:   container,
		selected: selected,
		typeStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("110")),
		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("254")),
		metadataStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("247")).
			Faint(true),
	}
}

type fileDelegate struct {
	styles itemStyles
}

func newDelegate() fileDelegate {
	return fileDelegate{styles: newItemStyles()}
}

func (d fileDelegate) Height() int                         { return 5 }
func (d fileDelegate) Spacing() int                        { return 1 }
func (d fileDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (d fileDelegate) Render(w io.Writer, m list.Model, idx int, item list.Item) {
	file, ok := item.(fileItem)
	if !ok {
		return
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(file.Path)), ".")
	typeLine := d.styles.typeStyle.Render(fmt.Sprintf("[%s]", strings.ToUpper(ext)))
	titleLine := d.styles.titleStyle.Render(truncate(file.Title(), m.Width()-4))
	metadataLine := d.styles.metadataStyle.Render(truncate(file.Description(), m.Width()-4))

	content := lipgloss.JoinVertical(lipgloss.Left, typeLine, titleLine, metadataLine)

	container := d.styles.normal
	if idx == m.Index() {
		container = d.styles.selected
	}
	_, _ = fmt.Fprint(w, container.Render(content))
}

type model struct {
	list   list.Model
	dir    string
	result SelectionResult
}

func newModel(dir string, items []fileItem) *model {
	listItems := make([]list.Item, len(items))
	for i, item := range items {
		listItems[i] = item
	}

	l := list.New(listItems, newDelegate(), defaultListWidth, defaultListHeight)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetShowPagination(false)
	l.DisableQuitKeybindings()
	l.Styles.NoItems = lipgloss.NewStyle()

	return &model{
		list:   l,
		dir:    dir,
		result: SelectionResult{Action: ActionNone},
	}
}

func (m *model) Init() tea.Cmd { return nil }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if selected, ok := m.list.SelectedItem().(fileItem); ok {
				m.result = SelectionResult{Action: ActionSelected, Path: selected.Path}
				return m, tea.Quit
			}
		case "ctrl+c", "q", "esc":
			m.result = SelectionResult{Action: ActionStopped}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		width := clamp(defaultListWidth, msg.Width-4, 40)
		height := clamp(defaultListHeight, msg.Height-6, 5)
		m.list.SetSize(width, height)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *model) View() string {
	header := headerStyle.Render(fmt.Sprintf("The listing could not be fetched. Pick a spreadsheet in %s", m.dir))
	listView := m.list.View()
	buttons := stopButtonStyle.Render(" Cancel ")
	help := helpStyle.Render("Up/Down navigate | Enter select | q cancel")
	return lipgloss.JoinVertical(lipgloss.Left, header, listView, buttons, help)
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")).
			MarginBottom(1)

	stopButtonStyle = lipgloss.NewStyle().
			MarginTop(1).
			Padding(0, 2).
			Background(lipgloss.Color("161")).
			Foreground(lipgloss.Color("230")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			MarginTop(1).
			Foreground(lipgloss.Color("244"))
)

// Select presents an interactive picker over files.
func Select(dir string, files []FileInfo) (SelectionResult, error) {
	if len(files) == 0 {
		return SelectionResult{Action: ActionStopped}, nil
	}

	items := make([]fileItem, len(files))
	for i, f := range files {
		items[i] = fileItem{FileInfo: f}
	}

	finalModel, err := runProgram(newModel(dir, items))
	if err != nil {
		return SelectionResult{}, err
	}

	if typed, ok := finalModel.(*model); ok {
		return typed.result, nil
	}

	return SelectionResult{}, fmt.Errorf("unexpected program result")
}

// ListSpreadsheets returns the spreadsheet files directly inside dir.
func ListSpreadsheets(dir string) ([]FileInfo, error) {
	paths, err := fileutil.FindFilesWithExt(dir, SpreadsheetExtensions...)
	if err != nil {
		return nil, err
	}

	files := make([]FileInfo, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		files = append(files, FileInfo{Path: p, Size: info.Size(), ModTime: info.ModTime()})
	}
	return files, nil
}

// FilePicker lets the user choose a spreadsheet from Dir in the terminal.
type FilePicker struct {
	Dir string
}

// Provide shows the picker and reads the chosen file. Cancelling, or having
// nothing to pick, returns a *errors.CancelledError.
func (p FilePicker) Provide(ctx context.Context) (string, []byte, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	dir := p.Dir
	if dir == "" {
		dir = "."
	}

	files, err := ListSpreadsheets(dir)
	if err != nil {
		return "", nil, fmt.Errorf("failed to list spreadsheets in %s: %w", dir, err)
	}
	if len(files) == 0 {
		return "", nil, fmt.Errorf("no spreadsheet files in %s: %w", dir, errors.NewCancelledError(pickerPrompt))
	}

	result, err := Select(dir, files)
	if err != nil {
		return "", nil, err
	}
	if result.Action != ActionSelected {
		return "", nil, errors.NewCancelledError(pickerPrompt)
	}

	data, err := os.ReadFile(result.Path)
	if err != nil {
		return "", nil, err
	}
	return filepath.Base(result.Path), data, nil
}

func truncate(value string, width int) string {
	value = strings.Join(strings.Fields(value), " ")
	if width <= 0 || len(value) <= width {
		return value
	}
	if width <= 3 {
		return value[:width]
	}
	return value[:width-3] + "..."
}

// formatMetadata creates the metadata line with size and modification time.
func formatMetadata(f FileInfo) string {
	var parts []string
	parts = append(parts, formatSize(f.Size))
	if !f.ModTime.IsZero() {
		parts = append(parts, f.ModTime.Format("2006-01-02 15:04"))
	}
	return strings.Join(parts, " | ")
}

func formatSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}

func clamp(defaultValue, available, minimum int) int {
	width := defaultValue
	if available > 0 && available < defaultValue {
		width = available
	}
	if width < minimum {
		width = minimum
	}
	return width
}
