package ui

import (
	"fmt"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// SafeModel wraps a tea.Model so that a panic in a viewer method is logged
// instead of tearing down the terminal.
type SafeModel struct {
	model  tea.Model
	logger *zap.Logger
	panics int
}

// NewSafeModel wraps model with panic recovery
func NewSafeModel(model tea.Model, logger *zap.Logger) *SafeModel {
	return &SafeModel{
		model:  model,
		logger: logger,
	}
}

// Init wraps the Init method with panic recovery
func (sm *SafeModel) Init() (cmd tea.Cmd) {
	defer sm.recoverFromPanic("Init", &cmd)
	return sm.model.Init()
}

// Update wraps the Update method with panic recovery
func (sm *SafeModel) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	// при панике bubbletea все равно должен получить обертку
	model = sm
	defer sm.recoverFromPanic("Update", &cmd)

	var next tea.Model
	next, cmd = sm.model.Update(msg)
	sm.model = next
	return sm, cmd
}

// View wraps the View method with panic recovery
func (sm *SafeModel) View() (view string) {
	defer func() {
		if r := recover(); r != nil {
			sm.panics++
			sm.logger.Error("View panic recovered",
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())))
			view = fmt.Sprintf("UI Error: view crashed (%v). Press q to exit.", r)
		}
	}()
	return sm.model.View()
}

// Panics returns how many panics were recovered so far.
func (sm *SafeModel) Panics() int {
	return sm.panics
}

func (sm *SafeModel) recoverFromPanic(method string, cmd *tea.Cmd) {
	if r := recover(); r != nil {
		sm.panics++
		sm.logger.Error("UI method panic recovered",
			zap.String("method", method),
			zap.Any("panic", r),
			zap.String("stack", string(debug.Stack())))
		*cmd = nil
	}
}
