package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"plannerd/internal/search"
	"plannerd/internal/strips"
)

// =============================================================================
// LIVE SOLVE VIEW
// =============================================================================
// A small bubbletea program shown while search runs: task facts, a spinner
// and the elapsed wall clock. The search itself runs as a tea command; the
// view quits as soon as the result message lands.

type searchDoneMsg search.Result

type tickMsg time.Time

type solveModel struct {
	task    *strips.Task
	engine  *search.Engine
	ctx     context.Context
	spinner spinner.Model
	start   time.Time
	elapsed time.Duration
	result  *search.Result
	quit    bool
}

func newSolveModel(ctx context.Context, task *strips.Task, engine *search.Engine) solveModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = infoStyle
	return solveModel{
		task:    task,
		engine:  engine,
		ctx:     ctx,
		spinner: s,
		start:   time.Now(),
	}
}

func (m solveModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runSearch(), tick())
}

func (m solveModel) runSearch() tea.Cmd {
	return func() tea.Msg {
		return searchDoneMsg(m.engine.Run(m.ctx))
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m solveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case searchDoneMsg:
		r := search.Result(msg)
		m.result = &r
		return m, tea.Quit

	case tickMsg:
		m.elapsed = time.Since(m.start)
		return m, tick()

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			// The search keeps its context; quitting the view abandons the
			// run without waiting for it.
			m.quit = true
			return m, tea.Quit
		}
		return m, nil

	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

func (m solveModel) View() string {
	if m.result != nil || m.quit {
		return ""
	}
	body := titleStyle.Render("planNERD") + " solving " + m.task.Name + "\n" +
		mutedStyle.Render(fmt.Sprintf("%d variables, %d operators, %d goal facts",
			len(m.task.Variables), len(m.task.Operators), len(m.task.Goal))) + "\n\n" +
		fmt.Sprintf("%s searching... %s", m.spinner.View(),
			m.elapsed.Round(100*time.Millisecond)) + "\n" +
		mutedStyle.Render("ctrl+c to abort")
	return boxStyle.Render(body) + "\n"
}

// runSolveView runs the search behind the live view and hands back its
// result. Quitting the view without a result reports cancellation.
func runSolveView(ctx context.Context, task *strips.Task, engine *search.Engine) (search.Result, error) {
	p := tea.NewProgram(newSolveModel(ctx, task, engine))
	final, err := p.Run()
	if err != nil {
		return search.Result{}, fmt.Errorf("live view failed: %w", err)
	}
	m, ok := final.(solveModel)
	if !ok || m.result == nil {
		return search.Result{Canceled: true}, nil
	}
	return *m.result, nil
}
