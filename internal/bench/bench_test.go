package bench

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plannerd/internal/strips"
)

// writeSolvableTask writes a two-step YAML task to dir and returns its path.
func writeSolvableTask(t *testing.T, dir, name string) string {
	t.Helper()
	b := strips.NewBuilder(name)
	key := b.Variable("key", "missing", "held")
	door := b.Variable("door", "locked", "open")
	b.Init(0, 0)
	b.Goal(door, 1)
	b.Operator("grab key", 1, nil, strips.Facts(key, 1))
	b.Operator("unlock door", 2, strips.Facts(key, 1), strips.Facts(door, 1))
	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, strips.Save(b.MustBuild(), path))
	return path
}

// writeDeadEndTask writes a task whose goal fact nothing achieves.
func writeDeadEndTask(t *testing.T, dir, name string) string {
	t.Helper()
	b := strips.NewBuilder(name)
	g := b.Variable("g", "false", "true")
	b.Init(0)
	b.Goal(g, 1)
	b.Operator("noop", 1, nil, strips.Facts(g, 0))
	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, strips.Save(b.MustBuild(), path))
	return path
}

const watchProgram = `
variable("g", 2).
init("g", 0).
goal("g", 1).
operator("flip", 1).
eff("flip", "g", 1).
`

func TestDiscoverTasks(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yml", "c.mg", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x: 1\n"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	tests := []struct {
		format string
		want   []string
	}{
		{"auto", []string{"a.yml", "b.yaml", "c.mg"}},
		{"", []string{"a.yml", "b.yaml", "c.mg"}},
		{"yaml", []string{"a.yml", "b.yaml"}},
		{"mangle", []string{"c.mg"}},
	}
	for _, tt := range tests {
		t.Run("format="+tt.format, func(t *testing.T) {
			paths, err := DiscoverTasks(dir, tt.format)
			require.NoError(t, err)
			var names []string
			for _, p := range paths {
				names = append(names, filepath.Base(p))
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestDiscoverTasksBadFormat(t *testing.T) {
	_, err := DiscoverTasks(t.TempDir(), "json")
	assert.ErrorContains(t, err, "invalid task format")
}

func TestRunSweep(t *testing.T) {
	dir := t.TempDir()
	writeSolvableTask(t, dir, "alpha")
	writeSolvableTask(t, dir, "beta")
	writeDeadEndTask(t, dir, "gamma")

	report, err := Run(context.Background(), dir, Options{Parallelism: 2})
	require.NoError(t, err)

	assert.Len(t, report.Cases, 3)
	assert.Equal(t, 2, report.Solved)
	assert.Equal(t, 1, report.DeadEnds)
	assert.Equal(t, 0, report.Errors)
	assert.NotEmpty(t, report.RunID)

	// Cases keep task-file name order regardless of completion order.
	assert.Equal(t, "alpha", report.Cases[0].TaskName)
	assert.Equal(t, "beta", report.Cases[1].TaskName)
	assert.Equal(t, "gamma", report.Cases[2].TaskName)

	for _, c := range report.Cases[:2] {
		require.True(t, c.Solved())
		assert.Equal(t, 3, c.Result.PlanCost)
	}
	assert.False(t, report.Cases[2].Solved())
	assert.True(t, report.Cases[2].Result.DeadEnd)
}

func TestRunMixedFormats(t *testing.T) {
	dir := t.TempDir()
	writeSolvableTask(t, dir, "yaml-task")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mangle-task.mg"), []byte(watchProgram), 0644))

	report, err := Run(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Solved)
}

func TestRunEmptyDir(t *testing.T) {
	_, err := Run(context.Background(), t.TempDir(), Options{})
	assert.ErrorContains(t, err, "no task files")
}

func TestRunBrokenTaskCountsAsError(t *testing.T) {
	dir := t.TempDir()
	writeSolvableTask(t, dir, "good")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte(":: not yaml"), 0644))

	report, err := Run(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Solved)
	assert.Equal(t, 1, report.Errors)
}

func TestRunInvalidHeuristicKind(t *testing.T) {
	dir := t.TempDir()
	writeSolvableTask(t, dir, "alpha")

	report, err := Run(context.Background(), dir, Options{Heuristic: "perfect"})
	require.NoError(t, err)
	require.Len(t, report.Cases, 1)
	assert.Equal(t, 1, report.Errors)
	assert.ErrorContains(t, report.Cases[0].Err, "invalid heuristic kind")
}

func TestWatcherSweepsOnChange(t *testing.T) {
	dir := t.TempDir()
	writeSolvableTask(t, dir, "alpha")

	reports := make(chan *Report, 4)
	w, err := NewWatcher(dir, Options{}, func(r *Report, err error) {
		if err == nil {
			reports <- r
		}
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	// Initial sweep fires before any change.
	select {
	case r := <-reports:
		assert.Equal(t, 1, r.Solved)
	case <-time.After(5 * time.Second):
		t.Fatal("no initial sweep")
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "beta.mg"), []byte(watchProgram), 0644))

	select {
	case r := <-reports:
		assert.Equal(t, 2, r.Solved)
	case <-time.After(10 * time.Second):
		t.Fatal("no sweep after task file change")
	}
	assert.GreaterOrEqual(t, w.Sweeps(), 2)
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	writeSolvableTask(t, dir, "alpha")

	reports := make(chan *Report, 4)
	w, err := NewWatcher(dir, Options{}, func(r *Report, err error) {
		reports <- r
	})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	<-reports // initial sweep

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("scratch"), 0644))

	select {
	case <-reports:
		t.Fatal("sweep triggered by a non-task file")
	case <-time.After(1500 * time.Millisecond):
	}
}
