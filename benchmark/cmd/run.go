// Command run executes the comparison benchmarks and renders one table per
// scenario plus a summary of which container won each one.
//
//	go run ./cmd -count 5 -json results.json
package main

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Sample is one benchmark line: BenchmarkInvoke_Chain_Thimble-8 ...
type Sample struct {
	Scenario  string  `json:"scenario"`
	Framework string  `json:"framework"`
	NsPerOp   float64 `json:"ns_per_op"`
	BytesOp   float64 `json:"bytes_per_op"`
	AllocsOp  float64 `json:"allocs_per_op"`
	Runs      int     `json:"runs"`
}

// testEvent is the subset of `go test -json` output the runner reads.
type testEvent struct {
	Action string
	Output string
}

var frameworks = map[string]struct {
	color text.Colors
	about string
}{
	"Thimble": {text.Colors{text.FgGreen, text.Bold}, "github.com/danpasecinic/thimble"},
	"Do":      {text.Colors{text.FgYellow}, "github.com/samber/do/v2"},
	"Dig":     {text.Colors{text.FgMagenta}, "go.uber.org/dig"},
	"Fx":      {text.Colors{text.FgBlue}, "go.uber.org/fx"},
}

var scenarioTitles = map[string]string{
	"Provide_Simple":       "Registration, single service",
	"Provide_Chain":        "Registration, four level chain",
	"Invoke_Singleton":     "Resolution, cached singleton",
	"Invoke_Chain":         "Resolution, singleton chain",
	"Invoke_Prototype":     "Resolution, fresh prototype graph",
	"Named_10":             "Resolution, ten named services",
	"Find_Named":           "Lookup by name",
	"Lifecycle_10":         "Start and stop, 10 eager services",
	"Lifecycle_50":         "Start and stop, 50 eager services",
	"LifecycleWithWork_10": "Start and stop, 10 services doing 1ms of work",
}

func main() {
	dir := flag.String("dir", "..", "directory holding the benchmarks")
	count := flag.Int("count", 3, "runs per benchmark; the median is reported")
	benchtime := flag.String("benchtime", "100ms", "value passed to -benchtime")
	jsonOut := flag.String("json", "", "also write the samples to this file")
	flag.Parse()

	fmt.Println(text.Colors{text.FgCyan, text.Bold}.Sprint("thimble benchmark suite"))
	fmt.Println(text.Faint.Sprintf("go test -bench . -count %d -benchtime %s in %s", *count, *benchtime, *dir))
	fmt.Println()

	out, err := runBenchmarks(*dir, *count, *benchtime)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	samples, err := collect(bytes.NewReader(out))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if len(samples) == 0 {
		fmt.Fprintln(os.Stderr, "no benchmark results")
		os.Exit(1)
	}

	scenarios := byScenario(samples)
	for _, name := range scenarioOrder(scenarios) {
		renderScenario(os.Stdout, name, scenarios[name])
	}
	renderSummary(os.Stdout, scenarios)

	if *jsonOut != "" {
		data, err := json.MarshalIndent(samples, "", "  ")
		if err == nil {
			err = os.WriteFile(*jsonOut, data, 0o644)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(text.Faint.Sprint("samples written to " + *jsonOut))
	}
}

func runBenchmarks(dir string, count int, benchtime string) ([]byte, error) {
	cmd := exec.Command("go", "test", "-json", "-run", "^$", "-bench", ".", "-benchmem",
		"-count", strconv.Itoa(count), "-benchtime", benchtime)
	cmd.Dir = dir
	cmd.Stderr = os.Stderr

	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil, fmt.Errorf("benchmarks failed: %w", err)
	}
	return out, err
}

// collect reads test2json events and folds repeated runs of a benchmark into
// their median.
func collect(r io.Reader) ([]Sample, error) {
	runs := make(map[string][]Sample)
	var names []string
	var pending string

	dec := json.NewDecoder(r)
	for {
		var ev testEvent
		if err := dec.Decode(&ev); errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("reading go test output: %w", err)
		}
		if ev.Action != "output" {
			continue
		}
		// The name can arrive on its own line ahead of the measurements.
		line := ev.Output
		if f := strings.Fields(line); len(f) == 1 && strings.HasPrefix(f[0], "Benchmark") {
			pending = f[0]
			continue
		} else if len(f) > 0 && pending != "" && !strings.HasPrefix(f[0], "Benchmark") {
			line = pending + " " + line
		}

		s, ok := parseLine(line)
		if !ok {
			continue
		}
		key := s.Scenario + "/" + s.Framework
		if _, seen := runs[key]; !seen {
			names = append(names, key)
		}
		runs[key] = append(runs[key], s)
	}

	samples := make([]Sample, 0, len(names))
	for _, key := range names {
		samples = append(samples, median(runs[key]))
	}
	return samples, nil
}

// parseLine reads "BenchmarkX_Y_Fw-8  N  v ns/op  v B/op  v allocs/op".
// Names split into scenario and framework at the last underscore.
func parseLine(line string) (Sample, bool) {
	fields := strings.Fields(line)
	if len(fields) < 4 || !strings.HasPrefix(fields[0], "Benchmark") {
		return Sample{}, false
	}

	name := strings.TrimPrefix(fields[0], "Benchmark")
	if i := strings.LastIndexByte(name, '-'); i > 0 {
		name = name[:i]
	}
	cut := strings.LastIndexByte(name, '_')
	if cut <= 0 {
		return Sample{}, false
	}
	s := Sample{Scenario: name[:cut], Framework: name[cut+1:], Runs: 1}

	found := false
	for i := 2; i+1 < len(fields); i += 2 {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return Sample{}, false
		}
		switch fields[i+1] {
		case "ns/op":
			s.NsPerOp, found = v, true
		case "B/op":
			s.BytesOp = v
		case "allocs/op":
			s.AllocsOp = v
		}
	}
	return s, found
}

func median(runs []Sample) Sample {
	pick := func(get func(Sample) float64) float64 {
		vs := make([]float64, len(runs))
		for i, r := range runs {
			vs[i] = get(r)
		}
		slices.Sort(vs)
		mid := len(vs) / 2
		if len(vs)%2 == 0 {
			return (vs[mid-1] + vs[mid]) / 2
		}
		return vs[mid]
	}

	s := runs[0]
	s.NsPerOp = pick(func(s Sample) float64 { return s.NsPerOp })
	s.BytesOp = pick(func(s Sample) float64 { return s.BytesOp })
	s.AllocsOp = pick(func(s Sample) float64 { return s.AllocsOp })
	s.Runs = len(runs)
	return s
}

// byScenario groups samples and sorts each group fastest first.
func byScenario(samples []Sample) map[string][]Sample {
	out := make(map[string][]Sample)
	for _, s := range samples {
		out[s.Scenario] = append(out[s.Scenario], s)
	}
	for _, group := range out {
		slices.SortFunc(group, func(a, b Sample) int { return cmp.Compare(a.NsPerOp, b.NsPerOp) })
	}
	return out
}

// scenarioOrder lists the titled scenarios first, then the rest by name.
func scenarioOrder(scenarios map[string][]Sample) []string {
	var known, other []string
	for name := range scenarios {
		if _, ok := scenarioTitles[name]; ok {
			known = append(known, name)
		} else {
			other = append(other, name)
		}
	}
	slices.Sort(known)
	slices.Sort(other)
	return append(known, other...)
}

func renderScenario(w io.Writer, name string, group []Sample) {
	title := scenarioTitles[name]
	if title == "" {
		title = strings.ReplaceAll(name, "_", " ")
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(title)
	tw.AppendHeader(table.Row{"Container", "Time/op", "Memory/op", "Allocs/op", "vs fastest"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})

	fastest := group[0].NsPerOp
	for _, s := range group {
		ratio := "1.0x"
		if fastest > 0 {
			ratio = fmt.Sprintf("%.1fx", s.NsPerOp/fastest)
		}
		tw.AppendRow(table.Row{
			colored(s.Framework),
			formatDuration(s.NsPerOp),
			formatBytes(s.BytesOp),
			fmt.Sprintf("%.0f", s.AllocsOp),
			ratio,
		})
	}
	tw.Render()
	fmt.Fprintln(w)
}

// renderSummary counts scenario wins and each container's worst ratio to the
// winner of a scenario.
func renderSummary(w io.Writer, scenarios map[string][]Sample) {
	type standing struct {
		name    string
		wins    int
		entered int
		slowest float64
	}
	byName := make(map[string]*standing)

	for _, group := range scenarios {
		fastest := group[0].NsPerOp
		for i, s := range group {
			st, ok := byName[s.Framework]
			if !ok {
				st = &standing{name: s.Framework}
				byName[s.Framework] = st
			}
			st.entered++
			if i == 0 {
				st.wins++
			}
			if fastest > 0 {
				st.slowest = max(st.slowest, s.NsPerOp/fastest)
			}
		}
	}

	standings := make([]*standing, 0, len(byName))
	for _, st := range byName {
		standings = append(standings, st)
	}
	slices.SortFunc(standings, func(a, b *standing) int {
		if c := cmp.Compare(b.wins, a.wins); c != 0 {
			return c
		}
		return strings.Compare(a.name, b.name)
	})

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("Summary")
	tw.AppendHeader(table.Row{"#", "Container", "Wins", "Worst vs fastest", "Module"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	for i, st := range standings {
		tw.AppendRow(table.Row{
			i + 1,
			colored(st.name),
			fmt.Sprintf("%d/%d", st.wins, st.entered),
			fmt.Sprintf("%.1fx", st.slowest),
			text.Faint.Sprint(frameworks[st.name].about),
		})
	}
	tw.Render()
	fmt.Fprintln(w)
}

func colored(framework string) string {
	if fw, ok := frameworks[framework]; ok {
		return fw.color.Sprint(framework)
	}
	return framework
}

func formatDuration(ns float64) string {
	switch {
	case ns >= 1e6:
		return fmt.Sprintf("%.2f ms", ns/1e6)
	case ns >= 1e3:
		return fmt.Sprintf("%.2f µs", ns/1e3)
	default:
		return fmt.Sprintf("%.0f ns", ns)
	}
}

func formatBytes(b float64) string {
	if b >= 1<<10 {
		return fmt.Sprintf("%.1f KiB", b/(1<<10))
	}
	return fmt.Sprintf("%.0f B", b)
}
