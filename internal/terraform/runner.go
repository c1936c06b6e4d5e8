package terraform

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

const planFile = "plan.out"

// RunError wraps a failed terraform invocation with its captured output.
type RunError struct {
	Args   []string
	Output string
	Err    error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("terraform %s: %v", strings.Join(e.Args, " "), e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

type commandFunc func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Runner shells out to the terraform binary inside a working directory.
// Extra options are appended to every plan and apply invocation.
type Runner struct {
	dir     string
	binary  string
	options []string
	log     *slog.Logger
	run     commandFunc
}

func NewRunner(dir string, options []string, log *slog.Logger) *Runner {
	return &Runner{
		dir:     dir,
		binary:  "terraform",
		options: options,
		log:     log,
		run:     runCommand,
	}
}

// Dir returns the terraform working directory.
func (r *Runner) Dir() string { return r.dir }

func (r *Runner) exec(ctx context.Context, args ...string) ([]byte, error) {
	r.log.Debug("running terraform", "args", args, "dir", r.dir)
	out, err := r.run(ctx, r.dir, r.binary, args...)
	if err != nil {
		return nil, &RunError{Args: args, Output: string(out), Err: err}
	}
	return out, nil
}

func targetArgs(targets []string) []string {
	args := make([]string, 0, len(targets))
	for _, t := range targets {
		args = append(args, "-target="+t)
	}
	return args
}

// Plan writes a binary plan to plan.out in the working directory.
func (r *Runner) Plan(ctx context.Context, targets []string) error {
	args := append([]string{"plan", "-out=" + planFile}, r.options...)
	args = append(args, targetArgs(targets)...)
	_, err := r.exec(ctx, args...)
	return err
}

// Show renders the stored plan as JSON and returns the raw document.
func (r *Runner) Show(ctx context.Context) ([]byte, error) {
	return r.exec(ctx, "show", "-json", planFile)
}

// Apply runs a non-interactive apply with the configured options.
func (r *Runner) Apply(ctx context.Context, targets []string) error {
	args := append([]string{"apply", "-auto-approve"}, r.options...)
	args = append(args, targetArgs(targets)...)
	_, err := r.exec(ctx, args...)
	return err
}

type changeSummary struct {
	Add    int `json:"add"`
	Change int `json:"change"`
	Remove int `json:"remove"`
	Import int `json:"import"`
}

type machineLogLine struct {
	Type    string         `json:"type"`
	Changes *changeSummary `json:"changes"`
}

// ApplyIfOnlyImport re-plans in machine-readable mode and applies
// automatically when the plan does nothing but import: the change summary
// reports imports with zero additions, changes and removals. It reports
// whether apply ran.
func (r *Runner) ApplyIfOnlyImport(ctx context.Context, targets []string) (bool, error) {
	args := append([]string{"plan", "-json"}, r.options...)
	args = append(args, targetArgs(targets)...)
	out, err := r.exec(ctx, args...)
	if err != nil {
		return false, err
	}

	summary, err := parseChangeSummary(out)
	if err != nil {
		return false, err
	}
	if summary.Add != 0 || summary.Change != 0 || summary.Remove != 0 {
		r.log.Info("plan is not import-only, skipping apply",
			"add", summary.Add, "change", summary.Change, "remove", summary.Remove)
		return false, nil
	}
	if summary.Import == 0 {
		r.log.Info("plan is empty, nothing to apply")
		return false, nil
	}

	r.log.Info("plan is import-only, applying", "imports", summary.Import)
	if err := r.Apply(ctx, targets); err != nil {
		return false, err
	}
	return true, nil
}

func parseChangeSummary(machineLog []byte) (*changeSummary, error) {
	scanner := bufio.NewScanner(bytes.NewReader(machineLog))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var line machineLogLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			continue
		}
		if line.Type == "change_summary" && line.Changes != nil {
			return line.Changes, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning plan log: %w", err)
	}
	return nil, fmt.Errorf("plan log contains no change summary")
}
