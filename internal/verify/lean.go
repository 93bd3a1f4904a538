package verify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/lucasnoah/proofmill/internal/config"
	"github.com/lucasnoah/proofmill/internal/model"
	"github.com/lucasnoah/proofmill/internal/prompt"
	"github.com/lucasnoah/proofmill/internal/solve"
)

// CommandRunner executes a shell command and returns its combined output.
type CommandRunner interface {
	Run(ctx context.Context, dir, command string) (string, error)
}

// ExecRunner runs commands through sh -c.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir, command string) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	return string(out), err
}

var (
	leanBlockRe   = regexp.MustCompile("(?s)```lean[ \t]*\n(.*?)```")
	codeBlockRe   = regexp.MustCompile("(?s)```[a-zA-Z0-9]*[ \t]*\n(.*?)```")
	placeholderRe = regexp.MustCompile(`(?m)\b(sorry|admit)\b`)
)

// Formal verifies a proof by translating it to Lean 4 and compiling the
// result. A translation that compiles with no placeholder obligations is
// rigorous; compile success with placeholders is partial; anything that
// never compiles is failed. A missing toolchain makes the path unavailable
// rather than rejecting the proof.
type Formal struct {
	Models     *model.Registry
	Prompts    *prompt.Library
	Runner     CommandRunner
	Command    string
	ProjectDir string
	Timeout    time.Duration
	FixRounds  int
	Progress   io.Writer
}

// NewFormal wires a formal verifier from the lean config section. Returns
// nil when formal verification is disabled.
func NewFormal(cfg config.Lean, models *model.Registry, prompts *prompt.Library, progress io.Writer) *Formal {
	if !cfg.Enabled {
		return nil
	}
	return &Formal{
		Models:     models,
		Prompts:    prompts,
		Runner:     ExecRunner{},
		Command:    cfg.Command,
		ProjectDir: cfg.ProjectDir,
		Timeout:    cfg.TimeoutDuration(),
		FixRounds:  cfg.FixRounds,
		Progress:   progress,
	}
}

func (f *Formal) Verify(ctx context.Context, problem, proof string) (*solve.Verdict, error) {
	formalizer, err := f.Models.Get(model.RoleFormalizer)
	if err != nil {
		if model.IsUnsupported(err) {
			return f.unavailable("no formalizer model configured"), nil
		}
		return nil, err
	}

	text, err := f.Prompts.Render("formalize.md", prompt.Vars{
		"problem": problem,
		"proof":   proof,
	})
	if err != nil {
		return nil, err
	}

	resp, err := formalizer.Invoke(ctx, model.Request{Prompt: text, Temperature: 0.1})
	if err != nil {
		if model.IsUnsupported(err) {
			return f.unavailable(fmt.Sprintf("formalizer unavailable: %v", err)), nil
		}
		return nil, fmt.Errorf("formalizer call: %w", err)
	}

	code := ExtractLeanBlock(resp.Text)
	if code == "" {
		return &solve.Verdict{
			Status: solve.VerdictFailed,
			Issues: []solve.Issue{{
				Description: "formalizer returned no Lean source",
				Severity:    solve.SeverityCritical,
			}},
			Method:   solve.MethodFormal,
			Feedback: "the proof could not be translated into Lean 4",
		}, nil
	}

	code, compileOut, compiled, err := f.compileLoop(ctx, formalizer, code)
	if err != nil {
		var na *notAvailableError
		if errors.As(err, &na) {
			return f.unavailable(na.reason), nil
		}
		return nil, err
	}

	if !compiled {
		return &solve.Verdict{
			Status: solve.VerdictFailed,
			Issues: []solve.Issue{{
				Description: "Lean translation does not compile: " + firstLines(compileOut, 5),
				Severity:    solve.SeverityCritical,
			}},
			Method:     solve.MethodFormal,
			FormalCode: code,
			Feedback:   "the formal translation fails to compile; the argument likely has a gap near the reported errors:\n" + firstLines(compileOut, 20),
		}, nil
	}

	if holes := placeholderRe.FindAllString(code, -1); len(holes) > 0 {
		issues := make([]solve.Issue, 0, len(holes))
		for _, h := range holes {
			issues = append(issues, solve.Issue{
				Description: fmt.Sprintf("unproved obligation (%s) in the formal translation", h),
				Severity:    solve.SeverityModerate,
			})
		}
		v := &solve.Verdict{
			Status:     solve.VerdictPartial,
			Confidence: solve.Conf(0.5),
			Issues:     issues,
			Method:     solve.MethodFormal,
			FormalCode: code,
		}
		v.Feedback = "the formal translation compiles but leaves obligations unproved:\n" + v.IssueSummary()
		return v, nil
	}

	v := solve.Rigorous(solve.MethodFormal)
	v.FormalCode = code
	return v, nil
}

// compileLoop compiles the code, asking the formalizer to repair it up to
// FixRounds times. Returns the final code, the last compiler output, and
// whether compilation ultimately succeeded.
func (f *Formal) compileLoop(ctx context.Context, formalizer model.Client, code string) (string, string, bool, error) {
	var out string
	var err error
	for round := 0; ; round++ {
		out, err = f.compile(ctx, code)
		if err == nil {
			return code, out, true, nil
		}
		var na *notAvailableError
		if errors.As(err, &na) {
			return code, out, false, err
		}
		if round >= f.FixRounds {
			return code, out, false, nil
		}
		f.logf("lean compile failed (round %d/%d), requesting fix", round+1, f.FixRounds)

		text, rerr := f.Prompts.Render("fix-lean.md", prompt.Vars{
			"lean_code": code,
			"errors":    out,
		})
		if rerr != nil {
			return code, out, false, rerr
		}
		resp, cerr := formalizer.Invoke(ctx, model.Request{Prompt: text, Temperature: 0.1})
		if cerr != nil {
			return code, out, false, fmt.Errorf("fix round %d: %w", round+1, cerr)
		}
		fixed := ExtractLeanBlock(resp.Text)
		if fixed == "" {
			return code, out, false, nil
		}
		code = fixed
	}
}

type notAvailableError struct{ reason string }

func (e *notAvailableError) Error() string { return e.reason }

// compile writes the code to a scratch file and runs the configured
// compiler against it. A nil error means the file compiled.
func (f *Formal) compile(ctx context.Context, code string) (string, error) {
	dir := f.ProjectDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "proofmill-lean-")
		if err != nil {
			return "", err
		}
		defer os.RemoveAll(tmp)
		dir = tmp
	}
	path := filepath.Join(dir, "Candidate.lean")
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return "", err
	}

	cctx := ctx
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	out, err := f.Runner.Run(cctx, dir, f.Command+" "+path)
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) || errors.Is(err, exec.ErrNotFound) {
			return out, &notAvailableError{reason: fmt.Sprintf("lean toolchain not runnable: %v", err)}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 127 {
			return out, &notAvailableError{reason: "lean command not found (exit 127)"}
		}
		return out, err
	}
	return out, nil
}

func (f *Formal) unavailable(reason string) *solve.Verdict {
	f.logf("formal verification unavailable: %s", reason)
	return &solve.Verdict{
		Status:   solve.VerdictUnavailable,
		Method:   solve.MethodFormal,
		Feedback: reason,
	}
}

func (f *Formal) logf(format string, args ...any) {
	if f.Progress != nil {
		fmt.Fprintf(f.Progress, format+"\n", args...)
	}
}

// ExtractLeanBlock pulls the Lean source out of a fenced code block. A
// ```lean fence is preferred; any fenced block is accepted as fallback.
func ExtractLeanBlock(text string) string {
	if m := leanBlockRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := codeBlockRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func firstLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
