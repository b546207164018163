package cibox_exec

import (
	"fmt"
	"io"
	"os"
	"strings"

	wzlib_logger "github.com/infra-whizz/wzlib/logger"
)

// Flags tune a single command invocation inside a container.
type Flags struct {
	// MinimalBind runs proot without binding host directories, so
	// filesystem operations cannot touch host paths.
	MinimalBind bool

	// RequiresFullAccess makes a local-prefix executor delegate to root
	// emulation for operations that genuinely need it.
	RequiresFullAccess bool

	// LiveOutput mirrors the child's stdout to Output while it runs.
	LiveOutput bool

	// Output receives mirrored stdout. Defaults to os.Stdout.
	Output io.Writer

	// Env holds extra environment overrides for this call only.
	Env map[string]string
}

// Invocation is the fully built process call: final argument vector plus
// the environment overlay to apply on top of the caller's environment.
type Invocation struct {
	Argv     []string
	Prepend  map[string]string
	Override map[string]string
}

// Executor runs commands inside one realised container.
type Executor interface {
	// BuildInvocation translates native argv into the actual process
	// call for this isolation strategy.
	BuildInvocation(argv []string, flags Flags) (*Invocation, error)

	// Execute spawns the command and returns its exit code and captured
	// stdout/stderr. A nonzero exit is not an error here.
	Execute(argv []string, flags Flags) (int, string, string, error)

	// ExecuteSuccess is Execute treating nonzero exit as fatal.
	ExecuteSuccess(argv []string, flags Flags) error

	// Root returns the container root on the host filesystem.
	Root() string
}

// ExecutableNotFoundError means argv[0] (or a shebang interpreter) could
// not be resolved. A common, user-actionable failure.
type ExecutableNotFoundError struct {
	Binary string
	Path   string
}

func (e *ExecutableNotFoundError) Error() string {
	return fmt.Sprintf("Executable '%s' was not found in any of PATH %s", e.Binary, e.Path)
}

// SubprocessError is a child process exiting nonzero where success was
// required. Captured output is carried for the caller's error channel.
type SubprocessError struct {
	Argv   []string
	Code   int
	Stdout string
	Stderr string
}

func (e *SubprocessError) Error() string {
	return fmt.Sprintf("Command '%s' failed with exit code %d", strings.Join(e.Argv, " "), e.Code)
}

// BaseExecutor carries the behaviour shared by every isolation strategy.
// The concrete strategy sets itself as ref in its constructor.
type BaseExecutor struct {
	ref Executor
	wzlib_logger.WzLogger
}

// Execute builds the invocation for this strategy and runs it.
func (be *BaseExecutor) Execute(argv []string, flags Flags) (int, string, string, error) {
	if be.ref == nil {
		panic("Executor is not properly initialised: no implementation reference found")
	}
	inv, err := be.ref.BuildInvocation(argv, flags)
	if err != nil {
		return -1, "", "", err
	}
	return run(inv, flags)
}

// ExecuteSuccess runs the command and raises on nonzero exit, surfacing
// the captured output.
func (be *BaseExecutor) ExecuteSuccess(argv []string, flags Flags) error {
	code, stdout, stderr, err := be.Execute(argv, flags)
	if err != nil {
		return err
	}
	if code != 0 {
		return &SubprocessError{Argv: argv, Code: code, Stdout: stdout, Stderr: stderr}
	}
	return nil
}

// mergeEnviron applies an invocation overlay on top of the current process
// environment and returns a fresh environment list. The process's own
// environment is never mutated.
func mergeEnviron(inv *Invocation, extra map[string]string) map[string]string {
	env := map[string]string{}
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			env[parts[0]] = parts[1]
		}
	}

	for key, value := range inv.Prepend {
		if existing, ok := env[key]; ok && existing != "" {
			env[key] = value + string(os.PathListSeparator) + existing
		} else {
			env[key] = value
		}
	}
	for key, value := range inv.Override {
		env[key] = value
	}
	for key, value := range extra {
		env[key] = value
	}

	return env
}

func flattenEnviron(env map[string]string) []string {
	flat := make([]string, 0, len(env))
	for key, value := range env {
		flat = append(flat, key+"="+value)
	}
	return flat
}
