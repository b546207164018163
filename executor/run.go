package cibox_exec

import (
	"bytes"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	wzlib_logger "github.com/infra-whizz/wzlib/logger"
	wzlib_subprocess "github.com/infra-whizz/wzlib/subprocess"
)

// run spawns the built invocation. Stdout and stderr are each drained on
// their own goroutine so a chatty child can never deadlock on a full pipe;
// both drains are joined before returning, callers always see complete
// output.
func run(inv *Invocation, flags Flags) (int, string, string, error) {
	env := mergeEnviron(inv, flags.Env)

	argv, err := resolveArgv(inv.Argv, env["PATH"])
	if err != nil {
		return -1, "", "", err
	}

	wzlib_logger.GetCurrentLogger().Debugf("Calling: %v", argv)

	cmd := wzlib_subprocess.ExecCommand(argv[0], argv[1:]...)
	cmd.Env = flattenEnviron(env)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return -1, "", "", err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return -1, "", "", err
	}

	if err := cmd.Start(); err != nil {
		return -1, "", "", err
	}

	var stdout, stderr bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var sink io.Writer = &stdout
		if flags.LiveOutput {
			mirror := flags.Output
			if mirror == nil {
				mirror = os.Stdout
			}
			sink = io.MultiWriter(&stdout, mirror)
		}
		_, _ = io.Copy(sink, stdoutPipe)
	}()
	go func() {
		defer wg.Done()
		_, _ = io.Copy(&stderr, stderrPipe)
	}()

	wg.Wait()

	code := 0
	if err := cmd.Wait(); err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return -1, stdout.String(), stderr.String(), err
		}
		code = exitErr.ExitCode()
	}

	return code, stdout.String(), stderr.String(), nil
}

// resolveArgv resolves argv[0] against pathEnv and interposes its shebang
// interpreter, if any. The target process may snapshot PATH at start and
// never honour updates, so the interpreter has to be resolved up front.
func resolveArgv(argv []string, pathEnv string) ([]string, error) {
	binary, err := lookPath(argv[0], pathEnv)
	if err != nil {
		return nil, err
	}

	resolved := append([]string{binary}, argv[1:]...)

	interp, interpArg := readShebang(binary)
	if interp == "" {
		return resolved, nil
	}

	interpBinary, err := lookPath(interp, pathEnv)
	if err != nil {
		return nil, err
	}

	head := []string{interpBinary}
	if interpArg != "" {
		head = append(head, interpArg)
	}
	return append(head, resolved...), nil
}

// lookPath searches pathEnv for an executable called name. Names already
// containing a path separator are only checked in place.
func lookPath(name string, pathEnv string) (string, error) {
	if strings.ContainsRune(name, '/') {
		if isExecutable(name) {
			return name, nil
		}
		return "", &ExecutableNotFoundError{Binary: name, Path: pathEnv}
	}

	for _, dir := range filepath.SplitList(pathEnv) {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	return "", &ExecutableNotFoundError{Binary: name, Path: pathEnv}
}

func isExecutable(pth string) bool {
	info, err := os.Stat(pth)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0111 != 0
}

// readShebang returns the interpreter and its optional single argument of
// a script, or empty strings for regular binaries.
func readShebang(binary string) (string, string) {
	f, err := os.Open(binary)
	if err != nil {
		return "", ""
	}
	defer f.Close()

	head := make([]byte, 256)
	n, err := f.Read(head)
	if err != nil || n < 3 || head[0] != '#' || head[1] != '!' {
		return "", ""
	}

	line := string(head[2:n])
	if idx := strings.IndexByte(line, '\n'); idx != -1 {
		line = line[:idx]
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", ""
	}
	if len(fields) > 1 {
		return fields[0], fields[1]
	}
	return fields[0], ""
}
