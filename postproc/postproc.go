// Package postproc runs the step that follows a manifest build. It
// receives the path of the written manifest; what it produces is not
// inspected by the builder.
package postproc

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zapio"

	"github.com/minios-linux/ars/logger"
	"github.com/minios-linux/ars/pack"
)

// Placeholder in a command line is replaced by the manifest path.
const Placeholder = "{manifest}"

// PostProcessor receives the path of a written manifest.
type PostProcessor interface {
	Process(ctx context.Context, manifestPath string) error
}

// Func adapts a function to PostProcessor.
type Func func(ctx context.Context, manifestPath string) error

// Process implements PostProcessor.
func (f Func) Process(ctx context.Context, manifestPath string) error { return f(ctx, manifestPath) }

// Command runs an external program. Every Placeholder argument is replaced
// by the manifest path; without one, the path is appended.
type Command struct {
	Argv []string
	// Dir is the working directory. Default: the current directory.
	Dir    string
	Logger *zap.Logger
}

// Args returns the command line for a manifest.
func (c Command) Args(manifestPath string) []string {
	args := make([]string, 0, len(c.Argv)+1)
	substituted := false
	for _, a := range c.Argv {
		if strings.Contains(a, Placeholder) {
			a = strings.ReplaceAll(a, Placeholder, manifestPath)
			substituted = true
		}
		args = append(args, a)
	}
	if !substituted {
		args = append(args, manifestPath)
	}
	return args
}

// Process implements PostProcessor. Output lines are logged; stderr at
// warn level.
func (c Command) Process(ctx context.Context, manifestPath string) error {
	if len(c.Argv) == 0 {
		return errors.New("empty post-process command")
	}
	args := c.Args(manifestPath)
	if _, err := exec.LookPath(args[0]); err != nil {
		return fmt.Errorf("post-process command %q not found: %w", args[0], err)
	}

	log := logger.OrNop(c.Logger).With(zap.String("command", args[0]))
	stdout := &zapio.Writer{Log: log, Level: zapcore.InfoLevel}
	stderr := &zapio.Writer{Log: log, Level: zapcore.WarnLevel}
	defer stdout.Close()
	defer stderr.Close()

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = c.Dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	log.Debug("running post-process command", zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("post-process %s: %w", args[0], err)
	}
	return nil
}

// Packager writes the asset package of the manifest.
type Packager struct {
	Options pack.Options
}

// Process implements PostProcessor.
func (p Packager) Process(ctx context.Context, manifestPath string) error {
	_, err := pack.Pack(ctx, manifestPath, p.Options)
	return err
}

// Chain runs post-processors in order and stops at the first error.
type Chain []PostProcessor

// Process implements PostProcessor.
func (c Chain) Process(ctx context.Context, manifestPath string) error {
	for _, pp := range c {
		if err := pp.Process(ctx, manifestPath); err != nil {
			return err
		}
	}
	return nil
}

// FromArgv returns the configured post-processor: the command in argv,
// or the built-in packager when argv is empty.
func FromArgv(argv []string, dir string, log *zap.Logger) PostProcessor {
	if len(argv) == 0 {
		return Packager{Options: pack.Options{Logger: log}}
	}
	return Command{Argv: argv, Dir: dir, Logger: log}
}
