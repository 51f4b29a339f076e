package execenv

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

const (
	envPath       = "PATH"
	envVirtualEnv = "VIRTUAL_ENV"
	envPythonHome = "PYTHONHOME"
)

// Context is the execution context passed to every step.
type Context struct {
	dir       string
	env       map[string]string
	venv      string
	savedPath string
}

// New builds a context rooted at dir from environ (KEY=VALUE entries).
func New(dir string, environ []string) *Context {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return &Context{dir: dir, env: env}
}

// FromProcess builds a context from the current process environment.
func FromProcess(dir string) *Context {
	return New(dir, os.Environ())
}

// Dir returns the project directory relative paths are resolved against.
func (c *Context) Dir() string { return c.dir }

// Resolve joins rel to the project directory; absolute paths pass through.
func (c *Context) Resolve(rel string) string {
	if rel == "" {
		return c.dir
	}
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.dir, rel)
}

// Getenv returns the value of key in this context.
func (c *Context) Getenv(key string) string { return c.env[key] }

// Setenv sets key for subsequent commands.
func (c *Context) Setenv(key, value string) { c.env[key] = value }

// Unsetenv removes key for subsequent commands.
func (c *Context) Unsetenv(key string) { delete(c.env, key) }

// Environ returns the environment as sorted KEY=VALUE entries.
func (c *Context) Environ() []string {
	out := make([]string, 0, len(c.env))
	for k, v := range c.env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// VirtualEnv returns the active virtualenv directory, empty when none.
func (c *Context) VirtualEnv() string { return c.venv }

// Activate makes the virtualenv at dir the first place commands are looked up,
// the same way sourcing bin/activate does for a shell.
func (c *Context) Activate(dir string) error {
	dir = c.Resolve(dir)
	bin := filepath.Join(dir, "bin")
	if info, err := os.Stat(bin); err != nil || !info.IsDir() {
		return fmt.Errorf("not a virtualenv: %s", dir)
	}
	if c.venv != "" {
		c.Deactivate()
	}
	c.savedPath = c.env[envPath]
	if c.savedPath == "" {
		c.env[envPath] = bin
	} else {
		c.env[envPath] = bin + string(os.PathListSeparator) + c.savedPath
	}
	c.env[envVirtualEnv] = dir
	delete(c.env, envPythonHome)
	c.venv = dir
	return nil
}

// Deactivate restores the environment saved by Activate.
func (c *Context) Deactivate() {
	if c.venv == "" {
		return
	}
	if c.savedPath == "" {
		delete(c.env, envPath)
	} else {
		c.env[envPath] = c.savedPath
	}
	delete(c.env, envVirtualEnv)
	c.venv = ""
	c.savedPath = ""
}

// LookPath searches the context's PATH for an executable, the way a shell
// would after activation. Names containing a separator are returned as is.
// The returned error wraps exec.ErrNotFound when nothing matches.
func (c *Context) LookPath(name string) (string, error) {
	if name == "" {
		return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
	}
	if strings.ContainsRune(name, filepath.Separator) {
		return name, nil
	}
	for _, dir := range filepath.SplitList(c.env[envPath]) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(c.Resolve(dir), name)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}

// IsNotFound reports whether err came from a failed executable lookup.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}
