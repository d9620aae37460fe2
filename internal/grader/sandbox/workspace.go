package sandbox

import (
	"os"
	"path/filepath"

	appErr "codearena/pkg/errors"
)

// Workspace is an isolated per-evaluation working directory.
// It must be removed on every exit path to prevent disk exhaustion
// under load; callers defer Close right after creation.
type Workspace struct {
	Dir string
}

// NewWorkspace creates a fresh working directory under root.
func NewWorkspace(root, submissionID string) (*Workspace, error) {
	if root == "" {
		return nil, appErr.ValidationError("work_root", "required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, appErr.Wrapf(err, appErr.EvalSystemError, "create work root failed")
	}
	dir, err := os.MkdirTemp(root, submissionID+"-*")
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.EvalSystemError, "create workspace failed")
	}
	return &Workspace{Dir: dir}, nil
}

// WriteFile materializes a file inside the workspace and returns its path.
func (w *Workspace) WriteFile(name, content string) (string, error) {
	if name == "" {
		return "", appErr.ValidationError("file_name", "required")
	}
	path := filepath.Join(w.Dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", appErr.Wrapf(err, appErr.EvalSystemError, "write workspace file failed")
	}
	return path, nil
}

// Close removes the workspace directory and everything in it.
func (w *Workspace) Close() error {
	if w == nil || w.Dir == "" {
		return nil
	}
	return os.RemoveAll(w.Dir)
}
