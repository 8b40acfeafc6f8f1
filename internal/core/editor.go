package core

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// getEditor returns the user's editor
func getEditor() string {
	if editor := os.Getenv("VISUAL"); editor != "" {
		return editor
	}
	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor
	}
	if runtime.GOOS == "windows" {
		return "notepad"
	}
	return "vi"
}

func invokeEditor(filename string) error {
	editor := getEditor()

	if _, err := exec.LookPath(editor); err != nil {
		return fmt.Errorf("editor '%s' not found: %w\nPlease set VISUAL or EDITOR environment variable", editor, err)
	}

	cmd := exec.Command(editor, filename)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("editor exited with code %d", exitErr.ExitCode())
	}
	return err
}

// EditText opens text in the user's editor and returns the result. The
// temporary file is private to the user and removed afterwards. A trailing
// newline added by the editor is dropped when text had none.
func EditText(text []byte) ([]byte, error) {
	f, err := os.CreateTemp("", "upm-notes-*.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	name := f.Name()
	defer os.Remove(name)

	if err := f.Chmod(0600); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to secure temp file: %w", err)
	}
	if _, err := f.Write(text); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := invokeEditor(name); err != nil {
		return nil, err
	}

	edited, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read edited file: %w", err)
	}
	if !bytes.HasSuffix(text, []byte("\n")) {
		edited = bytes.TrimSuffix(edited, []byte("\n"))
		edited = bytes.TrimSuffix(edited, []byte("\r"))
	}
	return edited, nil
}
