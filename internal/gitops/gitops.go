// Package gitops commits the data directory after mutations.
package gitops

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNothingToCommit is returned when the given paths carry no changes.
var ErrNothingToCommit = errors.New("nothing to commit")

// Init initializes a new git repository at dir.
func Init(dir string) error {
	cmd := exec.Command("git", "init")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git init: %s: %w", out, err)
	}
	return nil
}

// IsRepo reports whether dir is the root of a git repository.
func IsRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// Committer commits files of one repository with a fixed author, who is
// also recorded as committer.
type Committer struct {
	Dir         string
	AuthorName  string
	AuthorEmail string
}

// Commit stages paths (relative to Dir or absolute inside it) and commits
// them. Returns the short commit hash, or ErrNothingToCommit when the
// staged tree is unchanged.
func (c Committer) Commit(message string, paths ...string) (string, error) {
	args := append([]string{"add", "--"}, c.relative(paths)...)
	if len(paths) == 0 {
		args = []string{"add", "-A"}
	}
	if _, err := c.git(args...); err != nil {
		return "", err
	}

	diff := exec.Command("git", "diff", "--cached", "--quiet")
	diff.Dir = c.Dir
	if err := diff.Run(); err == nil {
		return "", ErrNothingToCommit
	}

	author := fmt.Sprintf("%s <%s>", c.AuthorName, c.AuthorEmail)
	if _, err := c.git("commit", "-m", message, "--author", author); err != nil {
		return "", err
	}

	out, err := c.git("rev-parse", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// CommitAll stages everything under dir and commits it.
func CommitAll(dir, message, authorName, authorEmail string) (string, error) {
	return Committer{Dir: dir, AuthorName: authorName, AuthorEmail: authorEmail}.Commit(message)
}

func (c Committer) relative(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if rel, err := filepath.Rel(c.Dir, p); err == nil && filepath.IsAbs(p) {
			p = rel
		}
		out = append(out, p)
	}
	return out
}

func (c Committer) git(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(),
		"GIT_COMMITTER_NAME="+c.AuthorName,
		"GIT_COMMITTER_EMAIL="+c.AuthorEmail,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %s: %w", args[0], strings.TrimSpace(stderr.String()), err)
	}
	return string(out), nil
}
