package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

const gitignoreComment = "# vtree local config and state"

// EnsureGitignored adds .vtree/ to root/.gitignore unless a line already
// covers it. The file is created when missing.
func EnsureGitignored(root string) error {
	path := filepath.Join(root, ".gitignore")

	present, err := gitignoreCovers(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if present {
		return nil
	}
	return appendGitignore(path, DirName+"/")
}

func gitignoreCovers(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if coversDir(line) {
			return true, nil
		}
	}
	return false, scanner.Err()
}

// coversDir reports whether a .gitignore line ignores the whole DirName
// directory.
func coversDir(line string) bool {
	switch strings.TrimPrefix(line, "/") {
	case DirName, DirName + "/", DirName + "/*", DirName + "/**", DirName + "/**/*":
		return true
	}
	return false
}

func appendGitignore(path, pattern string) error {
	content, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	var sb strings.Builder
	if len(content) > 0 {
		if content[len(content)-1] != '\n' {
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(gitignoreComment + "\n" + pattern + "\n")
	_, err = f.WriteString(sb.String())
	return err
}
