package bootstrap

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// gitignoreEntries keep the local SQLite files out of version control.
// config.yaml stays tracked so a team shares database settings.
var gitignoreEntries = []string{
	"# plank local database",
	".plank/plank.db",
	".plank/plank.db-journal",
	".plank/plank.db-wal",
	".plank/plank.db-shm",
}

// updateGitignore appends the missing plank entries to .gitignore.
func updateGitignore(workDir string) error {
	gitignorePath := filepath.Join(workDir, ".gitignore")

	existing := make(map[string]bool)
	if file, err := os.Open(gitignorePath); err == nil {
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			existing[strings.TrimSpace(scanner.Text())] = true
		}
		err := scanner.Err()
		file.Close()
		if err != nil {
			return fmt.Errorf("read .gitignore: %w", err)
		}
	}

	var toAdd []string
	for _, entry := range gitignoreEntries {
		if !existing[entry] {
			toAdd = append(toAdd, entry)
		}
	}
	if len(toAdd) == 0 {
		return nil
	}

	file, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open .gitignore: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat .gitignore: %w", err)
	}
	var b strings.Builder
	if info.Size() > 0 {
		b.WriteString("\n")
	}
	for _, entry := range toAdd {
		b.WriteString(entry + "\n")
	}
	if _, err := file.WriteString(b.String()); err != nil {
		return fmt.Errorf("write .gitignore: %w", err)
	}
	return nil
}
