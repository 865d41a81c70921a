// Package testutil provides shared test helpers for setting up content roots and databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "quire-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// ContentRoot creates a temporary content root holding files (slash paths
// relative to the root mapped to their contents).
func ContentRoot(t *testing.T, files map[string]string) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		WriteFile(t, dir, rel, content)
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WriteFile writes content to rel under dir, creating parent directories.
func WriteFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// ButtonDoc is a docs page exercising the full transform chain.
const ButtonDoc = "---\n" +
	"title: Button\n" +
	"description: Trigger an action or event\n" +
	"status: stable\n" +
	"---\n" +
	"\n" +
	"## Usage\n" +
	"\n" +
	"Buttons trigger actions.\n" +
	"\n" +
	"```tsx title=\"button.tsx\" {2}\n" +
	"import { Button } from '@quire/react'\n" +
	"const App = () => <Button>Click</Button>\n" +
	"export default App\n" +
	"```\n" +
	"\n" +
	":::note\n" +
	"Use one primary button per view.\n" +
	":::\n" +
	"\n" +
	"### Variants\n" +
	"\n" +
	"- solid\n" +
	"- outline\n"
