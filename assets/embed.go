package assets

import (
	"bufio"
	"embed"
	"io/fs"
	"strings"
)

//go:embed words.txt
var words embed.FS

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations exposes the SQL migration files rooted at the migrations dir.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		// the directory is embedded at compile time
		panic(err)
	}
	return sub
}

func readLines(name string) ([]string, error) {
	f, err := words.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, strings.ToLower(s))
	}
	return out, sc.Err()
}

// WordList returns the embedded default word list (lowercase).
func WordList() ([]string, error) {
	return readLines("words.txt")
}
