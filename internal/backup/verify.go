package backup

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Automaat/shader-buster/internal/fsys"
)

func writeChecksums(f fsys.FS, dir string, sums map[string]string) (err error) {
	names := make([]string, 0, len(sums))
	for name := range sums {
		names = append(names, name)
	}
	sort.Strings(names)

	out, err := f.OpenFile(filepath.Join(dir, checksumsFile), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(out)
	for _, name := range names {
		if _, err := fmt.Fprintf(w, "%s  %s\n", sums[name], name); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Verify re-hashes every file listed in the snapshot's checksums and returns
// one problem description per missing or modified file.
func (s *Service) Verify(rec Record) ([]string, error) {
	in, err := s.fs.Open(filepath.Join(rec.Root, checksumsFile))
	if err != nil {
		return nil, fmt.Errorf("open checksums: %w", err)
	}
	defer in.Close()

	var problems []string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		want, name, ok := strings.Cut(line, "  ")
		if !ok {
			problems = append(problems, fmt.Sprintf("malformed line: %q", line))
			continue
		}

		got, err := sha256File(s.fs, filepath.Join(rec.Root, filepath.FromSlash(name)))
		switch {
		case os.IsNotExist(err):
			problems = append(problems, "missing: "+name)
		case err != nil:
			problems = append(problems, fmt.Sprintf("unreadable: %s: %v", name, err))
		case !strings.EqualFold(want, got):
			problems = append(problems, "modified: "+name)
		}
	}
	if err := scanner.Err(); err != nil {
		return problems, fmt.Errorf("read checksums: %w", err)
	}
	return problems, nil
}
