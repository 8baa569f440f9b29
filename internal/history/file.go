package history

import (
	"cmp"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/hpungsan/nihss/internal/config"
	"github.com/hpungsan/nihss/internal/errors"
	"github.com/hpungsan/nihss/internal/scale"
)

// MaxImportBytes bounds the size of an import file.
const MaxImportBytes = 10 * 1024 * 1024

// ExportOutput contains the result of ExportFile.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportFile writes ExportAll() to path, or to a timestamped file in the
// exports directory when path is empty. The file is written to a temp name
// and renamed into place so an existing file survives a failed export.
func (s *Store) ExportFile(cfg *config.Config, path string) (*ExportOutput, error) {
	now := s.now()

	if path == "" {
		dir, err := s.exportsDirOrDefault()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, fmt.Sprintf("nihss-%s%s", now.Format("2006-01-02T150405"), ExportExt))
	}

	if err := ValidatePath(path, PathCheckWrite, cfg, s.exportsDir); err != nil {
		return nil, err
	}

	records := s.List().Assessments
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"

	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	// Close before rename (required on Windows)
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInvalidRequest("export path is a symlink")
	}

	// os.Rename fails on Windows when the destination exists; the existing
	// file is left untouched in that case.
	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; choose a new path")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	s.log.Info().Str("path", path).Int("count", len(records)).Msg("history exported")
	return &ExportOutput{
		Path:       path,
		Count:      len(records),
		ExportedAt: now.UnixMilli(),
	}, nil
}

// ImportOutput contains the result of ImportFile.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors,omitempty"`
}

// ImportError describes a record that was not imported.
type ImportError struct {
	Index   int    `json:"index"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ImportFile merges records from an export file into the history.
// Records whose id is already present (in history or earlier in the file)
// are skipped. Records must agree with the catalog: known items and option
// values, a total equal to their sum and the severity of that total. Notes
// are trimmed. Existing records keep their stored order; imported records
// are merged in newest first by timestamp.
func (s *Store) ImportFile(cfg *config.Config, path string) (*ImportOutput, error) {
	if !s.Available() {
		return &ImportOutput{}, nil
	}

	if err := ValidatePath(path, PathCheckRead, cfg, s.exportsDir); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxImportBytes+1))
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to read import file: %w", err))
	}
	if len(data) > MaxImportBytes {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("import file exceeds %d bytes", MaxImportBytes))
	}

	var incoming []scale.Assessment
	if err := json.Unmarshal(data, &incoming); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("import file is not a JSON array of assessments: %v", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.readForWrite()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	seen := make(map[string]bool, len(existing)+len(incoming))
	for _, a := range existing {
		seen[a.ID] = true
	}

	out := &ImportOutput{}
	var accepted []scale.Assessment
	for i, a := range incoming {
		a, ierr := normalizeImported(i, a)
		if ierr != nil {
			out.Errors = append(out.Errors, *ierr)
			continue
		}
		if seen[a.ID] {
			out.Skipped++
			continue
		}
		seen[a.ID] = true
		accepted = append(accepted, a)
		out.Imported++
	}

	if out.Imported == 0 {
		return out, nil
	}

	slices.SortStableFunc(accepted, func(a, b scale.Assessment) int {
		return cmp.Compare(b.Timestamp, a.Timestamp)
	})
	if err := s.write(mergeNewestFirst(existing, accepted)); err != nil {
		return nil, errors.NewInternal(err)
	}

	s.log.Info().Str("path", path).Int("imported", out.Imported).Int("skipped", out.Skipped).Msg("history imported")
	return out, nil
}

func normalizeImported(index int, a scale.Assessment) (scale.Assessment, *ImportError) {
	invalid := func(msg string) *ImportError {
		return &ImportError{Index: index, ID: a.ID, Code: "INVALID_RECORD", Message: msg}
	}

	if a.ID == "" {
		return a, invalid("missing id field")
	}
	if !a.Severity.Valid() {
		return a, invalid(fmt.Sprintf("unknown severity %q", a.Severity))
	}
	if a.Timestamp <= 0 {
		return a, invalid("missing timestamp")
	}

	sel, err := scale.NewSelections(a.Items)
	if err != nil {
		var sErr *errors.ScaleError
		if stderrors.As(err, &sErr) {
			return a, invalid(sErr.Message)
		}
		return a, invalid(err.Error())
	}
	if total := scale.CalculateTotal(sel); a.TotalScore != total {
		return a, invalid(fmt.Sprintf("totalScore %d does not match item sum %d", a.TotalScore, total))
	}
	if want := scale.ClassifySeverity(a.TotalScore); a.Severity != want {
		return a, invalid(fmt.Sprintf("severity %q does not match total %d (want %q)", a.Severity, a.TotalScore, want))
	}

	a.Items = sel.Map()
	a.Notes = strings.TrimSpace(a.Notes)
	return a, nil
}

// mergeNewestFirst interleaves incoming (sorted newest first) into existing
// without reordering existing.
func mergeNewestFirst(existing, incoming []scale.Assessment) []scale.Assessment {
	merged := make([]scale.Assessment, 0, len(existing)+len(incoming))
	i, j := 0, 0
	for i < len(existing) && j < len(incoming) {
		if incoming[j].Timestamp >= existing[i].Timestamp {
			merged = append(merged, incoming[j])
			j++
		} else {
			merged = append(merged, existing[i])
			i++
		}
	}
	merged = append(merged, existing[i:]...)
	return append(merged, incoming[j:]...)
}

func (s *Store) exportsDirOrDefault() (string, error) {
	if s.exportsDir != "" {
		return s.exportsDir, nil
	}
	return DefaultExportsDir()
}
