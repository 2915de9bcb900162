// Package data loads the skill tree source tables. The tables are plain CSV:
// one file of per-level skill rows and one file of child/parent edges. The
// loaders produce flat records; grouping and validation happen at graph
// construction.
package data

import (
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/0xaya/guild-skill-tree-sub000/internal/entities"
	"github.com/0xaya/guild-skill-tree-sub000/internal/errors"
)

// Column names of the skill table. Material and effect columns are
// prefixed, one column per material or effect key.
const (
	colID           = "id"
	colLevel        = "level"
	colName         = "name"
	colCategory     = "category"
	colRequiredRank = "requiredRank"
	colCoins        = "coins"
	colX            = "x"
	colY            = "y"

	materialPrefix = "material:"
	effectPrefix   = "effect:"
)

// LoadSkillRecords reads the per-level skill table from a CSV file.
func LoadSkillRecords(path string) ([]entities.SkillRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to open skill table")
	}
	defer func() { _ = f.Close() }()

	records, err := ReadSkillRecords(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read skill table %s", path)
	}
	return records, nil
}

// ReadSkillRecords parses per-level skill rows. The first row is a header;
// unknown columns are ignored so the table can carry rendering-only data.
// Rows that cannot be parsed are skipped with a warning, not fatal: one bad
// row must not take the whole tree down.
func ReadSkillRecords(r io.Reader) ([]entities.SkillRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, errors.InvalidArgument("skill table has no header row")
	}
	cols := indexColumns(header)
	if _, ok := cols[colID]; !ok {
		return nil, errors.InvalidArgumentf("skill table header is missing %q", colID)
	}
	if _, ok := cols[colLevel]; !ok {
		return nil, errors.InvalidArgumentf("skill table header is missing %q", colLevel)
	}

	var out []entities.SkillRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.CodeInvalidArgument, "malformed skill table")
		}

		rec, ok := parseSkillRow(header, cols, row, line)
		if !ok {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseSkillRow(header []string, cols map[string]int, row []string, line int) (entities.SkillRecord, bool) {
	rec := entities.SkillRecord{
		ID:       field(row, cols, colID),
		Name:     field(row, cols, colName),
		Category: field(row, cols, colCategory),
	}

	level, err := strconv.Atoi(field(row, cols, colLevel))
	if err != nil || level < 1 {
		slog.Warn("skipping skill row with bad level",
			"line", line,
			"skill_id", rec.ID,
			"level", field(row, cols, colLevel))
		return entities.SkillRecord{}, false
	}
	rec.Level = level
	rec.RequiredRank = intField(row, cols, colRequiredRank)
	rec.Coins = intField(row, cols, colCoins)
	rec.X = floatField(row, cols, colX)
	rec.Y = floatField(row, cols, colY)

	for i, name := range header {
		if i >= len(row) || row[i] == "" {
			continue
		}
		switch {
		case strings.HasPrefix(name, materialPrefix):
			qty, err := strconv.Atoi(row[i])
			if err != nil || qty <= 0 {
				continue
			}
			if rec.Materials == nil {
				rec.Materials = make(map[string]int)
			}
			rec.Materials[strings.TrimPrefix(name, materialPrefix)] = qty
		case strings.HasPrefix(name, effectPrefix):
			val, err := strconv.ParseFloat(row[i], 64)
			if err != nil {
				continue
			}
			if rec.Effects == nil {
				rec.Effects = make(map[string]float64)
			}
			rec.Effects[strings.TrimPrefix(name, effectPrefix)] = val
		}
	}

	return rec, true
}

// LoadParentEdges reads the child/parent edge table from a CSV file.
func LoadParentEdges(path string) (map[string][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to open edge table")
	}
	defer func() { _ = f.Close() }()

	edges, err := ReadParentEdges(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read edge table %s", path)
	}
	return edges, nil
}

// ReadParentEdges parses child/parent rows into the adjacency the graph
// builder consumes. The header row is required; rows missing either id are
// skipped. Dangling ids are NOT resolved here, that is the builder's job.
func ReadParentEdges(r io.Reader) (map[string][]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = 2

	if _, err := cr.Read(); err != nil {
		return nil, errors.InvalidArgument("edge table has no header row")
	}

	edges := make(map[string][]string)
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.CodeInvalidArgument, "malformed edge table")
		}

		child, parent := strings.TrimSpace(row[0]), strings.TrimSpace(row[1])
		if child == "" || parent == "" {
			slog.Warn("skipping edge row with missing id", "line", line)
			continue
		}
		edges[child] = append(edges[child], parent)
	}
	return edges, nil
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	return cols
}

func field(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func intField(row []string, cols map[string]int, name string) int {
	v, err := strconv.Atoi(field(row, cols, name))
	if err != nil {
		return 0
	}
	return v
}

func floatField(row []string, cols map[string]int, name string) float64 {
	v, err := strconv.ParseFloat(field(row, cols, name), 64)
	if err != nil {
		return 0
	}
	return v
}
