package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/arenadeveloper02/p2-sim-sub006/internal/db"
	"github.com/arenadeveloper02/p2-sim-sub006/internal/domain/search/filter"
)

// StructuralSearch runs a tag-predicate-only query via FT.SEARCH.
// Results carry no similarity signal; entry order is store-native.
func (s *Store) StructuralSearch(ctx context.Context, q *db.StructuralQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.KBIDs) == 0 {
		return nil, fmt.Errorf("at least one knowledge base is required")
	}
	if q.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	queryStr := buildPredicate(q.KBIDs, q.Filters, nil)

	args := []string{q.IndexName, queryStr}
	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}
	args = append(args, "LIMIT", "0", strconv.Itoa(q.Limit), "DIALECT", "2")

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseStructuralResult(raw)
}

// SimilaritySearch runs a KNN query via FT.SEARCH, ordered ascending by
// distance. The threshold is an exclusive upper bound: entries with
// distance >= threshold are dropped before the result is returned.
func (s *Store) SimilaritySearch(ctx context.Context, q *db.SimilarityQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.Threshold <= 0 {
		return nil, fmt.Errorf("threshold must be positive")
	}
	if q.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}
	if len(q.KBIDs) == 0 && len(q.RestrictIDs) == 0 {
		return nil, fmt.Errorf("at least one knowledge base is required")
	}

	predicate := buildPredicate(q.KBIDs, q.Filters, q.RestrictIDs)
	queryStr := fmt.Sprintf("(%s)=>[KNN %d @%s $BLOB AS %s]",
		predicate, q.Limit, db.FieldVector, distanceField)

	args := []string{q.IndexName, queryStr}
	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)+1))
		args = append(args, q.ReturnFields...)
		args = append(args, distanceField)
	}
	args = append(args,
		"SORTBY", distanceField, "ASC",
		"LIMIT", "0", strconv.Itoa(q.Limit),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	sr, err := parseSimilarityResult(raw)
	if err != nil {
		return nil, err
	}

	return applyThreshold(sr, q.Threshold), nil
}

// distanceField is the alias the KNN clause yields the raw cosine distance as.
const distanceField = "__vector_distance"

// applyThreshold drops entries at or beyond the exclusive distance bound.
// Entries arrive sorted ascending, so the first violation ends the scan.
func applyThreshold(sr *db.SearchResult, threshold float64) *db.SearchResult {
	kept := sr.Entries[:0]
	for _, e := range sr.Entries {
		if e.Distance >= threshold {
			break
		}
		kept = append(kept, e)
	}
	sr.Entries = kept
	return sr
}

// --- Result parsing ---

func parseStructuralResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	entries, total, err := parseEntries(raw)
	if err != nil {
		return nil, err
	}
	return &db.SearchResult{Total: total, Entries: entries}, nil
}

func parseSimilarityResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	entries, total, err := parseEntries(raw)
	if err != nil {
		return nil, err
	}

	for i := range entries {
		if distStr, ok := entries[i].Fields[distanceField]; ok {
			if d, perr := strconv.ParseFloat(distStr, 64); perr == nil {
				entries[i].Distance = d
			}
			delete(entries[i].Fields, distanceField)
		}
	}

	return &db.SearchResult{Total: total, Entries: entries}, nil
}

// parseEntries walks the RESP2 2-stride layout: [total, key1, fields1, key2, fields2, ...].
func parseEntries(raw []rueidis.RedisMessage) ([]db.SearchEntry, int, error) {
	if len(raw) == 0 {
		return nil, 0, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, 0, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	entries := make([]db.SearchEntry, 0, total)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		})
	}

	return entries, int(total), nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Predicate building ---

// buildPredicate renders the structural predicate for a query: partition
// membership, the enabled flag, soft-delete exclusion, the compiled tag
// filters, and (when present) a chunk-ID restriction. Fragments are
// AND-joined; OR-groups render as one parenthesized tag set.
func buildPredicate(kbIDs []string, filters filter.Expression, restrictIDs []string) string {
	parts := make([]string, 0, 4+len(filters.Conditions()))

	if len(kbIDs) > 0 {
		parts = append(parts, buildTagSet(db.FieldKBID, kbIDs))
	}
	parts = append(parts,
		fmt.Sprintf("@%s:{1}", db.FieldEnabled),
		fmt.Sprintf("@%s:{0}", db.FieldDocDeleted),
	)

	for _, cond := range filters.Conditions() {
		parts = append(parts, buildTagSet(cond.Slot(), cond.Alternatives()))
	}

	if len(restrictIDs) > 0 {
		parts = append(parts, buildTagSet(db.FieldChunkID, restrictIDs))
	}

	return strings.Join(parts, " ")
}

// buildTagSet renders @field:{v1|v2|...}; tag indexes are case-insensitive so
// this is a case-insensitive equality test per alternative.
func buildTagSet(field string, values []string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = tagEscaper.Replace(v)
	}
	return fmt.Sprintf("@%s:{%s}", field, strings.Join(escaped, "|"))
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	" ", "\\ ",
)

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
