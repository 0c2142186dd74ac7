package seo

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/seoscope/pkg/quota"
	"github.com/dmitrymomot/seoscope/pkg/validator"
)

var exportHeader = []string{"keyword", "search_volume", "cpc", "competition", "difficulty", "intent"}

// ExportKeywordIdeas meters one export and renders the ideas as CSV.
func (s *Service) ExportKeywordIdeas(ctx context.Context, userID uuid.UUID, in ExportInput) ([]byte, error) {
	if err := validator.Struct(in); err != nil {
		return nil, err
	}

	d, err := s.gate.CheckAndIncrementBy(ctx, userID, quota.Exports, 1)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return nil, d.Err()
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, idea := range in.Ideas {
		record := []string{
			cell(idea.Keyword),
			strconv.FormatInt(idea.SearchVolume, 10),
			strconv.FormatFloat(idea.CPC, 'f', 2, 64),
			strconv.FormatFloat(idea.Competition, 'f', 2, 64),
			strconv.Itoa(idea.Difficulty),
			cell(idea.Intent),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// cell keeps spreadsheet apps from evaluating user-supplied text as a formula.
func cell(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}
