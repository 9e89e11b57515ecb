// Package excel bulk-loads cards from CSV and Excel word lists.
package excel

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"

	"github.com/example/flashy/pkg/models"
)

// audioPlaceholder marks a row whose audio file follows the naming convention
const audioPlaceholder = "url"

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath       string // Path to the Excel or CSV file
	SheetName      string // Name of the sheet to import (Excel only)
	PhoneticColumn string // Column with the phonetic transcription (Excel only)
	WordColumn     string // Column with the word (Excel only)
	SentenceColumn string // Column with the example sentence (Excel only)
	AudioColumn    string // Column with the audio reference (Excel only)
	StartRow       int    // The row to start importing from (1-based index)
	AudioDir       string // Directory holding <phonetic>_<word>.MP3 files
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		SheetName:      "Sheet1",
		PhoneticColumn: "A",
		WordColumn:     "B",
		SentenceColumn: "C",
		AudioColumn:    "D",
		StartRow:       2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Skipped        int // already in the catalog
	Errors         []string
}

// CardCreator stores new cards
type CardCreator interface {
	Create(ctx context.Context, card *models.Card) error
}

// Importer loads word lists into the card catalog
type Importer struct {
	cards    CardCreator
	validate *validator.Validate
	logger   *slog.Logger
}

// NewImporter creates an importer writing to cards
func NewImporter(cards CardCreator, logger *slog.Logger) *Importer {
	return &Importer{
		cards:    cards,
		validate: validator.New(),
		logger:   logger,
	}
}

// ImportCards imports cards from an Excel or CSV file. Row problems are
// collected in the result; storage failures stop the import.
func (im *Importer) ImportCards(ctx context.Context, config ImportConfig) (*ImportResult, error) {
	var (
		result *ImportResult
		err    error
	)
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		result, err = im.importFromCSV(ctx, config)
	} else {
		result, err = im.importFromExcel(ctx, config)
	}
	if err != nil {
		return result, err
	}

	im.logger.Info("import finished",
		"file", config.FilePath,
		"processed", result.TotalProcessed,
		"created", result.Created,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
	)
	return result, nil
}

// importFromExcel imports cards from an Excel file
func (im *Importer) importFromExcel(ctx context.Context, config ImportConfig) (*ImportResult, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(config.SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	result := &ImportResult{Errors: make([]string, 0)}
	for i, row := range rows {
		if i < config.StartRow-1 {
			continue
		}
		if isBlank(row) {
			continue
		}

		card := models.Card{
			Phonetic: cell(row, config.PhoneticColumn),
			Word:     cell(row, config.WordColumn),
			Sentence: cell(row, config.SentenceColumn),
			AudioRef: cell(row, config.AudioColumn),
		}
		if err := im.processCard(ctx, card, config, result, i+1); err != nil {
			return result, err
		}
	}
	return result, nil
}

// importFromCSV imports cards from a CSV file with the fields phonetic, word,
// sentence and audio reference
func (im *Importer) importFromCSV(ctx context.Context, config ImportConfig) (*ImportResult, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	result := &ImportResult{Errors: make([]string, 0)}
	rowNum := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return result, fmt.Errorf("error reading CSV: %w", err)
		}

		rowNum++
		if rowNum < config.StartRow || isBlank(row) {
			continue
		}

		card := models.Card{
			Phonetic: field(row, 0),
			Word:     field(row, 1),
			Sentence: field(row, 2),
			AudioRef: field(row, 3),
		}
		if err := im.processCard(ctx, card, config, result, rowNum); err != nil {
			return result, err
		}
	}
	return result, nil
}

// processCard validates and stores one row. Only storage failures are
// returned; everything else is recorded in result.
func (im *Importer) processCard(ctx context.Context, card models.Card, config ImportConfig, result *ImportResult, rowNum int) error {
	result.TotalProcessed++

	card.Word = cleanWord(card.Word)
	card.AudioRef = resolveAudio(card, config.AudioDir)

	if err := im.validate.Struct(card); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
		return nil
	}

	err := im.cards.Create(ctx, &card)
	switch {
	case err == nil:
		result.Created++
	case errors.Is(err, models.ErrDuplicate):
		result.Skipped++
		im.logger.Debug("card already exists", "row", rowNum, "word", card.Word)
	case errors.Is(err, models.ErrPersistence):
		return fmt.Errorf("row %d: %w", rowNum, err)
	default:
		result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
	}
	return nil
}

// resolveAudio expands the "url" placeholder, or a missing reference when an
// audio directory is set, to <dir>/<phonetic>_<word>.MP3
func resolveAudio(card models.Card, audioDir string) string {
	ref := card.AudioRef
	placeholder := ref == "" || strings.EqualFold(ref, audioPlaceholder)
	if !placeholder {
		return ref
	}
	if audioDir == "" {
		return ""
	}

	name := card.Word + ".MP3"
	if phonetic := strings.Trim(card.Phonetic, "[]/ "); phonetic != "" {
		name = phonetic + "_" + name
	}
	return filepath.Join(audioDir, name)
}

// cleanWord removes extra information in parentheses, e.g. "aller (vais, va)"
func cleanWord(word string) string {
	if i := strings.Index(word, "("); i > 0 {
		return strings.TrimSpace(word[:i])
	}
	return strings.TrimSpace(word)
}

func cell(row []string, column string) string {
	if column == "" {
		return ""
	}
	return field(row, columnToIndex(column))
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Helper function to convert Excel column letter to index
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
