// Package parser turns bucket listing responses into entries.
//
// The bucket's JSON is not always well formed, so decoding runs in stages:
// a structured decode, the same decode after jsonrepair, and finally a text
// scan that pulls fields out of each record chunk with regular expressions.
// Only input that is not valid UTF-8 is rejected.
package parser

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/kaptinlin/jsonrepair"

	"github.com/dmitrijs2005/aikea/internal/common"
	"github.com/dmitrijs2005/aikea/internal/logging"
)

// Stage identifies which decoder produced a result.
type Stage string

const (
	StageStructured Stage = "structured"
	StageRepaired   Stage = "repaired"
	StageScan       Stage = "scan"
)

// Entry is one stored file as described by the bucket. Empty strings mean
// the field was absent.
type Entry struct {
	ID          string
	ExternalID  string
	URL         string
	Tag1        string
	Tag2        string
	Tag3        string
	Description string
	Size        int64
}

// Result is the outcome of Parse.
type Result struct {
	Entries []Entry
	Stage   Stage
}

type Parser struct {
	logger logging.Logger
}

func New(logger logging.Logger) *Parser {
	return &Parser{logger: logger.With("module", "parser")}
}

// Parse decodes data. Entries is never nil on success.
func (p *Parser) Parse(ctx context.Context, data []byte) (*Result, error) {
	if !utf8.Valid(data) {
		return nil, common.ErrMalformedResponse
	}

	entries, err := decodeStructured(data)
	if err == nil {
		p.logger.Debug(ctx, "parsed bucket response", "stage", StageStructured, "entries", len(entries))
		return &Result{Entries: entries, Stage: StageStructured}, nil
	}
	p.logger.Debug(ctx, "structured decode failed", "error", err)

	if repaired, rerr := repair(string(data)); rerr == nil {
		if entries, err := decodeStructured([]byte(repaired)); err == nil {
			p.logger.Info(ctx, "parsed bucket response after repair", "entries", len(entries))
			return &Result{Entries: entries, Stage: StageRepaired}, nil
		}
	}

	entries = scan(string(data))
	p.logger.Info(ctx, "parsed bucket response by text scan", "entries", len(entries))
	return &Result{Entries: entries, Stage: StageScan}, nil
}

// repair runs jsonrepair and turns a panic on hostile input into an error.
func repair(s string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("jsonrepair panic: %v", r)
		}
	}()
	return jsonrepair.JSONRepair(s)
}
