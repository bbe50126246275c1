package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"proficiency-scoring/internal/audioquality"
	"proficiency-scoring/internal/domain"
	"proficiency-scoring/internal/logger"
	"proficiency-scoring/internal/matcher"
	"proficiency-scoring/internal/speaking"
)

// row is one line of the input file.
type row struct {
	ID              string  `json:"id"`
	QuestionID      string  `json:"question_id"`
	Answer          string  `json:"answer,omitempty"`
	Transcript      string  `json:"transcript,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	AudioPath       string  `json:"audio_path,omitempty"`
}

// scoredRow is one line of the output file.
type scoredRow struct {
	ID           string                      `json:"id"`
	QuestionID   string                      `json:"question_id"`
	Strategy     domain.Strategy             `json:"strategy,omitempty"`
	Match        *domain.MatchResult         `json:"match,omitempty"`
	Speaking     *domain.SpeakingScoreResult `json:"speaking,omitempty"`
	AudioQuality *domain.AudioQualityReport  `json:"audio_quality,omitempty"`
	Error        string                      `json:"error,omitempty"`
}

type batchScorer struct {
	questions domain.QuestionRepository
	matcher   *matcher.Matcher
	scorer    *speaking.Scorer
	analyzer  *audioquality.Analyzer
	readAudio func(path string) ([]byte, error)
	workers   int
}

func readRows(r io.Reader) ([]row, error) {
	var rows []row
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var rw row
		if err := json.Unmarshal([]byte(text), &rw); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if rw.ID == "" {
			rw.ID = fmt.Sprintf("line-%d", line)
		}
		rows = append(rows, rw)
	}
	return rows, sc.Err()
}

func writeResults(w io.Writer, results []scoredRow) error {
	enc := json.NewEncoder(w)
	for i := range results {
		if err := enc.Encode(&results[i]); err != nil {
			return err
		}
	}
	return nil
}

// loadQuestions fetches every distinct question once. Unknown questions are
// left out of the map so their rows fail individually.
func (b *batchScorer) loadQuestions(ctx context.Context, rows []row) (map[string]*domain.Question, error) {
	questions := make(map[string]*domain.Question)
	for _, r := range rows {
		if _, seen := questions[r.QuestionID]; seen {
			continue
		}
		q, err := b.questions.GetQuestionByID(ctx, r.QuestionID)
		if err != nil {
			if errors.Is(err, domain.ErrQuestionNotFound) {
				questions[r.QuestionID] = nil
				continue
			}
			return nil, err
		}
		questions[r.QuestionID] = q
	}
	return questions, nil
}

// Run scores all rows and returns results in input order. A row that cannot
// be scored carries its error instead of failing the batch.
func (b *batchScorer) Run(ctx context.Context, rows []row) ([]scoredRow, error) {
	questions, err := b.loadQuestions(ctx, rows)
	if err != nil {
		return nil, err
	}

	results := make([]scoredRow, len(rows))
	g, ctx := errgroup.WithContext(ctx)
	if b.workers > 0 {
		g.SetLimit(b.workers)
	}
	for i := range rows {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = b.scoreRow(questions[rows[i].QuestionID], rows[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (b *batchScorer) scoreRow(q *domain.Question, r row) scoredRow {
	out := scoredRow{ID: r.ID, QuestionID: r.QuestionID}
	if q == nil {
		out.Error = domain.NewQuestionNotFoundError(r.QuestionID).Error()
		return out
	}
	out.Strategy = q.Strategy()

	key, ok := q.Key.(domain.SpeechKey)
	if !ok {
		res, err := b.matcher.Match(q, r.Answer)
		if err != nil {
			out.Error = err.Error()
			return out
		}
		out.Match = res
		return out
	}

	duration := r.DurationSeconds
	if r.AudioPath != "" {
		data, err := b.readAudio(r.AudioPath)
		if err != nil {
			logger.Get().Warn("Failed to read recording", zap.String("row", r.ID), zap.Error(err))
			out.Error = fmt.Sprintf("read audio: %v", err)
			return out
		}
		out.AudioQuality = b.analyzer.AnalyzeWAV(data)
		if duration <= 0 {
			duration = out.AudioQuality.DurationSeconds
		}
	}
	out.Speaking = b.scorer.Score(speaking.Input{
		Transcript:      r.Transcript,
		Keywords:        key.Keywords,
		Context:         key.Context,
		DurationSeconds: duration,
		PointsPossible:  q.Points,
	})
	return out
}
