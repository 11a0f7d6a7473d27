// internal/evaluation/evaluator.go
// Package evaluation scores the retrieval and generation quality of the
// pipeline over a set of test questions.
package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mwiater/pdfrag/internal/generator"
	"github.com/mwiater/pdfrag/internal/logging"
	"github.com/mwiater/pdfrag/internal/rag"
	"github.com/mwiater/pdfrag/internal/util"
	"github.com/mwiater/pdfrag/internal/vectorindex"
)

// TimestampLayout is the local-time format of evaluation_timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

const retrievedContextChars = 500

// State is the evaluator's position in a run.
type State int

const (
	StateIdle State = iota
	StateLoadingQuestions
	StateQuerying
	StateGenerating
	StateScoring
	StateAggregating
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoadingQuestions:
		return "loading_questions"
	case StateQuerying:
		return "querying"
	case StateGenerating:
		return "generating"
	case StateScoring:
		return "scoring"
	case StateAggregating:
		return "aggregating"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// LoadQuestions reads a test-question file.
func LoadQuestions(path string) ([]TestQuestion, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	var set QuestionSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("parse questions %s: %w", path, err)
	}
	if len(set.TestQuestions) == 0 {
		return nil, fmt.Errorf("no test questions in %s", path)
	}
	for i, q := range set.TestQuestions {
		if strings.TrimSpace(q.Question) == "" {
			return nil, fmt.Errorf("test question %d (id %s) is blank", i+1, q.ID)
		}
	}
	return set.TestQuestions, nil
}

// Evaluator runs questions through the serving path and scores the results.
type Evaluator struct {
	Retriever *rag.Retriever
	Generator *generator.Generator
	// Judge is nil when judging is disabled.
	Judge *Judge
	TopK  int
	// Out receives progress lines; nil discards them.
	Out io.Writer
	// Now defaults to time.Now.
	Now func() time.Time

	mu    sync.Mutex
	state State
}

// State returns the current run state.
func (e *Evaluator) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Evaluator) setState(s State) {
	e.mu.Lock()
	prev := e.state
	e.state = s
	e.mu.Unlock()
	if prev != s {
		logging.Logf(logging.Eval, "state %s -> %s", prev, s)
	}
}

func (e *Evaluator) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Evaluator) printf(format string, args ...any) {
	if e.Out != nil {
		fmt.Fprintf(e.Out, format, args...)
	}
}

// Evaluate runs and scores a single question. Errors come only from the
// embedder or the index; generation and judge failures are recorded.
func (e *Evaluator) Evaluate(ctx context.Context, q TestQuestion) (Result, error) {
	e.setState(StateQuerying)
	start := e.now()
	retrieval, err := e.Retriever.Retrieve(ctx, q.Question, e.TopK)
	if err != nil {
		return Result{}, err
	}

	e.setState(StateGenerating)
	var gen generator.Result
	if e.Generator == nil {
		gen = generator.Result{Kind: generator.KindDegraded, Reason: generator.RetrievalOnlyMessage}
	} else {
		gen = e.Generator.Generate(ctx, q.Question, retrieval.Matches)
	}
	responseTime := e.now().Sub(start).Seconds()

	e.setState(StateScoring)
	answer := gen.String()
	contextText := rag.ContextText(retrieval.Matches)

	answerVec, err := e.Retriever.Embedder.EmbedOne(ctx, answer)
	if err != nil {
		return Result{}, fmt.Errorf("embed answer: %w", err)
	}
	faithfulness := 0.0
	if strings.TrimSpace(contextText) != "" {
		contextVec, err := e.Retriever.Embedder.EmbedOne(ctx, contextText)
		if err != nil {
			return Result{}, fmt.Errorf("embed context: %w", err)
		}
		faithfulness = vectorindex.Cosine(answerVec, contextVec)
	}

	judged := JudgeScores{Error: "LLM judge disabled"}
	if e.Judge != nil {
		judged = e.Judge.Score(ctx, q.Question, answer, contextText)
	}

	return Result{
		QuestionID:          q.ID,
		Question:            q.Question,
		Category:            q.Category,
		Difficulty:          q.Difficulty,
		GeneratedAnswer:     answer,
		AnswerKind:          gen.Kind.String(),
		ResponseTime:        responseTime,
		RetrievalEvaluation: EvaluateRetrieval(retrieval.Matches, q.RelevantSources),
		AnswerRelevance:     vectorindex.Cosine(retrieval.Vector, answerVec),
		Faithfulness:        faithfulness,
		LLMJudgeScores:      judged,
		RetrievedContext:    util.TruncateRunes(contextText, retrievedContextChars),
		Matches:             retrieval.Matches,
	}, nil
}

// EvaluateRetrieval computes precision@k by substring match against the
// relevant sources, and the mean match score.
func EvaluateRetrieval(matches []vectorindex.Match, relevant []string) RetrievalEvaluation {
	sources := rag.Sources(matches)
	eval := RetrievalEvaluation{RetrievedSources: sources, NumRetrieved: len(matches)}
	if len(matches) == 0 {
		return eval
	}
	hits := 0
	for _, src := range sources {
		for _, rel := range relevant {
			if strings.Contains(src, rel) {
				hits++
				break
			}
		}
	}
	total := 0.0
	for _, m := range matches {
		total += m.Score
	}
	eval.PrecisionAtK = float64(hits) / float64(len(matches))
	eval.AvgSimilarityScore = total / float64(len(matches))
	return eval
}

// RunFile loads questions from path and runs them.
func (e *Evaluator) RunFile(ctx context.Context, questionsPath, outputPath string) (Report, error) {
	e.setState(StateLoadingQuestions)
	questions, err := LoadQuestions(questionsPath)
	if err != nil {
		e.setState(StateIdle)
		return Report{}, err
	}
	return e.Run(ctx, questions, outputPath)
}

// Run evaluates questions in order. If a question fails or ctx is cancelled
// the completed results are still aggregated and written, marked partial,
// and the error is returned with the report.
func (e *Evaluator) Run(ctx context.Context, questions []TestQuestion, outputPath string) (Report, error) {
	e.printf("Starting evaluation with %d questions...\n", len(questions))
	results := make([]Result, 0, len(questions))
	var runErr error
	for i, q := range questions {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("evaluation interrupted: %w", err)
			break
		}
		e.printf("[%d/%d] Evaluating: %s\n", i+1, len(questions), q.Question)
		res, err := e.evaluateSafely(ctx, q)
		if err != nil {
			runErr = fmt.Errorf("question %s: %w", q.ID, err)
			break
		}
		results = append(results, res)
	}

	e.setState(StateAggregating)
	report := Report{
		Summary:             Summarize(results),
		DetailedResults:     results,
		EvaluationTimestamp: e.now().Format(TimestampLayout),
	}
	if runErr != nil {
		logging.Logf(logging.Eval, "run stopped after %d/%d questions: %v", len(results), len(questions), runErr)
		report.Partial = true
		report.Error = runErr.Error()
	}

	if outputPath != "" {
		if err := WriteReport(outputPath, report); err != nil {
			e.setState(StateDone)
			return report, errors.Join(runErr, err)
		}
		e.printf("Results saved to %s\n", outputPath)
	}
	e.setState(StateDone)
	return report, runErr
}

func (e *Evaluator) evaluateSafely(ctx context.Context, q TestQuestion) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.Evaluate(ctx, q)
}

// Summarize averages the per-question metrics. Judge averages use only
// results without a judge error.
func Summarize(results []Result) Summary {
	s := Summary{NumQuestions: len(results)}
	if len(results) == 0 {
		return s
	}
	n := float64(len(results))
	var judge JudgeMetrics
	for _, r := range results {
		s.RetrievalMetrics.AvgPrecisionAtK += r.RetrievalEvaluation.PrecisionAtK
		s.RetrievalMetrics.AvgSimilarityScore += r.RetrievalEvaluation.AvgSimilarityScore
		s.GenerationMetrics.AvgAnswerRelevance += r.AnswerRelevance
		s.GenerationMetrics.AvgFaithfulness += r.Faithfulness
		s.GenerationMetrics.AvgResponseTime += r.ResponseTime
		if r.LLMJudgeScores.OK() {
			judge.AvgRelevance += r.LLMJudgeScores.Relevance
			judge.AvgAccuracy += r.LLMJudgeScores.Accuracy
			judge.AvgCompleteness += r.LLMJudgeScores.Completeness
			judge.AvgClarity += r.LLMJudgeScores.Clarity
			judge.scored++
		}
	}
	s.RetrievalMetrics.AvgPrecisionAtK /= n
	s.RetrievalMetrics.AvgSimilarityScore /= n
	s.GenerationMetrics.AvgAnswerRelevance /= n
	s.GenerationMetrics.AvgFaithfulness /= n
	s.GenerationMetrics.AvgResponseTime /= n
	if judge.scored > 0 {
		k := float64(judge.scored)
		judge.AvgRelevance /= k
		judge.AvgAccuracy /= k
		judge.AvgCompleteness /= k
		judge.AvgClarity /= k
		s.LLMJudgeMetrics = judge
	}
	return s
}
