package evaluation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mwiater/pdfrag/internal/embedding"
	"github.com/mwiater/pdfrag/internal/generator"
	"github.com/mwiater/pdfrag/internal/providers"
	"github.com/mwiater/pdfrag/internal/rag"
	"github.com/mwiater/pdfrag/internal/vectorindex"
)

type fakeIndex struct {
	matches []vectorindex.Match
	failOn  int
	calls   int
}

func (f *fakeIndex) EnsureIndex(ctx context.Context, spec vectorindex.Spec) error { return nil }
func (f *fakeIndex) Upsert(ctx context.Context, ns string, records []vectorindex.Record) (int, error) {
	return len(records), nil
}
func (f *fakeIndex) Query(ctx context.Context, ns string, vector []float32, topK int, includeMetadata bool) ([]vectorindex.Match, error) {
	f.calls++
	if f.failOn > 0 && f.calls == f.failOn {
		return nil, errors.New("index unavailable")
	}
	if topK < len(f.matches) {
		return f.matches[:topK], nil
	}
	return f.matches, nil
}
func (f *fakeIndex) Stats(ctx context.Context, ns string) (vectorindex.Stats, error) {
	return vectorindex.Stats{}, nil
}
func (f *fakeIndex) Close() error { return nil }

type scriptedProvider struct {
	reply string
	err   error
}

func (s scriptedProvider) Complete(ctx context.Context, req providers.CompletionRequest) (providers.Completion, error) {
	if s.err != nil {
		return providers.Completion{}, s.err
	}
	return providers.Completion{Text: s.reply}, nil
}
func (s scriptedProvider) Name() string { return "scripted" }
func (s scriptedProvider) Close() error { return nil }

func threeMatches() []vectorindex.Match {
	return []vectorindex.Match{
		{ID: "1", Score: 0.9, Metadata: &vectorindex.RecordMetadata{Text: "HDFC MoneyBack annual fee is 500.", Source: "hdfc_fees.pdf"}},
		{ID: "2", Score: 0.6, Metadata: &vectorindex.RecordMetadata{Text: "SBI cashback on online shopping.", Source: "sbi_rewards.pdf"}},
		{ID: "3", Score: 0.3, Metadata: &vectorindex.RecordMetadata{Text: "Axis late payment policy.", Source: "axis_policy.pdf"}},
	}
}

func newEvaluator(idx vectorindex.Index, gen *generator.Generator, judge *Judge) *Evaluator {
	fixed := time.Date(2024, 3, 5, 14, 7, 9, 0, time.Local)
	return &Evaluator{
		Retriever: &rag.Retriever{Embedder: embedding.NewHashEmbedder(64), Index: idx, Namespace: "rag-proj", TopK: 3},
		Generator: gen,
		Judge:     judge,
		TopK:      3,
		Now:       func() time.Time { return fixed },
	}
}

func TestPrecisionAtKUsesSubstringMatch(t *testing.T) {
	judge, err := NewJudge(nil, "llama3-8b-8192", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	e := newEvaluator(&fakeIndex{matches: threeMatches()}, generator.New(nil, generator.Options{}), judge)
	questions := []TestQuestion{
		{ID: QuestionID{Value: "1", Numeric: true}, Question: "What is the HDFC annual fee?", RelevantSources: []string{"hdfc"}},
		{ID: QuestionID{Value: "2", Numeric: true}, Question: "What cashback does SBI offer?", RelevantSources: []string{"sbi"}},
	}

	report, err := e.Run(context.Background(), questions, "")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if got := report.Summary.RetrievalMetrics.AvgPrecisionAtK; math.Abs(got-1.0/3.0) > 1e-9 {
		t.Fatalf("expected avg_precision_at_k 1/3, got %f", got)
	}
	if got := report.Summary.RetrievalMetrics.AvgSimilarityScore; math.Abs(got-0.6) > 1e-9 {
		t.Fatalf("expected avg similarity 0.6, got %f", got)
	}
	if report.Summary.NumQuestions != 2 || len(report.DetailedResults) != 2 {
		t.Fatalf("expected two evaluated questions, got %d", len(report.DetailedResults))
	}
	for _, r := range report.DetailedResults {
		if math.Abs(r.RetrievalEvaluation.PrecisionAtK-1.0/3.0) > 1e-9 {
			t.Fatalf("expected precision 1/3 for question %s, got %f", r.QuestionID.Value, r.RetrievalEvaluation.PrecisionAtK)
		}
		if r.LLMJudgeScores.Error != ErrNoJudgeClient {
			t.Fatalf("expected judge error %q, got %+v", ErrNoJudgeClient, r.LLMJudgeScores)
		}
	}
	res := report.DetailedResults[0]
	if res.RetrievalEvaluation.NumRetrieved != 3 || res.RetrievalEvaluation.RetrievedSources[0] != "hdfc_fees.pdf" {
		t.Fatalf("unexpected retrieval evaluation: %+v", res.RetrievalEvaluation)
	}
	if res.GeneratedAnswer != generator.RetrievalOnlyMessage || res.AnswerKind != "degraded" {
		t.Fatalf("expected degraded answer, got %q (%s)", res.GeneratedAnswer, res.AnswerKind)
	}
	if report.EvaluationTimestamp != "2024-03-05 14:07:09" {
		t.Fatalf("unexpected timestamp %q", report.EvaluationTimestamp)
	}
	if e.State() != StateDone {
		t.Fatalf("expected done state, got %s", e.State())
	}
}

func TestEmptyRetrievalScoresZero(t *testing.T) {
	e := newEvaluator(&fakeIndex{}, nil, nil)
	res, err := e.Evaluate(context.Background(), TestQuestion{Question: "anything", RelevantSources: []string{"x"}})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if res.RetrievalEvaluation.PrecisionAtK != 0 || res.Faithfulness != 0 || res.RetrievedContext != "" {
		t.Fatalf("expected zero scores with no matches, got %+v", res)
	}
}

func TestRetrievedContextIsTruncated(t *testing.T) {
	long := strings.Repeat("a", 600)
	idx := &fakeIndex{matches: []vectorindex.Match{{ID: "1", Score: 1, Metadata: &vectorindex.RecordMetadata{Text: long, Source: "a.pdf"}}}}
	e := newEvaluator(idx, nil, nil)
	res, err := e.Evaluate(context.Background(), TestQuestion{Question: "q"})
	if err != nil {
		t.Fatal(err)
	}
	if res.RetrievedContext != strings.Repeat("a", 500)+"..." {
		t.Fatalf("expected 500 chars plus ellipsis, got %d chars", len(res.RetrievedContext))
	}
}

func TestRunWritesPartialReportOnFailure(t *testing.T) {
	out := filepath.Join(t.TempDir(), "evaluation", "results.json")
	e := newEvaluator(&fakeIndex{matches: threeMatches(), failOn: 2}, nil, nil)
	questions := []TestQuestion{
		{ID: QuestionID{Value: "1", Numeric: true}, Question: "first", RelevantSources: []string{"hdfc"}},
		{ID: QuestionID{Value: "2", Numeric: true}, Question: "second"},
		{ID: QuestionID{Value: "3", Numeric: true}, Question: "third"},
	}
	report, err := e.Run(context.Background(), questions, out)
	if err == nil {
		t.Fatal("expected run error")
	}
	if !report.Partial || report.Summary.NumQuestions != 1 || !strings.Contains(report.Error, "index unavailable") {
		t.Fatalf("unexpected partial report: %+v", report.Summary)
	}

	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("expected partial report on disk: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if decoded["partial"] != true {
		t.Fatalf("expected partial=true in file, got %v", decoded["partial"])
	}
	if results, _ := decoded["detailed_results"].([]any); len(results) != 1 {
		t.Fatalf("expected one completed result in file, got %d", len(results))
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := newEvaluator(&fakeIndex{matches: threeMatches()}, nil, nil)
	report, err := e.Run(ctx, []TestQuestion{{Question: "q"}}, "")
	if !errors.Is(err, context.Canceled) || !report.Partial {
		t.Fatalf("expected cancelled partial run, got %v / %+v", err, report)
	}
}

func TestJudgeParsesAndValidates(t *testing.T) {
	cases := []struct {
		name    string
		reply   string
		err     error
		wantErr string
	}{
		{name: "valid", reply: "Here you go:\n{\"relevance\": 4, \"accuracy\": 5, \"completeness\": 3, \"clarity\": 4.5, \"explanation\": \"good\"}\nThanks"},
		{name: "no json", reply: "I cannot rate this.", wantErr: "Could not parse LLM response"},
		{name: "bad json", reply: "{relevance: four}", wantErr: "Could not parse LLM response"},
		{name: "out of range", reply: `{"relevance": 9, "accuracy": 5, "completeness": 3, "clarity": 4}`, wantErr: "failed validation"},
		{name: "missing field", reply: `{"relevance": 3, "accuracy": 5}`, wantErr: "failed validation"},
		{name: "transport", err: errors.New("timeout"), wantErr: "LLM evaluation failed: timeout"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			j, err := NewJudge(scriptedProvider{reply: tc.reply, err: tc.err}, "llama3-8b-8192", 300, 1000)
			if err != nil {
				t.Fatalf("NewJudge error: %v", err)
			}
			got := j.Score(context.Background(), "q", "a", "ctx")
			if tc.wantErr == "" {
				if !got.OK() || got.Relevance != 4 || got.Clarity != 4.5 || got.Explanation != "good" {
					t.Fatalf("unexpected scores: %+v", got)
				}
				return
			}
			if got.OK() || !strings.Contains(got.Error, tc.wantErr) {
				t.Fatalf("expected error containing %q, got %+v", tc.wantErr, got)
			}
			if tc.err == nil && got.RawResponse != tc.reply {
				t.Fatalf("expected raw response to be kept, got %q", got.RawResponse)
			}
		})
	}
}

func TestJudgeWithoutClient(t *testing.T) {
	j, err := NewJudge(nil, "m", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := j.Score(context.Background(), "q", "a", "c"); got.Error != ErrNoJudgeClient {
		t.Fatalf("expected %q, got %+v", ErrNoJudgeClient, got)
	}
}

func TestJudgePromptTruncatesContext(t *testing.T) {
	prompt := JudgePrompt("Q", "A", strings.Repeat("x", 1500), 1000)
	if !strings.Contains(prompt, "Context: "+strings.Repeat("x", 1000)+"...\n") {
		t.Fatal("expected context cut to 1000 chars followed by ...")
	}
	if !strings.Contains(prompt, `{"relevance": <score>`) {
		t.Fatal("expected JSON response instructions")
	}
}

func TestSummarizeAveragesOnlyUsableJudgeScores(t *testing.T) {
	results := []Result{
		{ResponseTime: 1, LLMJudgeScores: JudgeScores{Relevance: 4, Accuracy: 4, Completeness: 2, Clarity: 5}},
		{ResponseTime: 3, LLMJudgeScores: JudgeScores{Relevance: 2, Accuracy: 2, Completeness: 4, Clarity: 3}},
		{ResponseTime: 2, LLMJudgeScores: JudgeScores{Error: "Could not parse LLM response"}},
	}
	s := Summarize(results)
	if s.NumQuestions != 3 || s.GenerationMetrics.AvgResponseTime != 2 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	j := s.LLMJudgeMetrics
	if !j.Available() || j.AvgRelevance != 3 || j.AvgCompleteness != 3 || j.AvgClarity != 4 {
		t.Fatalf("unexpected judge averages: %+v", j)
	}

	none := Summarize([]Result{{LLMJudgeScores: JudgeScores{Error: ErrNoJudgeClient}}})
	raw, _ := json.Marshal(none)
	if !strings.Contains(string(raw), `"llm_judge_metrics":{}`) {
		t.Fatalf("expected empty judge metrics object, got %s", raw)
	}
}

func TestLoadQuestionsAcceptsNumericAndStringIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.json")
	body := `{"test_questions":[
		{"id": 1, "question": "What is the fee?", "category": "fees", "difficulty": "easy", "relevant_sources": ["hdfc"]},
		{"id": "q2", "question": "Cashback?", "relevant_sources": []}
	]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	qs, err := LoadQuestions(path)
	if err != nil {
		t.Fatalf("LoadQuestions error: %v", err)
	}
	if len(qs) != 2 || !qs[0].ID.Numeric || qs[1].ID.Value != "q2" {
		t.Fatalf("unexpected questions: %+v", qs)
	}
	raw, _ := json.Marshal(Result{QuestionID: qs[0].ID})
	if !strings.Contains(string(raw), `"question_id":1`) {
		t.Fatalf("expected numeric id to stay numeric, got %s", raw)
	}

	if err := os.WriteFile(path, []byte(`{"test_questions":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadQuestions(path); err == nil {
		t.Fatal("expected error for empty question list")
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, Report{Summary: Summary{NumQuestions: 2, RetrievalMetrics: RetrievalMetrics{AvgPrecisionAtK: 0.5}}})
	out := buf.String()
	for _, want := range []string{"RAG EVALUATION SUMMARY", "Total Questions: 2", "Precision@3: 0.500"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in summary:\n%s", want, out)
		}
	}
	if strings.Contains(out, "LLM JUDGE SCORES") {
		t.Fatal("expected judge section to be omitted without scores")
	}
}
