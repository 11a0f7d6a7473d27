// internal/evaluation/types.go
package evaluation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mwiater/pdfrag/internal/vectorindex"
)

// QuestionID accepts a JSON number or string and marshals back in the same form.
type QuestionID struct {
	Value   string
	Numeric bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *QuestionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = QuestionID{Value: s}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("question id must be a number or string: %w", err)
	}
	*id = QuestionID{Value: n.String(), Numeric: true}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (id QuestionID) MarshalJSON() ([]byte, error) {
	if id.Numeric {
		if _, err := strconv.ParseFloat(id.Value, 64); err == nil {
			return []byte(id.Value), nil
		}
	}
	return json.Marshal(id.Value)
}

func (id QuestionID) String() string { return id.Value }

// QuestionSet is the test-question file.
type QuestionSet struct {
	TestQuestions []TestQuestion `json:"test_questions"`
}

// TestQuestion is one evaluation case.
type TestQuestion struct {
	ID              QuestionID `json:"id"`
	Question        string     `json:"question"`
	Category        string     `json:"category,omitempty"`
	Difficulty      string     `json:"difficulty,omitempty"`
	RelevantSources []string   `json:"relevant_sources"`
}

// RetrievalEvaluation scores the matches of one question.
type RetrievalEvaluation struct {
	PrecisionAtK       float64  `json:"precision_at_k"`
	AvgSimilarityScore float64  `json:"avg_similarity_score"`
	RetrievedSources   []string `json:"retrieved_sources"`
	NumRetrieved       int      `json:"num_retrieved"`
}

// JudgeScores is either a set of 1-5 ratings or an error object.
type JudgeScores struct {
	Relevance    float64 `json:"relevance,omitempty"`
	Accuracy     float64 `json:"accuracy,omitempty"`
	Completeness float64 `json:"completeness,omitempty"`
	Clarity      float64 `json:"clarity,omitempty"`
	Explanation  string  `json:"explanation,omitempty"`
	Error        string  `json:"error,omitempty"`
	RawResponse  string  `json:"raw_response,omitempty"`
}

// OK reports whether the scores are usable for aggregation.
func (j JudgeScores) OK() bool { return j.Error == "" }

// Result is the per-question record of the report.
type Result struct {
	QuestionID          QuestionID          `json:"question_id"`
	Question            string              `json:"question"`
	Category            string              `json:"category"`
	Difficulty          string              `json:"difficulty"`
	GeneratedAnswer     string              `json:"generated_answer"`
	AnswerKind          string              `json:"answer_kind"`
	ResponseTime        float64             `json:"response_time"`
	RetrievalEvaluation RetrievalEvaluation `json:"retrieval_evaluation"`
	AnswerRelevance     float64             `json:"answer_relevance"`
	Faithfulness        float64             `json:"faithfulness"`
	LLMJudgeScores      JudgeScores         `json:"llm_judge_scores"`
	RetrievedContext    string              `json:"retrieved_context"`

	Matches []vectorindex.Match `json:"-"`
}

// RetrievalMetrics aggregates retrieval quality.
type RetrievalMetrics struct {
	AvgPrecisionAtK    float64 `json:"avg_precision_at_k"`
	AvgSimilarityScore float64 `json:"avg_similarity_score"`
}

// GenerationMetrics aggregates answer quality and latency.
type GenerationMetrics struct {
	AvgAnswerRelevance float64 `json:"avg_answer_relevance"`
	AvgFaithfulness    float64 `json:"avg_faithfulness"`
	AvgResponseTime    float64 `json:"avg_response_time"`
}

// JudgeMetrics averages the judge ratings. It marshals as {} when no
// question produced usable ratings.
type JudgeMetrics struct {
	AvgRelevance    float64 `json:"avg_relevance,omitempty"`
	AvgAccuracy     float64 `json:"avg_accuracy,omitempty"`
	AvgCompleteness float64 `json:"avg_completeness,omitempty"`
	AvgClarity      float64 `json:"avg_clarity,omitempty"`
	scored          int
}

// Available reports whether any judge ratings were averaged.
func (m JudgeMetrics) Available() bool { return m.scored > 0 }

// Summary is the aggregate section of the report.
type Summary struct {
	NumQuestions      int               `json:"num_questions"`
	RetrievalMetrics  RetrievalMetrics  `json:"retrieval_metrics"`
	GenerationMetrics GenerationMetrics `json:"generation_metrics"`
	LLMJudgeMetrics   JudgeMetrics      `json:"llm_judge_metrics"`
}

// Report is the evaluation output file.
type Report struct {
	Summary             Summary  `json:"summary"`
	DetailedResults     []Result `json:"detailed_results"`
	EvaluationTimestamp string   `json:"evaluation_timestamp"`
	Partial             bool     `json:"partial,omitempty"`
	Error               string   `json:"error,omitempty"`
}
