package session

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/SijoOrganization/sijo-qcm-front/internal/model"
)

var ErrAnswerTypeMismatch = errors.New("answer type does not match question type")

// AnswerStore keeps the candidate's latest answer per question id, along with
// the seconds spent on each question. Last write wins.
//
// Every write bumps a per-question revision; MarkSent records the revision
// the server acknowledged, so answers changed since their last submit can be
// found with Unsent.
type AnswerStore struct {
	mu       sync.RWMutex
	total    int
	declared map[string]model.QuestionType
	answers  map[string]model.Answer
	spent    map[string]int
	rev      map[string]uint64
	sent     map[string]uint64
}

func NewAnswerStore(totalQuestions int) *AnswerStore {
	return &AnswerStore{
		total:    totalQuestions,
		declared: make(map[string]model.QuestionType),
		answers:  make(map[string]model.Answer),
		spent:    make(map[string]int),
		rev:      make(map[string]uint64),
		sent:     make(map[string]uint64),
	}
}

// SetTotal records how many questions the attempt has.
func (s *AnswerStore) SetTotal(n int) {
	s.mu.Lock()
	s.total = n
	s.mu.Unlock()
}

// Declare records the type of a question once it has been displayed. Later
// answers for that id must match it. An answer stored earlier under a
// different type (e.g. a stale draft) is dropped.
func (s *AnswerStore) Declare(questionID string, t model.QuestionType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.declared[questionID] = t
	if a, ok := s.answers[questionID]; ok && a.Type() != t {
		delete(s.answers, questionID)
	}
}

// SetAnswer replaces the answer for questionID.
func (s *AnswerStore) SetAnswer(questionID string, a model.Answer) error {
	if questionID == "" || a == nil {
		return model.ErrInvalidAnswer
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.declared[questionID]; ok && t != a.Type() {
		return fmt.Errorf("%w: question %s is %s, got %s", ErrAnswerTypeMismatch, questionID, t, a.Type())
	}
	s.answers[questionID] = a
	s.rev[questionID]++
	return nil
}

func (s *AnswerStore) GetAnswer(questionID string) (model.Answer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.answers[questionID]
	return a, ok
}

// HasAnswer reports whether questionID holds a non-empty answer.
// Whitespace-only text or code does not count.
func (s *AnswerStore) HasAnswer(questionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.answers[questionID]
	return ok && !a.IsEmpty()
}

// Answered returns how many questions hold a non-empty answer.
func (s *AnswerStore) Answered() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.answers {
		if !a.IsEmpty() {
			n++
		}
	}
	return n
}

// AllAnswered is true once every question of the attempt has a non-empty answer.
func (s *AnswerStore) AllAnswered() bool {
	s.mu.RLock()
	total := s.total
	s.mu.RUnlock()
	return total > 0 && s.Answered() >= total
}

// AddTime credits seconds to the time spent on questionID.
func (s *AnswerStore) AddTime(questionID string, seconds int) {
	if questionID == "" || seconds <= 0 {
		return
	}
	s.mu.Lock()
	s.spent[questionID] += seconds
	s.mu.Unlock()
}

func (s *AnswerStore) TimeSpent(questionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spent[questionID]
}

// Request builds the submit payload for questionID. ok is false when there
// is nothing worth sending.
func (s *AnswerStore) Request(questionID string) (req model.SubmitAnswerRequest, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, found := s.answers[questionID]
	if !found || a.IsEmpty() {
		return req, false
	}
	return model.NewSubmitAnswerRequest(questionID, a, s.spent[questionID]), true
}

// Pending is Request plus the revision the payload was built from, to be
// handed back to MarkSent once the server accepted it.
func (s *AnswerStore) Pending(questionID string) (req model.SubmitAnswerRequest, rev uint64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, found := s.answers[questionID]
	if !found || a.IsEmpty() {
		return req, 0, false
	}
	return model.NewSubmitAnswerRequest(questionID, a, s.spent[questionID]), s.rev[questionID], true
}

// MarkSent records that revision rev of questionID reached the server. An
// older acknowledgement never hides a newer write.
func (s *AnswerStore) MarkSent(questionID string, rev uint64) {
	s.mu.Lock()
	if rev > s.sent[questionID] {
		s.sent[questionID] = rev
	}
	s.mu.Unlock()
}

// IsUnsent reports whether questionID holds a non-empty answer written after
// its last acknowledged submit.
func (s *AnswerStore) IsUnsent(questionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unsentLocked(questionID)
}

// Unsent lists, in id order, the questions whose latest answer the server
// has not acknowledged.
func (s *AnswerStore) Unsent() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for qid := range s.answers {
		if s.unsentLocked(qid) {
			ids = append(ids, qid)
		}
	}
	slices.Sort(ids)
	return ids
}

func (s *AnswerStore) unsentLocked(questionID string) bool {
	a, ok := s.answers[questionID]
	return ok && !a.IsEmpty() && s.rev[questionID] > s.sent[questionID]
}

// Reset forgets every answer and timing.
func (s *AnswerStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.declared = make(map[string]model.QuestionType)
	s.answers = make(map[string]model.Answer)
	s.spent = make(map[string]int)
	s.rev = make(map[string]uint64)
	s.sent = make(map[string]uint64)
}
