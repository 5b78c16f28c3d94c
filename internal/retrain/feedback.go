package retrain

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"material-service/internal/extract"
)

// ErrEntityNotFound - исправленное значение не встречается в тексте.
var ErrEntityNotFound = errors.New("entity not found in text")

// Feedback - одна запись обратной связи (строка JSONL).
type Feedback struct {
	ID        string         `json:"id"`
	Text      string         `json:"texto"`
	Entities  []extract.Span `json:"entidades"`
	CreatedAt time.Time      `json:"criado_em"`
}

func (f Feedback) Example() extract.Example {
	return extract.Example{Text: f.Text, Entities: f.Entities}
}

// Correction - исправленное пользователем значение сущности.
type Correction struct {
	Value string `json:"descricao"`
	Label string `json:"entidade"`
}

// BuildFeedback размечает текст по исправлениям: берётся первое буквальное
// вхождение каждого значения. Если хоть одно не найдено, пример не
// принимается целиком.
func BuildFeedback(text string, corrections []Correction) (Feedback, error) {
	spans := make([]extract.Span, 0, len(corrections))
	for _, c := range corrections {
		if strings.TrimSpace(c.Value) == "" {
			continue
		}
		idx := strings.Index(text, c.Value)
		if idx < 0 {
			return Feedback{}, fmt.Errorf("%w: %s=%q", ErrEntityNotFound, c.Label, c.Value)
		}
		start := utf8.RuneCountInString(text[:idx])
		spans = append(spans, extract.Span{
			Start: start,
			End:   start + utf8.RuneCountInString(c.Value),
			Label: strings.ToUpper(strings.TrimSpace(c.Label)),
		})
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })

	return Feedback{
		ID:        uuid.NewString(),
		Text:      text,
		Entities:  spans,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// FeedbackStore - журнал обратной связи в JSONL. Запись завершается fsync,
// поэтому принятый пример не теряется при падении процесса.
type FeedbackStore struct {
	path string
	mu   sync.Mutex
}

func NewFeedbackStore(path string) *FeedbackStore {
	return &FeedbackStore{path: path}
}

func (s *FeedbackStore) Path() string { return s.path }

// Append дописывает пример в конец журнала.
func (s *FeedbackStore) Append(fb Feedback) error {
	line, err := json.Marshal(fb)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Pending читает все накопленные примеры. Второе значение - число строк
// журнала, которые они заняли; его передают в Consume.
func (s *FeedbackStore) Pending() ([]Feedback, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.readLines()
	if err != nil {
		return nil, 0, err
	}
	out := make([]Feedback, 0, len(lines))
	for _, l := range lines {
		var fb Feedback
		// битые строки пропускаются
		if err := json.Unmarshal(l, &fb); err != nil {
			continue
		}
		out = append(out, fb)
	}
	return out, len(lines), nil
}

// Consume удаляет первые n строк журнала; дописанное после Pending остаётся.
func (s *FeedbackStore) Consume(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.readLines()
	if err != nil {
		return err
	}
	if n > len(lines) {
		n = len(lines)
	}
	var buf bytes.Buffer
	for _, l := range lines[n:] {
		buf.Write(l)
		buf.WriteByte('\n')
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FeedbackStore) readLines() ([][]byte, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out [][]byte
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4<<20)
	for sc.Scan() {
		if l := bytes.TrimSpace(sc.Bytes()); len(l) > 0 {
			out = append(out, append([]byte(nil), l...))
		}
	}
	return out, sc.Err()
}
