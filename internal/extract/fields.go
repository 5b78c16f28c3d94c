package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"material-service/internal/matching/model"
)

// Метки сущностей в тексте запроса.
const (
	LabelDescription = "DESCRICAO"
	LabelUnit        = "UM"
	LabelFamily      = "FAMILIA"
)

// ErrDescriptionNotFound - в сообщении не нашлось описания материала.
var ErrDescriptionNotFound = errors.New("descrição do material não identificada")

// MsgDescriptionNotFound - текст ответа пользователю.
const MsgDescriptionNotFound = "Não consegui identificar a descrição do material na sua mensagem."

// Fields - найденные сущности: метка → текст.
type Fields map[string]string

// Query собирает запрос к поиску; без описания поиск не вызывается.
func (f Fields) Query() (model.Query, error) {
	desc := strings.TrimSpace(f[LabelDescription])
	if desc == "" {
		return model.Query{}, ErrDescriptionNotFound
	}
	return model.Query{
		Description: desc,
		Unit:        strings.TrimSpace(f[LabelUnit]),
		Family:      strings.TrimSpace(f[LabelFamily]),
	}, nil
}

// Span - сущность в тексте: [start, end) в рунах.
// В JSON пишется как [start, end, "LABEL"].
type Span struct {
	Start int
	End   int
	Label string
}

func (s Span) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{s.Start, s.End, s.Label})
}

func (s *Span) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 3 {
		return fmt.Errorf("span: want [start, end, label], got %d items", len(raw))
	}
	if err := json.Unmarshal(raw[0], &s.Start); err != nil {
		return fmt.Errorf("span start: %w", err)
	}
	if err := json.Unmarshal(raw[1], &s.End); err != nil {
		return fmt.Errorf("span end: %w", err)
	}
	return json.Unmarshal(raw[2], &s.Label)
}

// Example - размеченный пример для обучения.
type Example struct {
	Text     string `json:"texto"`
	Entities []Span `json:"entidades"`
}

// Extractor выделяет поля из свободного текста.
type Extractor interface {
	Extract(text string) Fields
}
