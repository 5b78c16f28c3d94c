package service

import (
	"sync/atomic"
	"time"

	"material-service/internal/matching/model"
)

// Snapshot - неизменяемый срез каталога: записи, нормализованные ключи
// и (если доступен) семантический индекс, построенный по тем же строкам.
type Snapshot struct {
	Records  []model.CatalogRecord
	Keys     []string
	Semantic *Semantic
	// SemanticErr - почему семантический поиск недоступен в этом срезе
	SemanticErr error
	LoadedAt    time.Time
	Source      string
}

// NewSnapshot нормализует описания и пытается поднять семантический индекс.
// Несовпадение матрицы с каталогом не мешает лексическому поиску:
// срез публикуется, а ошибка остаётся в SemanticErr.
func NewSnapshot(source string, records []model.CatalogRecord, m *Matrix, enc QueryEncoder) *Snapshot {
	s := &Snapshot{
		Records:  records,
		Keys:     NormalizeAll(descriptions(records)),
		LoadedAt: time.Now(),
		Source:   source,
	}
	s.Semantic, s.SemanticErr = NewSemantic(records, m, enc)
	return s
}

func descriptions(records []model.CatalogRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Description
	}
	return out
}

// Store публикует текущий срез; читатели всегда видят целый срез.
type Store struct {
	cur atomic.Pointer[Snapshot]
}

func NewStore(s *Snapshot) *Store {
	st := &Store{}
	st.cur.Store(s)
	return st
}

func (st *Store) Load() *Snapshot { return st.cur.Load() }

// Swap публикует новый срез и возвращает предыдущий.
func (st *Store) Swap(s *Snapshot) *Snapshot { return st.cur.Swap(s) }
