package extract

import "sync/atomic"

// Manager публикует текущий извлекатель. Запросы берут ссылку один раз
// и работают с ней до конца, даже если в это время опубликован новый.
type Manager struct {
	cur atomic.Pointer[RuleExtractor]
}

func NewManager(e *RuleExtractor) *Manager {
	m := &Manager{}
	m.cur.Store(e)
	return m
}

// Current - извлекатель, опубликованный последним.
func (m *Manager) Current() *RuleExtractor { return m.cur.Load() }

// Publish атомарно заменяет извлекатель и возвращает прежний.
func (m *Manager) Publish(e *RuleExtractor) *RuleExtractor { return m.cur.Swap(e) }

func (m *Manager) Extract(text string) Fields { return m.Current().Extract(text) }
