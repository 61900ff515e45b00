package collapse

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/annel0/cavein/internal/world"
)

// DefaultCooldown — окно антидребезга по умолчанию
const DefaultCooldown = 2000 * time.Millisecond

// CooldownLedger подавляет повторные обрушения одного игрока в одной точке
type CooldownLedger interface {
	IsCoolingDown(ctx context.Context, actor uuid.UUID, pos world.Coord) bool
	MarkTriggered(ctx context.Context, actor uuid.UUID, pos world.Coord)
}

// CooldownKey возвращает строковый ключ "uuid:world:x,y,z"
func CooldownKey(actor uuid.UUID, pos world.Coord) string {
	return fmt.Sprintf("%s:%s", actor, pos)
}

type cooldownKey struct {
	actor uuid.UUID
	pos   world.Coord
}

// Ledger — in-memory реализация CooldownLedger.
// Записи никогда не удаляются: ключей не больше, чем посещённых игроками точек.
type Ledger struct {
	mu      sync.Mutex
	window  time.Duration
	now     func() time.Time
	entries map[cooldownKey]time.Time
}

// NewLedger создаёт журнал с окном window (<= 0 отключает подавление)
func NewLedger(window time.Duration) *Ledger {
	return &Ledger{
		window:  window,
		now:     time.Now,
		entries: make(map[cooldownKey]time.Time),
	}
}

// SetClock подменяет источник времени (для тестов)
func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}

// Window возвращает окно подавления
func (l *Ledger) Window() time.Duration { return l.window }

// IsCoolingDown сообщает, прошло ли меньше window с последнего срабатывания
func (l *Ledger) IsCoolingDown(_ context.Context, actor uuid.UUID, pos world.Coord) bool {
	if l.window <= 0 {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	last, ok := l.entries[cooldownKey{actor: actor, pos: pos}]
	if !ok {
		return false
	}
	return l.now().Sub(last) < l.window
}

// MarkTriggered запоминает время срабатывания
func (l *Ledger) MarkTriggered(_ context.Context, actor uuid.UUID, pos world.Coord) {
	l.mu.Lock()
	l.entries[cooldownKey{actor: actor, pos: pos}] = l.now()
	l.mu.Unlock()
}

// Len возвращает число записей
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
