package world

import (
	"sync"

	"github.com/google/uuid"
)

// Player — простая реализация Actor для dev-хоста и тестов.
// Сообщения не отправляются по сети, а накапливаются.
type Player struct {
	id   uuid.UUID
	name string

	mu       sync.RWMutex
	pos      Coord
	messages []string
}

// NewPlayer создаёт игрока со случайным ID
func NewPlayer(name string, pos Coord) *Player {
	return NewPlayerWithID(uuid.New(), name, pos)
}

// NewPlayerWithID создаёт игрока с заданным ID
func NewPlayerWithID(id uuid.UUID, name string, pos Coord) *Player {
	return &Player{id: id, name: name, pos: pos}
}

func (p *Player) ID() uuid.UUID { return p.id }
func (p *Player) Name() string  { return p.name }

// Position возвращает текущую позицию игрока
func (p *Player) Position() Coord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pos
}

// MoveTo перемещает игрока
func (p *Player) MoveTo(pos Coord) {
	p.mu.Lock()
	p.pos = pos
	p.mu.Unlock()
}

// SendMessage сохраняет сообщение для игрока
func (p *Player) SendMessage(msg string) {
	p.mu.Lock()
	p.messages = append(p.messages, msg)
	p.mu.Unlock()
}

// Messages возвращает копию полученных сообщений
func (p *Player) Messages() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.messages...)
}
