package world

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// FallingBlock — дескриптор падающего объекта, созданного хостом.
// Старые ревизии хоста могут не поддерживать переключатели и возвращают ErrUnsupported.
type FallingBlock interface {
	ID() uuid.UUID
	SetDropItem(drop bool) error
	SetHurtEntities(hurt bool) error
}

// Spawner создаёт падающие объекты под управлением физики хоста
type Spawner interface {
	Spawn(pos Coord, v Voxel) (FallingBlock, error)
}

// FallingEntity — падающий объект MemorySpawner
type FallingEntity struct {
	id           uuid.UUID
	Pos          Coord
	Voxel        Voxel
	DropItem     bool
	HurtEntities bool
	Settled      bool

	legacy bool
}

// ID возвращает идентификатор объекта
func (e *FallingEntity) ID() uuid.UUID { return e.id }

// SetDropItem включает/выключает выпадение предмета при приземлении
func (e *FallingEntity) SetDropItem(drop bool) error {
	if e.legacy {
		return ErrUnsupported
	}
	e.DropItem = drop
	return nil
}

// SetHurtEntities включает/выключает урон сущностям при падении
func (e *FallingEntity) SetHurtEntities(hurt bool) error {
	if e.legacy {
		return ErrUnsupported
	}
	e.HurtEntities = hurt
	return nil
}

// MemorySpawner запоминает созданные объекты; используется в тестах и dev-хосте.
// Legacy имитирует старый хост без поддержки переключателей.
type MemorySpawner struct {
	Legacy bool

	mu       sync.Mutex
	entities []*FallingEntity
}

// NewMemorySpawner создаёт пустой спаунер
func NewMemorySpawner() *MemorySpawner {
	return &MemorySpawner{}
}

// Spawn создаёт падающий объект. По умолчанию объект роняет предмет и наносит урон,
// как в ванильной физике, пока вызывающий код не выключит это.
func (s *MemorySpawner) Spawn(pos Coord, v Voxel) (FallingBlock, error) {
	e := &FallingEntity{
		id:           uuid.New(),
		Pos:          pos,
		Voxel:        v,
		DropItem:     true,
		HurtEntities: true,
		legacy:       s.Legacy,
	}

	s.mu.Lock()
	s.entities = append(s.entities, e)
	s.mu.Unlock()
	return e, nil
}

// Entities возвращает снимок всех созданных объектов
func (s *MemorySpawner) Entities() []FallingEntity {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]FallingEntity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, *e)
	}
	return out
}

// Count возвращает количество созданных объектов
func (s *MemorySpawner) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entities)
}

// Falling возвращает количество ещё не приземлившихся объектов
func (s *MemorySpawner) Falling() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, e := range s.entities {
		if !e.Settled {
			n++
		}
	}
	return n
}

// Reset забывает все созданные объекты
func (s *MemorySpawner) Reset() {
	s.mu.Lock()
	s.entities = nil
	s.mu.Unlock()
}

// SettleAll опускает каждый падающий объект мира grid по его колонне
// до первого непустого вокселя и ставит там его материал.
// Нижние объекты приземляются первыми, чтобы верхние ложились на них.
func (s *MemorySpawner) SettleAll(grid Grid) int {
	s.mu.Lock()
	pending := make([]*FallingEntity, 0)
	for _, e := range s.entities {
		if !e.Settled && e.Pos.World == grid.Name() {
			pending = append(pending, e)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Pos.Y < pending[j].Pos.Y
	})
	s.mu.Unlock()

	landed := 0
	for _, e := range pending {
		pos := e.Pos.Vec3
		if pos.Y >= grid.MaxHeight() {
			pos.Y = grid.MaxHeight() - 1
		}
		for pos.Y > 0 && grid.MaterialAt(pos.Down(1)).IsAir() {
			pos = pos.Down(1)
		}

		s.mu.Lock()
		e.Settled = true
		s.mu.Unlock()

		if !grid.MaterialAt(pos).IsAir() {
			continue // Место занято — объект рассыпается
		}
		if err := grid.SetMaterial(pos, e.Voxel.ID, e.Voxel.Variant); err != nil {
			continue
		}
		landed++
	}
	return landed
}
