package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"

	"github.com/annel0/cavein/internal/logging"
	"github.com/annel0/cavein/internal/vec"
	"github.com/annel0/cavein/internal/world"
	"github.com/annel0/cavein/internal/world/block"
)

// ErrNotReady — хранилище закрыто
var ErrNotReady = errors.New("хранилище не готово")

// WorldStorage хранит изменённые чанки сетки в BadgerDB.
// Состояние обрушений (антидребезг, восстановления) сюда не попадает.
type WorldStorage struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool

	encoder *zstd.Encoder
	decoder *zstd.Decoder
	logger  *logging.Logger
}

// ChunkRecord — сериализованное содержимое чанка
type ChunkRecord struct {
	World  string        `json:"world"`
	Coords vec.Vec2      `json:"coords"`
	Voxels []VoxelRecord `json:"voxels"`
}

// VoxelRecord — один непустой воксель в локальных координатах чанка
type VoxelRecord struct {
	X       int              `json:"x"`
	Y       int              `json:"y"`
	Z       int              `json:"z"`
	ID      block.MaterialID `json:"id"`
	Variant byte             `json:"v,omitempty"`
}

// NewWorldStorage открывает хранилище в dataPath/world
func NewWorldStorage(dataPath string, logger *logging.Logger) (*WorldStorage, error) {
	dbPath := filepath.Join(dataPath, "world")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}

	return &WorldStorage{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
		encoder: enc,
		decoder: dec,
		logger:  logger,
	}, nil
}

// Close закрывает хранилище данных
func (ws *WorldStorage) Close() error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	if !ws.isReady {
		return nil
	}

	ws.isReady = false
	ws.encoder.Close()
	ws.decoder.Close()
	return ws.db.Close()
}

func chunkPrefix(worldName string) string {
	return fmt.Sprintf("chunk:%s:", worldName)
}

func chunkKey(worldName string, coords vec.Vec2) []byte {
	return []byte(fmt.Sprintf("%s%d:%d", chunkPrefix(worldName), coords.X, coords.Z))
}

// parseChunkKey разбирает "chunk:<world>:<cx>:<cz>"; имя мира может содержать ':'
func parseChunkKey(key string) (string, vec.Vec2, error) {
	parts := strings.Split(key, ":")
	if len(parts) < 4 || parts[0] != "chunk" {
		return "", vec.Vec2{}, fmt.Errorf("некорректный ключ чанка %q", key)
	}
	n := len(parts)
	x, errX := strconv.Atoi(parts[n-2])
	z, errZ := strconv.Atoi(parts[n-1])
	if errX != nil || errZ != nil {
		return "", vec.Vec2{}, fmt.Errorf("некорректные координаты в ключе %q", key)
	}
	return strings.Join(parts[1:n-2], ":"), vec.Vec2{X: x, Z: z}, nil
}

// SaveChunk сохраняет содержимое чанка
func (ws *WorldStorage) SaveChunk(worldName string, coords vec.Vec2, voxels map[vec.Vec3]world.Voxel) error {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return ErrNotReady
	}

	rec := ChunkRecord{World: worldName, Coords: coords, Voxels: make([]VoxelRecord, 0, len(voxels))}
	for p, v := range voxels {
		rec.Voxels = append(rec.Voxels, VoxelRecord{X: p.X, Y: p.Y, Z: p.Z, ID: v.ID, Variant: v.Variant})
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("ошибка сериализации чанка: %w", err)
	}
	packed := ws.encoder.EncodeAll(data, nil)

	err = ws.db.Update(func(txn *badger.Txn) error {
		return txn.Set(chunkKey(worldName, coords), packed)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return nil
}

// LoadChunk загружает чанк; ok=false, если он не сохранялся
func (ws *WorldStorage) LoadChunk(worldName string, coords vec.Vec2) (map[vec.Vec3]world.Voxel, bool, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return nil, false, ErrNotReady
	}

	var data []byte
	err := ws.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chunkKey(worldName, coords))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	voxels, err := ws.decode(data)
	if err != nil {
		return nil, false, err
	}
	return voxels, true, nil
}

func (ws *WorldStorage) decode(packed []byte) (map[vec.Vec3]world.Voxel, error) {
	data, err := ws.decoder.DecodeAll(packed, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка распаковки чанка: %w", err)
	}

	var rec ChunkRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("ошибка десериализации чанка: %w", err)
	}

	voxels := make(map[vec.Vec3]world.Voxel, len(rec.Voxels))
	for _, v := range rec.Voxels {
		if !block.IsValid(v.ID) {
			ws.logger.Warn("чанк %s:%v: пропущен неизвестный материал %d", rec.World, rec.Coords, v.ID)
			continue
		}
		voxels[vec.Vec3{X: v.X, Y: v.Y, Z: v.Z}] = world.Voxel{ID: v.ID, Variant: v.Variant}
	}
	return voxels, nil
}

// SaveGrid сохраняет все изменённые чанки сетки и возвращает их число
func (ws *WorldStorage) SaveGrid(grid *world.MemoryGrid) (int, error) {
	saved := 0
	for _, coords := range grid.DirtyChunks() {
		// Счётчик сбрасывается до снимка: записи после снимка снова пометят чанк
		grid.ClearChanges(coords)
		voxels := grid.ChunkVoxels(coords)
		if err := ws.SaveChunk(grid.Name(), coords, voxels); err != nil {
			grid.MarkDirty(coords)
			return saved, fmt.Errorf("чанк %v: %w", coords, err)
		}
		saved++
	}
	if saved > 0 {
		ws.logger.Debug("сохранено чанков мира %s: %d", grid.Name(), saved)
	}
	return saved, nil
}

// LoadGrid применяет все сохранённые чанки мира к сетке и возвращает их число
func (ws *WorldStorage) LoadGrid(grid *world.MemoryGrid) (int, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return 0, ErrNotReady
	}

	prefix := []byte(chunkPrefix(grid.Name()))
	loaded := 0
	err := ws.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			name, coords, err := parseChunkKey(string(item.Key()))
			if err != nil || name != grid.Name() {
				continue
			}
			packed, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			voxels, err := ws.decode(packed)
			if err != nil {
				return fmt.Errorf("чанк %v: %w", coords, err)
			}
			grid.ApplyChunk(coords, voxels)
			loaded++
		}
		return nil
	})
	if err != nil {
		return loaded, fmt.Errorf("загрузка мира %s: %w", grid.Name(), err)
	}
	return loaded, nil
}
