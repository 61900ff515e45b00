// Package collapse реализует движок обрушений: анализ опоры вокруг сломанного
// вокселя, исполнение обрушения с ограниченным бюджетом падающих объектов,
// антидребезг по (игрок, координата) и отложенное восстановление потолков.
package collapse

import (
	"fmt"
	"strings"

	"github.com/annel0/cavein/internal/world/block"
)

// VerticalMode выбирает алгоритм проверки вертикальной шахты
type VerticalMode int

const (
	// VerticalAirRun — столб воздуха над точкой слома длиной RequiredAirRun
	VerticalAirRun VerticalMode = iota
	// VerticalLayered — четыре слоя устойчивости над точкой, игрок стоит в шахте
	VerticalLayered
)

func (m VerticalMode) String() string {
	if m == VerticalLayered {
		return "layered"
	}
	return "air-run"
}

// ParseVerticalMode разбирает значение из конфигурации
func ParseVerticalMode(s string) (VerticalMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "air-run", "airrun":
		return VerticalAirRun, nil
	case "layered":
		return VerticalLayered, nil
	}
	return VerticalAirRun, fmt.Errorf("неизвестный режим вертикальной проверки %q", s)
}

// Limits — геометрические пороги и бюджет
type Limits struct {
	RequiredAirRun        int
	MaxHorizontalHeight   int
	MaxHorizontalDistance int
	MaxVerticalHeight     int
	MaxFallingBlocks      int
	MinDepth              int
}

// DefaultLimits возвращает стандартные пороги
func DefaultLimits() Limits {
	return Limits{
		RequiredAirRun:        6,
		MaxHorizontalHeight:   6,
		MaxHorizontalDistance: 6,
		MaxVerticalHeight:     5,
		MaxFallingBlocks:      90,
		MinDepth:              6,
	}
}

// Policy включает дополнительные правила классификации
type Policy struct {
	OreExemption   bool         // руды проверяются только на горизонтальный туннель
	CaveCeiling    bool         // глубокий слом над пустотой обрушает потолок пещеры
	VerticalMode   VerticalMode // алгоритм вертикальной проверки
	FillWithBroken bool         // засыпать сломанным материалом, если он в whitelist
}

// Settings — полный набор параметров движка
type Settings struct {
	Limits    Limits
	Policy    Policy
	Whitelist block.Whitelist
	Fallback  block.MaterialID // материал засыпки шахт
	Debug     bool             // диагностические сообщения игроку
}

// DefaultSettings возвращает параметры по умолчанию
func DefaultSettings() Settings {
	return Settings{
		Limits:    DefaultLimits(),
		Whitelist: block.DefaultWhitelist(),
		Fallback:  block.DirtID,
	}
}

// fillMaterial выбирает материал засыпки для сломанного вокселя
func (s Settings) fillMaterial(broken block.MaterialID) block.MaterialID {
	if s.Policy.FillWithBroken && s.Whitelist.Contains(broken) {
		return broken
	}
	if s.Fallback == block.AirID {
		return block.DirtID
	}
	return s.Fallback
}

// layer описывает слой устойчивости над точкой слома
type layer struct {
	offset      int
	radius      int
	requiredAir int
}

var stabilityLayers = [4]layer{
	{offset: 1, radius: 1, requiredAir: 6},
	{offset: 2, radius: 2, requiredAir: 17},
	{offset: 3, radius: 3, requiredAir: 33},
	{offset: 4, radius: 4, requiredAir: 55},
}

const (
	// высота засыпки над игроком в режиме layered
	layeredFillHeight = 16
	// игрок должен стоять не выше этого числа вокселей над точкой
	layeredMaxFeetDistance = 3
	// радиус и глубина обрушения потолка пещеры
	caveCeilingRadius = 2
	caveCeilingDepth  = 5
)
