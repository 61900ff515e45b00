package block

import (
	"sort"
	"strconv"
	"strings"
)

// MaterialID представляет идентификатор материала вокселя
type MaterialID uint16

// Константы ID материалов
const (
	// Базовые материалы
	AirID         MaterialID = iota // 0
	StoneID                         // 1
	CobblestoneID                   // 2
	DirtID                          // 3
	GrassID                         // 4
	GravelID                        // 5
	SandID                          // 6
	GlassID                         // 7

	// Дерево (начиная с 50) — опоры для тоннелей
	PlanksID MaterialID = 50
	LogID    MaterialID = 51

	// Руды (начиная с 100)
	CoalOreID     MaterialID = 100
	IronOreID     MaterialID = 101
	GoldOreID     MaterialID = 102
	RedstoneOreID MaterialID = 103
	DiamondOreID  MaterialID = 104
	LapisOreID    MaterialID = 105

	// Жидкости (начиная с 200)
	WaterID MaterialID = 200
	LavaID  MaterialID = 201

	// Неразрушаемые (начиная с 1000)
	BedrockID MaterialID = 1000
)

// Category задаёт класс материала с точки зрения обрушений
type Category uint8

const (
	CategoryAir Category = iota
	CategoryGeneric
	CategoryOre
	CategoryWood
	CategoryLiquid
	CategoryIndestructible
)

// String возвращает строковое представление категории
func (c Category) String() string {
	switch c {
	case CategoryAir:
		return "AIR"
	case CategoryGeneric:
		return "SOLID_GENERIC"
	case CategoryOre:
		return "SOLID_ORE"
	case CategoryWood:
		return "WOOD"
	case CategoryLiquid:
		return "LIQUID"
	case CategoryIndestructible:
		return "INDESTRUCTIBLE"
	default:
		return "UNKNOWN"
	}
}

// Properties описывает статические свойства материала
type Properties struct {
	Name     string
	Category Category
	Solid    bool
}

var (
	registry = make(map[MaterialID]Properties)
	byName   = make(map[string]MaterialID)
)

// Register добавляет материал в регистр
func Register(id MaterialID, props Properties) {
	registry[id] = props
	byName[strings.ToUpper(props.Name)] = id
}

// Get возвращает свойства для указанного ID
func Get(id MaterialID) (Properties, bool) {
	props, exists := registry[id]
	return props, exists
}

// ByName ищет материал по имени без учёта регистра
func ByName(name string) (MaterialID, bool) {
	id, exists := byName[strings.ToUpper(strings.TrimSpace(name))]
	return id, exists
}

// IsValid проверяет, зарегистрирован ли материал
func IsValid(id MaterialID) bool {
	_, exists := registry[id]
	return exists
}

// Names возвращает отсортированный список имён всех материалов
func Names() []string {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String возвращает имя материала или числовой ID для незарегистрированных
func (id MaterialID) String() string {
	if props, ok := registry[id]; ok {
		return props.Name
	}
	return "MATERIAL_" + strconv.Itoa(int(id))
}

// Category возвращает категорию материала; неизвестные считаются обычной породой
func (id MaterialID) Category() Category {
	if props, ok := registry[id]; ok {
		return props.Category
	}
	return CategoryGeneric
}

func IsAir(id MaterialID) bool    { return id == AirID }
func IsLiquid(id MaterialID) bool { return id.Category() == CategoryLiquid }
func IsWood(id MaterialID) bool   { return id.Category() == CategoryWood }
func IsOre(id MaterialID) bool    { return id.Category() == CategoryOre }

// IsSolid сообщает, является ли материал твёрдым
func IsSolid(id MaterialID) bool {
	if props, ok := registry[id]; ok {
		return props.Solid
	}
	return true
}

// IsProtected возвращает true для материалов, которые обрушения никогда не трогают:
// неразрушаемые (аналог bedrock) и жидкости.
func IsProtected(id MaterialID) bool {
	c := id.Category()
	return c == CategoryIndestructible || c == CategoryLiquid
}

func init() {
	Register(AirID, Properties{Name: "AIR", Category: CategoryAir})
	Register(StoneID, Properties{Name: "STONE", Category: CategoryGeneric, Solid: true})
	Register(CobblestoneID, Properties{Name: "COBBLESTONE", Category: CategoryGeneric, Solid: true})
	Register(DirtID, Properties{Name: "DIRT", Category: CategoryGeneric, Solid: true})
	Register(GrassID, Properties{Name: "GRASS", Category: CategoryGeneric, Solid: true})
	Register(GravelID, Properties{Name: "GRAVEL", Category: CategoryGeneric, Solid: true})
	Register(SandID, Properties{Name: "SAND", Category: CategoryGeneric, Solid: true})
	Register(GlassID, Properties{Name: "GLASS", Category: CategoryGeneric, Solid: true})

	Register(PlanksID, Properties{Name: "WOOD", Category: CategoryWood, Solid: true})
	Register(LogID, Properties{Name: "LOG", Category: CategoryWood, Solid: true})

	Register(CoalOreID, Properties{Name: "COAL_ORE", Category: CategoryOre, Solid: true})
	Register(IronOreID, Properties{Name: "IRON_ORE", Category: CategoryOre, Solid: true})
	Register(GoldOreID, Properties{Name: "GOLD_ORE", Category: CategoryOre, Solid: true})
	Register(RedstoneOreID, Properties{Name: "REDSTONE_ORE", Category: CategoryOre, Solid: true})
	Register(DiamondOreID, Properties{Name: "DIAMOND_ORE", Category: CategoryOre, Solid: true})
	Register(LapisOreID, Properties{Name: "LAPIS_ORE", Category: CategoryOre, Solid: true})

	Register(WaterID, Properties{Name: "WATER", Category: CategoryLiquid})
	Register(LavaID, Properties{Name: "LAVA", Category: CategoryLiquid})

	Register(BedrockID, Properties{Name: "BEDROCK", Category: CategoryIndestructible, Solid: true})
}
