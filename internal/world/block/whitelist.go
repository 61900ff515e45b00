package block

import (
	"fmt"
	"sort"
)

// Whitelist — набор материалов, участвующих в обрушениях.
// Материалы вне набора инертны: они не запускают обрушение и не осыпаются.
type Whitelist struct {
	ids map[MaterialID]struct{}
}

// NewWhitelist создаёт whitelist из списка ID.
// Воздух, жидкости и неразрушаемые материалы отбрасываются.
func NewWhitelist(ids ...MaterialID) Whitelist {
	w := Whitelist{ids: make(map[MaterialID]struct{}, len(ids))}
	for _, id := range ids {
		if IsAir(id) || IsProtected(id) {
			continue
		}
		w.ids[id] = struct{}{}
	}
	return w
}

// ParseWhitelist строит whitelist из имён материалов (например, из конфига)
func ParseWhitelist(names []string) (Whitelist, error) {
	ids := make([]MaterialID, 0, len(names))
	for _, name := range names {
		id, ok := ByName(name)
		if !ok {
			return Whitelist{}, fmt.Errorf("неизвестный материал %q", name)
		}
		ids = append(ids, id)
	}
	return NewWhitelist(ids...), nil
}

// DefaultWhitelist возвращает набор пород по умолчанию
func DefaultWhitelist() Whitelist {
	return NewWhitelist(
		StoneID, CobblestoneID, DirtID, GravelID, SandID,
		CoalOreID, IronOreID,
	)
}

// Contains проверяет, входит ли материал в набор
func (w Whitelist) Contains(id MaterialID) bool {
	_, ok := w.ids[id]
	return ok
}

// Len возвращает размер набора
func (w Whitelist) Len() int {
	return len(w.ids)
}

// Names возвращает отсортированные имена материалов набора
func (w Whitelist) Names() []string {
	names := make([]string, 0, len(w.ids))
	for id := range w.ids {
		names = append(names, id.String())
	}
	sort.Strings(names)
	return names
}
