package collapse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/annel0/cavein/internal/vec"
	"github.com/annel0/cavein/internal/world"
	"github.com/annel0/cavein/internal/world/block"
)

func TestClassify_VerticalShaftAtDepth10(t *testing.T) {
	g := stoneWorld(t, 4, 30)
	dig(t, g, vec.Vec3{X: 0, Y: 21, Z: 0}, vec.Vec3{X: 0, Y: 26, Z: 0})

	a := NewAnalyzer(DefaultSettings())
	c := a.Classify(g, world.At(testWorld, 0, 20, 0), block.StoneID, nil)

	assert.Equal(t, KindVerticalShaft, c.Kind)
	assert.Equal(t, 6, c.AirRun)
	assert.True(t, c.Triggered())
}

func TestClassify_ShallowShaftIgnored(t *testing.T) {
	g := stoneWorld(t, 4, 30)
	dig(t, g, vec.Vec3{X: 0, Y: 26, Z: 0}, vec.Vec3{X: 0, Y: 30, Z: 0})

	// y=25 выше порога глубины (30-6=24)
	c := NewAnalyzer(DefaultSettings()).Classify(g, world.At(testWorld, 0, 25, 0), block.StoneID, nil)
	assert.Equal(t, KindNone, c.Kind)
}

func TestClassify_ShortRunsNeverTrigger(t *testing.T) {
	g := stoneWorld(t, 8, 30)
	dig(t, g, vec.Vec3{X: 0, Y: 21, Z: 0}, vec.Vec3{X: 0, Y: 25, Z: 0})  // 5 вверх
	dig(t, g, vec.Vec3{X: 1, Y: 20, Z: 0}, vec.Vec3{X: 2, Y: 20, Z: 0})  // 2 по +X
	dig(t, g, vec.Vec3{X: -2, Y: 20, Z: 0}, vec.Vec3{X: -1, Y: 20, Z: 0}) // 2 по -X
	dig(t, g, vec.Vec3{X: 0, Y: 20, Z: 1}, vec.Vec3{X: 0, Y: 20, Z: 4})  // 4 по +Z

	c := NewAnalyzer(DefaultSettings()).Classify(g, world.At(testWorld, 0, 20, 0), block.StoneID, nil)
	assert.Equal(t, KindNone, c.Kind)
}

func TestClassify_HorizontalTunnel(t *testing.T) {
	g := stoneWorld(t, 8, 30)
	dig(t, g, vec.Vec3{X: -5, Y: 20, Z: 0}, vec.Vec3{X: -1, Y: 20, Z: 0})

	c := NewAnalyzer(DefaultSettings()).Classify(g, world.At(testWorld, 0, 20, 0), block.StoneID, nil)
	assert.Equal(t, KindHorizontalTunnel, c.Kind)
	assert.Equal(t, AxisX, c.Axis)
	assert.Equal(t, -1, c.Direction)
	assert.Equal(t, 6, c.RunLength)
	assert.False(t, c.SupportFound)
}

func TestClassify_RunLengthCapped(t *testing.T) {
	g := stoneWorld(t, 10, 30)
	dig(t, g, vec.Vec3{X: -8, Y: 20, Z: 0}, vec.Vec3{X: 8, Y: 20, Z: 0})

	c := NewAnalyzer(DefaultSettings()).Classify(g, world.At(testWorld, 0, 20, 0), block.StoneID, nil)
	assert.Equal(t, KindHorizontalTunnel, c.Kind)
	assert.Equal(t, 1, c.Direction, "равные прогоны разрешаются в положительную сторону")
	assert.Equal(t, DefaultLimits().MaxHorizontalDistance, c.RunLength)
}

func TestClassify_WoodShoredTunnel(t *testing.T) {
	g := stoneWorld(t, 8, 30)
	dig(t, g, vec.Vec3{X: 1, Y: 20, Z: 0}, vec.Vec3{X: 5, Y: 20, Z: 0})
	put(t, g, 3, 21, 0, block.PlanksID)

	c := NewAnalyzer(DefaultSettings()).Classify(g, world.At(testWorld, 0, 20, 0), block.StoneID, nil)
	assert.Equal(t, KindHorizontalTunnel, c.Kind)
	assert.Equal(t, AxisX, c.Axis)
	assert.True(t, c.SupportFound)
	assert.False(t, c.Triggered())
}

func TestClassify_ShoredXDoesNotBlockZ(t *testing.T) {
	g := stoneWorld(t, 8, 30)
	dig(t, g, vec.Vec3{X: 1, Y: 20, Z: 0}, vec.Vec3{X: 5, Y: 20, Z: 0})
	put(t, g, 3, 21, 0, block.LogID)
	dig(t, g, vec.Vec3{X: 0, Y: 20, Z: 1}, vec.Vec3{X: 0, Y: 20, Z: 5})

	c := NewAnalyzer(DefaultSettings()).Classify(g, world.At(testWorld, 0, 20, 0), block.StoneID, nil)
	assert.Equal(t, KindHorizontalTunnel, c.Kind)
	assert.Equal(t, AxisZ, c.Axis)
	assert.False(t, c.SupportFound)
}

func TestClassify_WoodOutsideEnvelopeIgnored(t *testing.T) {
	g := stoneWorld(t, 10, 30)
	dig(t, g, vec.Vec3{X: 1, Y: 20, Z: 0}, vec.Vec3{X: 5, Y: 20, Z: 0})
	put(t, g, 3, 22, 0, block.PlanksID) // высота +2
	put(t, g, 3, 20, 2, block.PlanksID) // поперёк +2
	put(t, g, 7, 20, 0, block.PlanksID) // дальше 6 шагов

	c := NewAnalyzer(DefaultSettings()).Classify(g, world.At(testWorld, 0, 20, 0), block.StoneID, nil)
	assert.Equal(t, KindHorizontalTunnel, c.Kind)
	assert.False(t, c.SupportFound)
}

func TestClassify_NotWhitelistedSkipsInspection(t *testing.T) {
	g := stoneWorld(t, 4, 30)
	dig(t, g, vec.Vec3{X: 0, Y: 21, Z: 0}, vec.Vec3{X: 0, Y: 26, Z: 0})

	c := NewAnalyzer(DefaultSettings()).Classify(g, world.At(testWorld, 0, 20, 0), block.GlassID, nil)
	assert.Equal(t, KindNone, c.Kind)
}

func TestClassify_OreExemption(t *testing.T) {
	g := stoneWorld(t, 4, 30)
	dig(t, g, vec.Vec3{X: 0, Y: 21, Z: 0}, vec.Vec3{X: 0, Y: 26, Z: 0})
	origin := world.At(testWorld, 0, 20, 0)

	s := DefaultSettings()
	assert.Equal(t, KindVerticalShaft, NewAnalyzer(s).Classify(g, origin, block.IronOreID, nil).Kind)

	s.Policy.OreExemption = true
	assert.Equal(t, KindNone, NewAnalyzer(s).Classify(g, origin, block.IronOreID, nil).Kind)
	assert.Equal(t, KindVerticalShaft, NewAnalyzer(s).Classify(g, origin, block.StoneID, nil).Kind)
}

func TestClassify_CaveCeiling(t *testing.T) {
	g := stoneWorld(t, 4, 30)
	dig(t, g, vec.Vec3{X: -2, Y: 17, Z: -2}, vec.Vec3{X: 2, Y: 19, Z: 2})
	origin := world.At(testWorld, 0, 20, 0)

	s := DefaultSettings()
	assert.Equal(t, KindNone, NewAnalyzer(s).Classify(g, origin, block.StoneID, nil).Kind)

	s.Policy.CaveCeiling = true
	assert.Equal(t, KindCaveCeiling, NewAnalyzer(s).Classify(g, origin, block.StoneID, nil).Kind)
}

func TestClassify_Layered(t *testing.T) {
	g := stoneWorld(t, 4, 30)
	dig(t, g, vec.Vec3{X: 0, Y: 21, Z: 0}, vec.Vec3{X: 0, Y: 23, Z: 0})
	origin := world.At(testWorld, 0, 20, 0)

	s := DefaultSettings()
	s.Policy.VerticalMode = VerticalLayered
	a := NewAnalyzer(s)

	c := a.Classify(g, origin, block.StoneID, newActor(0, 22, 0))
	assert.Equal(t, KindVerticalShaft, c.Kind)
	assert.Equal(t, vec.Vec3{X: 0, Y: 22, Z: 0}, c.Anchor)
	assert.Equal(t, [4]bool{false, false, false, false}, c.Layers)

	// Игрок не над точкой слома
	assert.Equal(t, KindNone, a.Classify(g, origin, block.StoneID, newActor(1, 22, 0)).Kind)
	// Слишком высоко
	assert.Equal(t, KindNone, a.Classify(g, origin, block.StoneID, newActor(0, 24, 0)).Kind)
	// Без игрока
	assert.Equal(t, KindNone, a.Classify(g, origin, block.StoneID, nil).Kind)
}

func TestClassify_LayeredAllStable(t *testing.T) {
	g := stoneWorld(t, 6, 30)
	// Над точкой открытая полость: все четыре слоя заполнены воздухом
	dig(t, g, vec.Vec3{X: -4, Y: 21, Z: -4}, vec.Vec3{X: 4, Y: 24, Z: 4})

	s := DefaultSettings()
	s.Policy.VerticalMode = VerticalLayered
	c := NewAnalyzer(s).Classify(g, world.At(testWorld, 0, 20, 0), block.StoneID, newActor(0, 22, 0))
	assert.Equal(t, KindNone, c.Kind)
}

func TestKindAndAxisStrings(t *testing.T) {
	assert.Equal(t, "NONE", KindNone.String())
	assert.Equal(t, "HORIZONTAL_TUNNEL", KindHorizontalTunnel.String())
	assert.Equal(t, "Z", AxisZ.String())

	m, err := ParseVerticalMode("Layered")
	assert.NoError(t, err)
	assert.Equal(t, VerticalLayered, m)
	_, err = ParseVerticalMode("sideways")
	assert.Error(t, err)
}
