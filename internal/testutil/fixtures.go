package testutil

// Fixtures содержит общие тестовые данные, чтобы не дублировать их в тестах.
var Fixtures = struct {
	// Каталог баффов в формате config/buffs.yaml.
	// wings ссылается на стат flight, которого нет в Stats.
	CatalogYAML string

	// Базовые значения статов владельца.
	Stats map[string]float64
}{
	CatalogYAML: `
buffs:
  - source_id: potion_of_might
    stat: attack
    flat: 10
    percent: 0.1
    duration: 3
  - source_id: iron_skin
    stat: defense
    percent: 0.5
    duration: 60
  - source_id: wings
    stat: flight
    flat: 1
    duration: 10
`,
	Stats: map[string]float64{
		"attack":  100,
		"defense": 50,
	},
}
