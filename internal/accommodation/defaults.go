package accommodation

// Category keys of the built-in crawl targets
const (
	BeachHouses        = "beach_houses"
	LodgesWaterVillage = "lodges_water_village"
)

// defaultCategories lists the roompot.de crawl targets
var defaultCategories = []Category{
	{
		// Roompot Beach Resort beach houses
		Key:      BeachHouses,
		ParkID:   "roompot-beach-resort",
		BaseURL:  "https://www.roompot.de/parks/roompot-beach-resort/unterkuenfte/",
		Domain:   "roompot.de",
		Language: "de",
		Accommodations: []Descriptor{
			{Name: "Beach House 4", URLSuffix: "beach-house-4", Capacity: 4},
			{Name: "Beach House 6A", URLSuffix: "beach-house-6a", Capacity: 6},
			{Name: "Beach House 6B", URLSuffix: "beach-house-6b", Capacity: 6},
		},
	},
	{
		// Water Village lodges
		Key:      LodgesWaterVillage,
		ParkID:   "water-village",
		BaseURL:  "https://www.roompot.de/parks/water-village/unterkuenfte/",
		Domain:   "roompot.de",
		Language: "de",
		Accommodations: []Descriptor{
			{Name: "Lodge 4", URLSuffix: "lodge-4", Capacity: 4},
		},
	},
}

// Default returns the registry of built-in crawl targets
func Default() *Registry {
	r, err := NewRegistry(defaultCategories...)
	if err != nil {
		panic("accommodation: invalid default registry: " + err.Error())
	}
	return r
}
