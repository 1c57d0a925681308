package filter

// Config holds the tiering thresholds. Review-count bounds are relative to
// the mean review count of the non-business survivors.
type Config struct {
	TopN              int
	MinReviews        int
	MinRating         float64
	LowTierMinRating  float64
	FallbackMinRating float64

	// NameKeywords are matched as whole words against the lowercased name.
	NameKeywords []string
	// DeniedTypes are matched exactly against the candidate's place types.
	DeniedTypes []string
}

func DefaultConfig() *Config {
	return &Config{
		TopN:              3,
		MinReviews:        10,
		MinRating:         3.5,
		LowTierMinRating:  4.5,
		FallbackMinRating: 4.0,
		NameKeywords:      defaultNameKeywords,
		DeniedTypes:       defaultDeniedTypes,
	}
}

var defaultNameKeywords = []string{
	// food and drink
	"restaurant", "cafe", "café", "coffee", "pub", "grill", "bistro",
	"diner", "pizzeria", "pizza", "bakery", "brewery", "taproom", "winery",
	"eatery", "steakhouse", "tavern",
	// lodging
	"hotel", "motel", "hostel", "inn", "resort", "suites", "bnb", "airbnb",
	// retail
	"store", "shop", "mall", "market", "supermarket", "boutique", "outlet",
	// services
	"salon", "spa", "gym", "fitness", "bank", "atm", "pharmacy", "clinic",
	"hospital", "dental", "dentist", "laundromat", "realty", "apartments",
	"rental", "rentals", "tours", "gas station", "car wash", "parking",
}

var defaultDeniedTypes = []string{
	"restaurant", "cafe", "bar", "food", "meal_takeaway", "meal_delivery",
	"bakery", "night_club", "liquor_store",
	"lodging", "hotel", "campground_office",
	"store", "shopping_mall", "supermarket", "grocery_or_supermarket",
	"clothing_store", "convenience_store", "department_store", "furniture_store",
	"electronics_store", "hardware_store", "home_goods_store", "jewelry_store",
	"shoe_store", "book_store",
	"bank", "atm", "finance", "accounting", "insurance_agency",
	"gas_station", "car_rental", "car_repair", "car_wash", "car_dealer", "parking",
	"spa", "gym", "beauty_salon", "hair_care",
	"pharmacy", "hospital", "doctor", "dentist", "health", "physiotherapist",
	"real_estate_agency", "travel_agency", "lawyer", "laundry", "storage",
	"moving_company", "lodging_service",
}
