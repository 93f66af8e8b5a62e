package places

// CategoryAll selects the all-industries fan-out search.
const CategoryAll = "all"

// Category is a selectable business type.
type Category struct {
	Label string
	Value string
	Group string
}

// AllKeywords are the sub-queries of an all-industries search.
var AllKeywords = []string{
	"contractor", "plumber", "electrician", "hvac", "restaurant",
	"salon", "auto repair", "dentist", "lawyer", "real estate",
	"landscaper", "cleaning service", "gym", "retail store",
}

var Categories = []Category{
	{"All Industry Search", CategoryAll, ""},

	{"Plumbers", "plumber", "Home Services"},
	{"Electricians", "electrician", "Home Services"},
	{"Roofers", "roofing_contractor", "Home Services"},
	{"HVAC", "hvac_contractor", "Home Services"},
	{"General Contractors", "general_contractor", "Home Services"},
	{"Painters", "painter", "Home Services"},
	{"Landscapers", "landscaper", "Home Services"},
	{"Cleaning Services", "house_cleaning_service", "Home Services"},
	{"Carpet Cleaners", "carpet_cleaning_service", "Home Services"},
	{"Locksmiths", "locksmith", "Home Services"},
	{"Moving Companies", "moving_company", "Home Services"},
	{"Pest Control", "pest_control_service", "Home Services"},

	{"Auto Repair", "car_repair", "Auto"},
	{"Auto Dealers", "car_dealer", "Auto"},
	{"Auto Body Shops", "auto_body_shop", "Auto"},
	{"Tire Shops", "tire_shop", "Auto"},
	{"Towing Services", "towing_service", "Auto"},

	{"Dentists", "dentist", "Health & Wellness"},
	{"Doctors", "doctor", "Health & Wellness"},
	{"Chiropractors", "chiropractor", "Health & Wellness"},
	{"Physical Therapy", "physical_therapist", "Health & Wellness"},
	{"Optometrists", "optometrist", "Health & Wellness"},
	{"Veterinarians", "veterinary_care", "Health & Wellness"},
	{"Gyms/Fitness", "gym", "Health & Wellness"},
	{"Spas", "spa", "Health & Wellness"},

	{"Lawyers", "lawyer", "Professional Services"},
	{"Accountants", "accountant", "Professional Services"},
	{"Real Estate", "real_estate_agency", "Professional Services"},
	{"Insurance", "insurance_agency", "Professional Services"},
	{"Financial Advisors", "financial_planner", "Professional Services"},
	{"Photographers", "photographer", "Professional Services"},

	{"Restaurants", "restaurant", "Food & Hospitality"},
	{"Cafes", "cafe", "Food & Hospitality"},
	{"Bakeries", "bakery", "Food & Hospitality"},
	{"Bars", "bar", "Food & Hospitality"},
	{"Hotels", "hotel", "Food & Hospitality"},

	{"Retail Stores", "store", "Retail & Personal"},
	{"Hair Salons", "hair_care", "Retail & Personal"},
	{"Beauty Salons", "beauty_salon", "Retail & Personal"},
	{"Florists", "florist", "Retail & Personal"},
	{"Jewelry Stores", "jewelry_store", "Retail & Personal"},
	{"Laundromats", "laundry", "Retail & Personal"},
	{"Pharmacies", "pharmacy", "Retail & Personal"},

	{"Schools", "school", "Education & Care"},
	{"Daycares", "child_care_agency", "Education & Care"},
	{"Tutoring", "tutor", "Education & Care"},
}

// CategoryLabel returns the display label for a category value, or the value itself.
func CategoryLabel(value string) string {
	if value == "" {
		return "Unknown"
	}
	for _, c := range Categories {
		if c.Value == value {
			return c.Label
		}
	}
	return value
}
