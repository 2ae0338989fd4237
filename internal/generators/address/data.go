package address

type countryData struct {
	name          string
	streetNames   []string
	streetSuffix  []string
	cities        []string
	regions       []string
	postalPattern string // '#' digit, '?' uppercase letter
}

var countries = map[string]countryData{
	"US": {
		name:         "United States",
		streetNames:  []string{"Maple", "Oak", "Cedar", "Washington", "Lake", "Hill", "Park", "Pine", "Elm", "Main", "Sunset", "Highland", "River", "Madison", "Jefferson"},
		streetSuffix: []string{"St", "Ave", "Blvd", "Dr", "Ln", "Rd", "Ct", "Way"},
		cities:       []string{"Springfield", "Franklin", "Clinton", "Greenville", "Fairview", "Salem", "Madison", "Georgetown", "Arlington", "Ashland"},
		regions: []string{"AL", "AZ", "CA", "CO", "FL", "GA", "IL", "IN", "MA", "MI",
			"MN", "MO", "NC", "NJ", "NY", "OH", "OR", "PA", "TX", "WA"},
		postalPattern: "#####",
	},
	"GB": {
		name:          "United Kingdom",
		streetNames:   []string{"High", "Station", "Church", "Victoria", "Green", "Manor", "Kings", "Queens", "Mill", "School", "Park", "Windsor"},
		streetSuffix:  []string{"Street", "Road", "Lane", "Avenue", "Close", "Gardens", "Court"},
		cities:        []string{"London", "Manchester", "Birmingham", "Leeds", "Bristol", "Sheffield", "Liverpool", "Nottingham", "Leicester", "York"},
		regions:       []string{"Greater London", "Greater Manchester", "West Midlands", "West Yorkshire", "Merseyside", "South Yorkshire", "Kent", "Essex", "Surrey", "Hampshire"},
		postalPattern: "??# #??",
	},
	"DE": {
		name:          "Germany",
		streetNames:   []string{"Haupt", "Schul", "Garten", "Bahnhof", "Dorf", "Berg", "Kirch", "Wald", "Ring", "Linden", "Birken", "Rosen"},
		streetSuffix:  []string{"straße", "weg", "allee", "platz", "gasse"},
		cities:        []string{"Berlin", "Hamburg", "München", "Köln", "Frankfurt", "Stuttgart", "Düsseldorf", "Leipzig", "Dortmund", "Bremen"},
		regions:       []string{"Bayern", "Berlin", "Brandenburg", "Hessen", "Niedersachsen", "Nordrhein-Westfalen", "Sachsen", "Baden-Württemberg", "Hamburg", "Bremen"},
		postalPattern: "#####",
	},
	"FR": {
		name:          "France",
		streetNames:   []string{"de la République", "Victor Hugo", "de la Gare", "du Moulin", "des Écoles", "Pasteur", "de l'Église", "Jean Jaurès", "de la Paix", "des Lilas"},
		streetSuffix:  []string{"Rue", "Avenue", "Boulevard", "Place", "Allée"},
		cities:        []string{"Paris", "Marseille", "Lyon", "Toulouse", "Nice", "Nantes", "Strasbourg", "Montpellier", "Bordeaux", "Lille"},
		regions:       []string{"Île-de-France", "Provence-Alpes-Côte d'Azur", "Auvergne-Rhône-Alpes", "Occitanie", "Nouvelle-Aquitaine", "Bretagne", "Normandie", "Grand Est", "Hauts-de-France", "Pays de la Loire"},
		postalPattern: "#####",
	},
}
