package aggregate

// Summary is the content of summary.json.
type Summary struct {
	TotalPersons   int `json:"total_persons" validate:"gte=0"`
	TotalFlights   int `json:"total_flights" validate:"gte=0"`
	TotalDocuments int `json:"total_documents" validate:"gte=0"`
	TotalEmails    int `json:"total_emails" validate:"gte=0"`
	TotalImages    int `json:"total_images" validate:"gte=0"`
	TotalLinks     int `json:"total_links" validate:"gte=0"`

	PersonsStats  PersonsStats  `json:"persons_stats"`
	FlightStats   FlightStats   `json:"flight_stats"`
	DocumentStats DocumentStats `json:"document_stats"`
	EmailStats    EmailStats    `json:"email_stats"`
}

type PersonsStats struct {
	InBlackBook      int            `json:"in_black_book" validate:"gte=0"`
	TopByFlights     []RankedPerson `json:"top_by_flights" validate:"dive"`
	TopByDocuments   []RankedPerson `json:"top_by_documents" validate:"dive"`
	TopByConnections []RankedPerson `json:"top_by_connections" validate:"dive"`
	Nationalities    Ranking        `json:"nationalities" validate:"-"`
	Categories       Ranking        `json:"categories" validate:"-"`
}

// RankedPerson is one row of a top-N person table. Only the ranked metric is set.
type RankedPerson struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Flights     int    `json:"flights,omitempty"`
	Documents   int    `json:"documents,omitempty"`
	Connections int    `json:"connections,omitempty"`
}

type FlightStats struct {
	ByYear        Ranking `json:"by_year" validate:"-"`
	TopRoutes     []Route `json:"top_routes" validate:"dive"`
	TopDepartures Ranking `json:"top_departures" validate:"-"`
	TopArrivals   Ranking `json:"top_arrivals" validate:"-"`
	Aircraft      Ranking `json:"aircraft_types" validate:"-"`
}

// Route is a departure -> arrival pair and its flight count.
type Route struct {
	From  string `json:"from" validate:"required"`
	To    string `json:"to" validate:"required"`
	Count int    `json:"count" validate:"gt=0"`
}

type DocumentStats struct {
	ImportanceDistribution Ranking `json:"importance_distribution" validate:"-"`
	TopTags                Ranking `json:"top_tags" validate:"-"`
	TopPowerMentions       Ranking `json:"top_power_mentions" validate:"-"`
	TopAgencies            Ranking `json:"top_agencies" validate:"-"`
	LeadTypes              Ranking `json:"lead_types" validate:"-"`
	AvgImportance          float64 `json:"avg_importance" validate:"gte=0,lte=100"`
}

type EmailStats struct {
	TopSenders    Ranking `json:"top_senders" validate:"-"`
	TopRecipients Ranking `json:"top_recipients" validate:"-"`
	ByYear        Ranking `json:"by_year" validate:"-"`
}

// importanceBuckets are the fixed histogram labels; the last bucket includes 100.
var importanceBuckets = []string{
	"0-9", "10-19", "20-29", "30-39", "40-49",
	"50-59", "60-69", "70-79", "80-89", "90-100",
}

func importanceBucket(score int) string {
	i := score / 10
	if i < 0 {
		i = 0
	}
	if i >= len(importanceBuckets) {
		i = len(importanceBuckets) - 1
	}
	return importanceBuckets[i]
}
